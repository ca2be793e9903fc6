package skill

// RequestEnvelope is the platform's webhook request shape.
type RequestEnvelope struct {
	Version string  `json:"version"`
	Session Session `json:"session"`
	Request Request `json:"request"`
}

// Session carries the per-device session, including the platform user id.
type Session struct {
	SessionID string `json:"sessionId,omitempty"`
	User      User   `json:"user"`
}

// User identifies the voice-platform account.
type User struct {
	UserID string `json:"userId"`
}

// Request is the typed payload of one invocation.
type Request struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Locale    string `json:"locale,omitempty"`
	Intent    Intent `json:"intent,omitempty"`
}

// Request types sent by the platform.
const (
	TypeLaunchRequest       = "LaunchRequest"
	TypeIntentRequest       = "IntentRequest"
	TypeSessionEndedRequest = "SessionEndedRequest"
)

// Intent names this skill understands.
const (
	IntentDeliveryDate    = "GetDeliveryDate"
	IntentShippingSummary = "GetShippingSummary"
	IntentPackageLocation = "GetPackageLocation"

	IntentSetProvider          = "GetEmailProvider"
	IntentSetPhone             = "GetPhoneNumber"
	IntentSetProviderThenPhone = "GetEmailProviderThenPhoneNumber"
	IntentSetPhoneThenProvider = "GetPhoneNumberThenEmailProvider"

	IntentHelp   = "AMAZON.HelpIntent"
	IntentStop   = "AMAZON.StopIntent"
	IntentCancel = "AMAZON.CancelIntent"
)

// Slot names.
const (
	SlotPhoneNumber   = "Number"
	SlotEmailProvider = "EmailProvider"
	SlotRetailer      = "Retailer"
)

// Intent is the recognized intent with its filled slots.
type Intent struct {
	Name  string          `json:"name"`
	Slots map[string]Slot `json:"slots,omitempty"`
}

// Slot is one spoken slot value.
type Slot struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// SlotValue returns the value of the named slot, or "" when absent.
func (r *RequestEnvelope) SlotValue(name string) string {
	slot, ok := r.Request.Intent.Slots[name]
	if !ok {
		return ""
	}
	return slot.Value
}

// ResponseEnvelope is the platform's webhook response shape.
type ResponseEnvelope struct {
	Version  string   `json:"version"`
	Response Response `json:"response"`
}

// Response holds the spoken output and session directives.
type Response struct {
	OutputSpeech     *OutputSpeech `json:"outputSpeech,omitempty"`
	Card             *Card         `json:"card,omitempty"`
	Reprompt         *Reprompt     `json:"reprompt,omitempty"`
	ShouldEndSession bool          `json:"shouldEndSession"`
}

// OutputSpeech is always emitted as SSML so date markup works uniformly.
type OutputSpeech struct {
	Type string `json:"type"`
	SSML string `json:"ssml"`
}

// Card is the companion-app card shown alongside a spoken response.
type Card struct {
	Type    string `json:"type"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

// Reprompt is spoken when the user stays silent after a question.
type Reprompt struct {
	OutputSpeech *OutputSpeech `json:"outputSpeech,omitempty"`
}

func speech(text string) *OutputSpeech {
	return &OutputSpeech{
		Type: "SSML",
		SSML: "<speak>" + text + "</speak>",
	}
}

// Tell builds a final spoken response that ends the session.
func Tell(text string) *ResponseEnvelope {
	return &ResponseEnvelope{
		Version: "1.0",
		Response: Response{
			OutputSpeech:     speech(text),
			ShouldEndSession: true,
		},
	}
}

// TellWithCard is Tell plus a companion-app card.
func TellWithCard(text, title, content string) *ResponseEnvelope {
	resp := Tell(text)
	resp.Response.Card = &Card{
		Type:    "Simple",
		Title:   title,
		Content: content,
	}
	return resp
}

// Ask builds a question that keeps the session open.
func Ask(text, reprompt string) *ResponseEnvelope {
	return &ResponseEnvelope{
		Version: "1.0",
		Response: Response{
			OutputSpeech:     speech(text),
			Reprompt:         &Reprompt{OutputSpeech: speech(reprompt)},
			ShouldEndSession: false,
		},
	}
}

// Empty builds the silent response for session-ended notifications.
func Empty() *ResponseEnvelope {
	return &ResponseEnvelope{
		Version:  "1.0",
		Response: Response{ShouldEndSession: true},
	}
}
