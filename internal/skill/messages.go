package skill

// Spoken sentences for the en-US locale.
const (
	msgPromptSetup    = "Before I can help you, tell me your email provider and phone number."
	msgPromptPhone    = "Before I can help you, tell me your phone number."
	msgPromptProvider = "Before I can help you, tell me your email provider."
	msgTextSent       = "Thanks, you should receive a text shortly."

	msgHelp    = "What can I help you with? You can ask when your package arrives, where it was last seen, or how many are on the way."
	msgStop    = "Goodbye!"
	msgApology = "Sorry, something went wrong. Please try again in a moment."

	cardSetupTitle = "Set up ParcelPal"
	cardSetupBody  = "Tell ParcelPal your email provider and phone number to complete setup."
)
