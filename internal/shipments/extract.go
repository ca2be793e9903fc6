package shipments

import (
	"strings"
	"unicode"
)

// Marker is the fixed text that introduces a tracking number in a
// shipment-confirmation email body.
const Marker = "Tracking:"

// Reference is a carrier and tracking-number pair parsed out of one email
// body. It is derived per request and never persisted.
type Reference struct {
	Carrier        string
	TrackingNumber string
}

// Extract parses a decoded email body into a tracking reference. The carrier
// is the trimmed text on the line directly before the marker; the tracking
// number is the text after the marker up to the first '<', with punctuation
// stripped. When retailer is non-empty the body must contain it verbatim
// (case-sensitive) or the email is skipped.
//
// ok is false for bodies without the marker, bodies failing the retailer
// filter, and bodies whose parsed tracking number comes out empty.
func Extract(body, retailer string) (Reference, bool) {
	if retailer != "" && !strings.Contains(body, retailer) {
		return Reference{}, false
	}

	i := strings.Index(body, Marker)
	if i < 0 {
		return Reference{}, false
	}

	before := body[:i]
	after := body[i+len(Marker):]

	carrier := strings.TrimSpace(before[strings.LastIndex(before, "\n")+1:])

	if end := strings.IndexByte(after, '<'); end >= 0 {
		after = after[:end]
	}
	number := strings.TrimSpace(stripPunctuation(after))
	if number == "" {
		return Reference{}, false
	}

	return Reference{Carrier: carrier, TrackingNumber: number}, true
}

// stripPunctuation removes everything except letters, digits, and spaces.
func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}

// Dedupe reduces a reference sequence to one entry per distinct tracking
// number, keeping the first occurrence and its order. Confirmation and
// update emails for the same parcel both carry the marker; without this step
// one physical package would be counted twice.
func Dedupe(refs []Reference) []Reference {
	seen := make(map[string]bool, len(refs))
	out := make([]Reference, 0, len(refs))
	for _, ref := range refs {
		if seen[ref.TrackingNumber] {
			continue
		}
		seen[ref.TrackingNumber] = true
		out = append(out, ref)
	}
	return out
}
