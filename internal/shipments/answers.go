package shipments

import (
	"fmt"
	"strings"

	"github.com/parcelpal/parcelpal/internal/tracking"
)

// Strategy selects how a batch of carrier statuses becomes one spoken answer.
type Strategy int

const (
	// DeliveryDate reports when the most recent package arrives or arrived.
	DeliveryDate Strategy = iota

	// ShippingSummary counts how many packages are on the way.
	ShippingSummary

	// LastLocation reports the most recent scan of the most recent package.
	LastLocation
)

const (
	notFoundAnswer  = "Sorry, I couldn't find the package you're asking about."
	exceptionAnswer = "The carrier had a problem delivering your package. Check with the carrier to see what's up."
)

// spokenDate wraps the date part of a "YYYY-MM-DD HH:MM:SS" carrier timestamp
// in SSML so the voice platform reads it as a date.
func spokenDate(timestamp string) string {
	date, _, _ := strings.Cut(timestamp, " ")
	return `<say-as interpret-as="date">` + date + `</say-as>`
}

// NoPackagesAnswer is the short-circuit answer when the mailbox yielded no
// references at all. Used by every strategy, before any tracking lookup.
func NoPackagesAnswer(strategy Strategy, retailer string) string {
	if strategy == LastLocation {
		if retailer != "" {
			return fmt.Sprintf("Sorry, I couldn't find any location history for your most recent %s package.", retailer)
		}
		return "Sorry, I couldn't find any location history for your most recent package."
	}
	if retailer != "" {
		return fmt.Sprintf("Sorry, I couldn't find any recent packages from %s.", retailer)
	}
	return "Sorry, I couldn't find any recent packages."
}

// ComposeAnswer turns resolved statuses into the spoken answer for the given
// strategy. The statuses keep mailbox order, so the first entry is the most
// recent package. An empty status list (all lookups failed, or none were
// attempted) falls back to the no-packages answer.
func ComposeAnswer(strategy Strategy, statuses []*tracking.CarrierStatus, retailer string) string {
	if len(statuses) == 0 {
		return NoPackagesAnswer(strategy, retailer)
	}

	switch strategy {
	case DeliveryDate:
		return deliveryDateAnswer(statuses[0], retailer)
	case ShippingSummary:
		return shippingSummaryAnswer(statuses, retailer)
	case LastLocation:
		return lastLocationAnswer(statuses[0], retailer)
	default:
		return notFoundAnswer
	}
}

func deliveryDateAnswer(pkg *tracking.CarrierStatus, retailer string) string {
	projected := pkg.ProjectedDeliveryDate()

	switch pkg.Status {
	case tracking.StatusDelivered:
		if pkg.LastEventDate == "" {
			return notFoundAnswer
		}
		if retailer != "" {
			return fmt.Sprintf("Your package from %s was delivered on %s.", retailer, spokenDate(pkg.LastEventDate))
		}
		return fmt.Sprintf("Your package was delivered on %s.", spokenDate(pkg.LastEventDate))

	case tracking.StatusInTransit:
		return inTransitAnswer(projected, retailer)

	case tracking.StatusJustShipped:
		if pkg.ShipDate == "" {
			return inTransitAnswer(projected, retailer)
		}
		if projected == "" {
			return notFoundAnswer
		}
		if retailer != "" {
			return fmt.Sprintf("Your package from %s was shipped on %s and will arrive on %s.",
				retailer, spokenDate(pkg.ShipDate), spokenDate(projected))
		}
		return fmt.Sprintf("Your package was shipped on %s and will arrive on %s.",
			spokenDate(pkg.ShipDate), spokenDate(projected))

	case tracking.StatusException:
		return exceptionAnswer

	default:
		return notFoundAnswer
	}
}

func inTransitAnswer(projected, retailer string) string {
	if projected == "" {
		return notFoundAnswer
	}
	if retailer != "" {
		return fmt.Sprintf("Your package from %s will arrive on %s.", retailer, spokenDate(projected))
	}
	return fmt.Sprintf("Your package will arrive on %s.", spokenDate(projected))
}

func shippingSummaryAnswer(statuses []*tracking.CarrierStatus, retailer string) string {
	inTransit := 0
	for _, pkg := range statuses {
		if pkg.Status == tracking.StatusInTransit || pkg.Status == tracking.StatusJustShipped {
			inTransit++
		}
	}

	noun := "packages"
	if inTransit == 1 {
		noun = "package"
	}
	if retailer != "" {
		return fmt.Sprintf("You have %d %s from %s on the way.", inTransit, noun, retailer)
	}
	return fmt.Sprintf("You have %d %s on the way.", inTransit, noun)
}

func lastLocationAnswer(pkg *tracking.CarrierStatus, retailer string) string {
	if len(pkg.Events) == 0 {
		return NoPackagesAnswer(LastLocation, retailer)
	}

	// Events arrive most recent first
	last := pkg.Events[0]
	if retailer != "" {
		return fmt.Sprintf("Your package from %s was last in %s on %s.", retailer, last.City, spokenDate(last.Date))
	}
	return fmt.Sprintf("Your package was last in %s on %s.", last.City, spokenDate(last.Date))
}
