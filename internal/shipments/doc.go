// Package shipments implements the email-mining pipeline: it searches the
// linked mailbox for shipment-confirmation emails, parses carrier and
// tracking number out of each body, deduplicates the references, and fans
// out to the carrier-tracking service. Three answer strategies turn the
// resulting statuses into one spoken sentence.
//
// The parsing only understands bodies that announce the tracking number
// behind a fixed "Tracking:" marker, with the carrier named on the line
// directly above it. Retailers that format their confirmation emails
// differently are invisible to the pipeline.
package shipments
