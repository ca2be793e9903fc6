// Package mailbox wraps the Gmail API surface the mining pipeline needs:
// searching for message ids and fetching full messages.
//
// Unlike a desktop client there is no single stored credential. Every call
// takes the access token of the user being served, so one Client instance
// serves all users concurrently. DecodedBody applies the structural filter
// the pipeline relies on: only messages whose first MIME part carries inline
// body data are considered.
package mailbox
