// Package store provides the persistence layer for account and mail-link
// records.
//
// Two tables back the linking state machine: accounts, keyed by the
// voice-platform user id, and mail_links, keyed by phone number. The phone
// number acts as the foreign key between a platform user and their mailbox
// credentials: the OAuth callback only knows the phone number it received as
// the state parameter, so that is the key it writes under.
//
// The core only ever does point lookups, point inserts, and conditional
// updates of named fields; Store exposes exactly those operations.
package store
