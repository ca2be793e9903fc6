// Package linking converges an under-specified user record toward a fully
// linked account across multiple voice turns. Each invocation supplies at
// most a couple of slots (phone number, email provider); the resolver
// persists whatever arrived, then either prompts for what is still missing,
// sends the OAuth link by SMS, or lets the request proceed.
//
// The phone number doubles as the correlation token between the voice
// account and the mailbox credentials: it rides through the OAuth consent
// URL as the state parameter and keys the mail-link record the callback
// writes.
package linking
