// Package google implements the OAuth side of mailbox linking.
//
// The flow is phone-number centric: the authorization URL carries the user's
// phone number as the OAuth state parameter, so when Google redirects back to
// the callback the server knows which mail link to write without any session
// storage. Exchange returns the token set together with the Google account
// email, extracted from the id_token the token endpoint issues for the
// openid/email scopes.
package google
