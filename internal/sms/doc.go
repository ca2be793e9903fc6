// Package sms delivers the account-linking text message through an SMS
// gateway. Users speak a bare ten-digit number, so the client normalizes
// destinations to E.164 with a +1 country code before publishing.
package sms
