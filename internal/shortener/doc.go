// Package shortener shrinks the OAuth consent URL before it is texted to the
// user. Consent URLs run several hundred characters and would be split across
// multiple SMS segments otherwise.
package shortener
