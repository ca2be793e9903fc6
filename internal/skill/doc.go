// Package skill speaks the voice platform's webhook protocol: it decodes
// request envelopes, routes intents through the linking resolver and the
// mining pipeline, and encodes exactly one response per invocation.
//
// Every handler path ends in a spoken response. When anything in the core
// path fails the user hears a generic apology instead of silence.
package skill
