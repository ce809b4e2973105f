package parser

import (
	"regexp"
	"strconv"
)

// envelope is the decoded syslog RFC3164-like shape: "<PRI>TIMESTAMP HOST
// TAG: MESSAGE". Only the message body and, for diagnostics, the
// priority survive past the envelope stage — spec §4.2 stage 1 discards
// lines that don't match this shape.
type envelope struct {
	priority int
	message  string
}

var envelopeRE = regexp.MustCompile(`^<(\d{1,3})>\S+\s+\S+\s+[^:]+:\s?(.*)$`)

// decodeEnvelope extracts the syslog priority and message body. It
// returns ok=false for any line that doesn't match the expected CDN
// syslog shape (spec §4.2 stage 1: "reject lines not matching this
// shape"). Parsing of other syslog dialects is explicitly out of scope
// (spec §1 Non-goals).
func decodeEnvelope(line string) (envelope, bool) {
	m := envelopeRE.FindStringSubmatch(line)
	if m == nil {
		return envelope{}, false
	}
	pri, err := strconv.Atoi(m[1])
	if err != nil {
		return envelope{}, false
	}
	return envelope{priority: pri, message: m[2]}, true
}
