package parser

import (
	"strings"
	"time"
)

// fieldCount is the number of positional fields in a decoded event record:
// timestamp, url, tls_protocol, tls_cipher, country_code, user_agent.
const fieldCount = 6

// Parser turns RawLines into DownloadEvents. It holds only the static,
// immutable configuration needed for stage 2 (auth); it carries no other
// state, so Parse is pure and safe to call concurrently (spec §4.2
// "Determinism": parsing the same line twice yields equal outcomes).
type Parser struct {
	// Token is the required first field of the message body. Empty
	// disables authentication (spec §4.2 stage 2).
	Token string
}

// New returns a Parser configured with the given front-end token (empty
// to disable auth).
func New(token string) *Parser {
	return &Parser{Token: token}
}

// Parse attempts to turn one raw syslog line into a DownloadEvent. It
// never panics (spec §8 "Parser robustness"): any structural problem
// yields OutcomeSkip or OutcomeAuthReject instead.
func (p *Parser) Parse(line []byte) (DownloadEvent, Outcome) {
	env, ok := decodeEnvelope(string(line))
	if !ok {
		return DownloadEvent{}, OutcomeSkip
	}

	body := env.message

	if p.Token != "" {
		first, rest, hasField := cutField(body)
		if !hasField || first != p.Token {
			return DownloadEvent{}, OutcomeAuthReject
		}
		body = rest
	}

	fields, ok := splitFields(body)
	if !ok {
		return DownloadEvent{}, OutcomeSkip
	}

	ts, err := parseTimestamp(fields[0])
	if err != nil {
		return DownloadEvent{}, OutcomeSkip
	}

	rawURL := strings.TrimSpace(fields[1])
	if rawURL == "" {
		return DownloadEvent{}, OutcomeSkip
	}

	project, version, filename, ok := decomposeURL(rawURL)
	if !ok || filename == "" {
		return DownloadEvent{}, OutcomeSkip
	}

	event := DownloadEvent{
		Timestamp:   ts,
		URL:         rawURL,
		Project:     project,
		Version:     version,
		Filename:    filename,
		TLSProtocol: strings.TrimSpace(fields[2]),
		TLSCipher:   strings.TrimSpace(fields[3]),
		CountryCode: strings.TrimSpace(fields[4]),
		UserAgent:   classifyUserAgent(strings.TrimSpace(fields[5])),
	}

	return event, OutcomeEvent
}

// splitFields splits the post-auth message body into fieldCount
// positional fields. The delimiter is chosen by whether body contains
// any '|' at all (spec §4.2 stage 3): records produced by pipe-delimited
// CDN logs carry one between every field, while space-delimited records
// never do (URLs and user-agent strings don't contain '|'). In both
// cases the final field absorbs any remaining delimiters so the
// user-agent field, which may itself contain spaces, is never
// truncated.
func splitFields(body string) ([fieldCount]string, bool) {
	var fields [fieldCount]string

	body = strings.TrimSpace(body)
	sep := " "
	if strings.Contains(body, "|") {
		sep = "|"
	}

	parts := strings.SplitN(body, sep, fieldCount)
	if len(parts) < fieldCount {
		return fields, false
	}
	copy(fields[:], parts)
	return fields, true
}

// cutField returns the first whitespace-delimited field of s and the
// remainder with leading whitespace trimmed.
func cutField(s string) (first, rest string, ok bool) {
	s = strings.TrimLeft(s, " \t")
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		if s == "" {
			return "", "", false
		}
		return s, "", true
	}
	return s[:idx], strings.TrimLeft(s[idx+1:], " \t"), true
}

var timestampLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
}

func parseTimestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, s)
		if err == nil {
			return ts.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
