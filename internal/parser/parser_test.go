package parser

import (
	"testing"
)

func syslogLine(body string) []byte {
	return []byte("<134>2024-01-01T00:00:00Z cache-host fastly-cdn: " + body)
}

func TestParse_HappyPath(t *testing.T) {
	// spec §8 scenario 1.
	p := New("T")
	line := syslogLine("T 2024-01-01T00:00:00Z|https://example.com/packages/ab/cd/requests-2.31.0-py3-none-any.whl|TLSv1.3|TLS_AES_128_GCM_SHA256|US|pip/23.0 {}")

	event, outcome := p.Parse(line)
	if outcome != OutcomeEvent {
		t.Fatalf("outcome = %v, want OutcomeEvent", outcome)
	}
	if event.Project != "requests" {
		t.Errorf("Project = %q, want requests", event.Project)
	}
	if event.Version != "2.31.0" {
		t.Errorf("Version = %q, want 2.31.0", event.Version)
	}
	if event.UserAgent.Installer != "pip" {
		t.Errorf("Installer = %q, want pip", event.UserAgent.Installer)
	}
}

func TestParse_TokenReject(t *testing.T) {
	// spec §8 scenario 2.
	p := New("T")
	line := syslogLine("X 2024-01-01T00:00:00Z|https://example.com/packages/ab/cd/requests-2.31.0-py3-none-any.whl|TLSv1.3|TLS_AES|US|pip/23.0 {}")

	_, outcome := p.Parse(line)
	if outcome != OutcomeAuthReject {
		t.Fatalf("outcome = %v, want OutcomeAuthReject", outcome)
	}
}

func TestParse_NoTokenConfigured_NoPrefixExpected(t *testing.T) {
	p := New("")
	line := syslogLine("2024-01-01T00:00:00Z|https://example.com/packages/ab/cd/requests-2.31.0-py3-none-any.whl|TLSv1.3|TLS_AES|US|pip/23.0 {}")

	_, outcome := p.Parse(line)
	if outcome != OutcomeEvent {
		t.Fatalf("outcome = %v, want OutcomeEvent", outcome)
	}
}

func TestParse_MalformedEnvelope_Skipped(t *testing.T) {
	p := New("")
	_, outcome := p.Parse([]byte("not a syslog line at all"))
	if outcome != OutcomeSkip {
		t.Fatalf("outcome = %v, want OutcomeSkip", outcome)
	}
}

func TestParse_TooFewFields_Skipped(t *testing.T) {
	p := New("")
	line := syslogLine("2024-01-01T00:00:00Z|https://example.com/x")
	_, outcome := p.Parse(line)
	if outcome != OutcomeSkip {
		t.Fatalf("outcome = %v, want OutcomeSkip", outcome)
	}
}

func TestParse_EmptyFilename_Skipped(t *testing.T) {
	p := New("")
	line := syslogLine("2024-01-01T00:00:00Z|https://example.com/packages/ab/cd/|TLSv1.3|TLS_AES|US|pip/23.0 {}")
	_, outcome := p.Parse(line)
	if outcome != OutcomeSkip {
		t.Fatalf("outcome = %v, want OutcomeSkip", outcome)
	}
}

func TestParse_SpaceDelimitedRecord(t *testing.T) {
	p := New("")
	line := syslogLine("2024-01-01T00:00:00Z https://example.com/packages/ab/cd/requests-2.31.0.tar.gz TLSv1.3 TLS_AES US python-requests/2.31.0 extra ignored")

	event, outcome := p.Parse(line)
	if outcome != OutcomeEvent {
		t.Fatalf("outcome = %v, want OutcomeEvent", outcome)
	}
	if event.UserAgent.Installer != "requests" {
		t.Errorf("Installer = %q, want requests", event.UserAgent.Installer)
	}
	if event.UserAgent.InstallerVersion != "2.31.0" {
		t.Errorf("InstallerVersion = %q, want 2.31.0", event.UserAgent.InstallerVersion)
	}
}

func TestParse_UnknownUserAgent(t *testing.T) {
	p := New("")
	line := syslogLine("2024-01-01T00:00:00Z|https://example.com/packages/ab/cd/foo-1.0.zip|TLSv1.3|TLS_AES|US|some-opaque-client/9")

	event, outcome := p.Parse(line)
	if outcome != OutcomeEvent {
		t.Fatalf("outcome = %v, want OutcomeEvent", outcome)
	}
	if event.UserAgent.Installer != "unknown" {
		t.Errorf("Installer = %q, want unknown", event.UserAgent.Installer)
	}
	if event.UserAgent.Raw != "some-opaque-client/9" {
		t.Errorf("Raw = %q, want preserved opaque UA", event.UserAgent.Raw)
	}
}

func TestParse_Purity(t *testing.T) {
	// spec §8 "Parser purity": parsing the same line twice yields equal
	// outcomes.
	p := New("T")
	line := syslogLine("T 2024-01-01T00:00:00Z|https://example.com/packages/ab/cd/requests-2.31.0-py3-none-any.whl|TLSv1.3|TLS_AES|US|pip/23.0 {}")

	e1, o1 := p.Parse(line)
	e2, o2 := p.Parse(line)
	if o1 != o2 {
		t.Fatalf("outcomes differ: %v vs %v", o1, o2)
	}
	if e1 != e2 {
		t.Fatalf("events differ: %+v vs %+v", e1, e2)
	}
}

func TestParse_NeverPanics(t *testing.T) {
	// spec §8 "Parser robustness": arbitrary byte sequences must never
	// panic, regardless of structure.
	p := New("T")
	inputs := [][]byte{
		nil,
		{},
		{0x00, 0xff, 0x80},
		[]byte("<>"),
		[]byte("<999999999999999999999>x y z: body"),
		[]byte(string([]byte{'<', '1', '>'}) + "\x00\x01 host tag: " + "|||||"),
	}
	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Parse panicked on %q: %v", in, r)
				}
			}()
			p.Parse(in)
		}()
	}
}
