// Package parser implements the event parser (spec §4.2): it turns one
// raw syslog line into zero or one typed DownloadEvent. Parsing is staged
// (envelope, auth, fields, URL decomposition, UA classification) and pure
// — the same line always yields the same outcome, and the parser never
// panics or returns an error that could tear down the connection; every
// failure is a silent ParseSkip counted by the caller.
//
// The staged decode is grounded on
// ClusterCockpit-cc-backend/pkg/metricstore/lineprotocol.go's structure
// (successive decode stages over one line, unknown/extra fields ignored,
// scratch buffers reused across calls), adapted from line-protocol metric
// decoding to syslog/download-event decoding.
package parser

import "time"

// UserAgentInfo is the structured sub-record identifying the installer
// that produced a download, per spec §3.
type UserAgentInfo struct {
	Installer             string // pip, setuptools, bandersnatch, devpi, browser, requests, urllib, pex, conda, uv, unknown
	InstallerVersion      string
	PythonImplementation  string
	PythonVersion         string
	Distro                string
	DistroVersion         string
	CPU                   string
	OpenSSLVersion        string
	SetuptoolsVersion     string
	Raw                   string // original UA string, always retained
}

// DownloadEvent is the canonical parsed record (spec §3). It is immutable
// once constructed.
type DownloadEvent struct {
	Timestamp time.Time

	URL      string
	Project  string
	Version  string
	Filename string

	TLSProtocol string
	TLSCipher   string
	CountryCode string

	UserAgent UserAgentInfo
}

// Outcome is the result of attempting to parse one RawLine.
type Outcome int

const (
	// OutcomeEvent: a DownloadEvent was successfully produced.
	OutcomeEvent Outcome = iota
	// OutcomeSkip: the line was structurally invalid or irrelevant
	// (ParseSkip, spec §7). Counted under events.parsing.failed.
	OutcomeSkip
	// OutcomeAuthReject: the configured token did not match (AuthReject,
	// spec §7). Counted separately under events.rejected.auth, and never
	// counted as a parsing failure.
	OutcomeAuthReject
)
