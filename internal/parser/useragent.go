package parser

import (
	"encoding/json"
	"regexp"
	"strings"
)

// recognizer is one independent User-Agent matcher (spec §9: "design it
// as an ordered list of independent matchers rather than a single regex,
// so the set can evolve"). The first recognizer whose Match succeeds
// wins; recognizers are tried in the order they appear in recognizers.
type recognizer struct {
	name  string
	match func(ua string) (UserAgentInfo, bool)
}

// pipUserAgentRE matches pip's real UA shape: "pip/<version> {<json>}",
// where the JSON object carries implementation/distro/cpu details.
var pipUserAgentRE = regexp.MustCompile(`^pip/(\S+)\s+(\{.*\})\s*$`)

type pipUserAgentJSON struct {
	Installer struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"installer"`
	Implementation struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"implementation"`
	Distro struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"distro"`
	CPU            string `json:"cpu"`
	OpenSSLVersion string `json:"openssl_version"`
	Setuptools     struct {
		Version string `json:"version"`
	} `json:"setuptools_version"`
}

func matchPip(ua string) (UserAgentInfo, bool) {
	m := pipUserAgentRE.FindStringSubmatch(ua)
	if m == nil {
		return UserAgentInfo{}, false
	}
	info := UserAgentInfo{Installer: "pip", InstallerVersion: m[1], Raw: ua}

	var payload pipUserAgentJSON
	if err := json.Unmarshal([]byte(m[2]), &payload); err == nil {
		info.PythonImplementation = payload.Implementation.Name
		info.PythonVersion = payload.Implementation.Version
		info.Distro = payload.Distro.Name
		info.DistroVersion = payload.Distro.Version
		info.CPU = payload.CPU
		info.OpenSSLVersion = payload.OpenSSLVersion
		info.SetuptoolsVersion = payload.Setuptools.Version
	}
	return info, true
}

func simpleVersionRecognizer(family, prefix string) recognizer {
	re := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(prefix) + `/(\S+)`)
	return recognizer{
		name: family,
		match: func(ua string) (UserAgentInfo, bool) {
			m := re.FindStringSubmatch(ua)
			if m == nil {
				return UserAgentInfo{}, false
			}
			return UserAgentInfo{Installer: family, InstallerVersion: m[1], Raw: ua}, true
		},
	}
}

// recognizers is the ordered matcher list (spec §4.2 stage 5). pip is
// checked first; it is the only recognizer that also decodes the JSON
// details blob that follows the version.
var recognizers = []recognizer{
	{name: "pip", match: matchPip},
	simpleVersionRecognizer("setuptools", "setuptools"),
	simpleVersionRecognizer("bandersnatch", "bandersnatch"),
	simpleVersionRecognizer("devpi", "devpi"),
	{
		name: "requests",
		match: func(ua string) (UserAgentInfo, bool) {
			re := regexp.MustCompile(`^python-requests/(\S+)`)
			m := re.FindStringSubmatch(ua)
			if m == nil {
				return UserAgentInfo{}, false
			}
			return UserAgentInfo{Installer: "requests", InstallerVersion: m[1], Raw: ua}, true
		},
	},
	{
		name: "urllib",
		match: func(ua string) (UserAgentInfo, bool) {
			re := regexp.MustCompile(`(?i)^Python-urllib/(\S+)`)
			m := re.FindStringSubmatch(ua)
			if m == nil {
				return UserAgentInfo{}, false
			}
			return UserAgentInfo{Installer: "urllib", InstallerVersion: m[1], Raw: ua}, true
		},
	},
	simpleVersionRecognizer("pex", "pex"),
	simpleVersionRecognizer("conda", "conda"),
	simpleVersionRecognizer("uv", "uv"),
	{
		name: "browser",
		match: func(ua string) (UserAgentInfo, bool) {
			if strings.HasPrefix(ua, "Mozilla/") {
				return UserAgentInfo{Installer: "browser", Raw: ua}, true
			}
			return UserAgentInfo{}, false
		},
	},
}

// classifyUserAgent matches ua against the ordered recognizer list,
// returning the structured sub-record from the first recognizer to
// succeed. If none match, the UA is retained verbatim with installer
// family "unknown" (spec §4.2 stage 5).
func classifyUserAgent(ua string) UserAgentInfo {
	for _, r := range recognizers {
		if info, ok := r.match(ua); ok {
			return info
		}
	}
	return UserAgentInfo{Installer: "unknown", Raw: ua}
}
