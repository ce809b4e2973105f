package parser

import (
	"path"
	"strings"
)

// knownArchiveExts lists the suffixes decomposeURL recognizes, longest
// first so "tar.gz" is stripped whole rather than leaving ".gz" attached
// to the version.
var knownArchiveExts = []string{
	".tar.gz", ".tar.bz2", ".tar.xz", ".tar.zst",
	".whl", ".egg", ".zip", ".tar",
}

// stripArchiveExt removes the first matching known extension and reports
// it separately, since wheel/sdist extensions can themselves contain a
// dot ("tar.gz") that would otherwise get confused with a dotted project
// name like "zope.interface".
func stripArchiveExt(filename string) (stem, ext string, ok bool) {
	lower := strings.ToLower(filename)
	for _, e := range knownArchiveExts {
		if strings.HasSuffix(lower, e) {
			return filename[:len(filename)-len(e)], filename[len(filename)-len(e)+1:], true
		}
	}
	return "", "", false
}

// decomposeURL extracts project, version, and filename from a download
// URL whose path follows the CDN layout
// "/packages/<hash-dirs>/<filename>" (spec §4.2 stage 4). It returns
// ok=false if no non-empty filename can be recovered, which spec §3
// requires to discard the event outright.
//
// Project and version are recovered by splitting the extension-stripped
// stem on "-" and taking the first digit-leading segment as the version
// (e.g. "zope.interface-5.5.2" -> project "zope-interface" after PEP 503
// normalization, version "5.5.2"); everything after the version (build tag, python tag, ABI
// tag, platform tag) is discarded.
func decomposeURL(rawURL string) (project, version, filename string, ok bool) {
	p := rawURL
	if idx := strings.IndexByte(p, '?'); idx >= 0 {
		p = p[:idx] // query string carries no structural information here
	}
	if strings.HasSuffix(p, "/") {
		// Trailing slash means the path names a directory, not a file;
		// path.Base would otherwise silently return the directory name.
		return "", "", "", false
	}

	filename = path.Base(p)
	if filename == "" || filename == "." || filename == "/" {
		return "", "", "", false
	}

	stem, _, stripped := stripArchiveExt(filename)
	if !stripped {
		// Filename present but not canonically structured: still a
		// usable event per spec (only an empty filename is fatal), but
		// project/version are left blank.
		return "", "", filename, true
	}

	parts := strings.Split(stem, "-")
	versionIdx := -1
	for i, part := range parts {
		if part != "" && part[0] >= '0' && part[0] <= '9' {
			versionIdx = i
			break
		}
	}
	if versionIdx <= 0 {
		return "", "", filename, true
	}

	return normalizeProjectName(strings.Join(parts[:versionIdx], "-")), parts[versionIdx], filename, true
}

// normalizeProjectName applies PyPI's canonicalization (PEP 503): runs of
// -, _, and . are treated as equivalent and collapsed to a single -,
// lowercased.
func normalizeProjectName(name string) string {
	var b strings.Builder
	lastWasSep := false
	for _, r := range strings.ToLower(name) {
		if r == '-' || r == '_' || r == '.' {
			if !lastWasSep {
				b.WriteByte('-')
				lastWasSep = true
			}
			continue
		}
		b.WriteRune(r)
		lastWasSep = false
	}
	return strings.Trim(b.String(), "-")
}
