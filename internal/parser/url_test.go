package parser

import "testing"

func TestDecomposeURL(t *testing.T) {
	cases := []struct {
		url         string
		wantProject string
		wantVersion string
		wantFile    string
		wantOK      bool
	}{
		{
			url:         "https://example.com/packages/ab/cd/requests-2.31.0-py3-none-any.whl",
			wantProject: "requests",
			wantVersion: "2.31.0",
			wantFile:    "requests-2.31.0-py3-none-any.whl",
			wantOK:      true,
		},
		{
			url:         "https://example.com/packages/ab/cd/zope.interface-5.5.2.tar.gz",
			wantProject: "zope-interface",
			wantVersion: "5.5.2",
			wantFile:    "zope.interface-5.5.2.tar.gz",
			wantOK:      true,
		},
		{
			url:    "https://example.com/packages/ab/cd/",
			wantOK: false,
		},
		{
			url:      "https://example.com/packages/ab/cd/not-canonical",
			wantFile: "not-canonical",
			wantOK:   true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.url, func(t *testing.T) {
			project, version, filename, ok := decomposeURL(tc.url)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if !ok {
				return
			}
			if filename != tc.wantFile {
				t.Errorf("filename = %q, want %q", filename, tc.wantFile)
			}
			if tc.wantProject != "" && project != tc.wantProject {
				t.Errorf("project = %q, want %q", project, tc.wantProject)
			}
			if tc.wantVersion != "" && version != tc.wantVersion {
				t.Errorf("version = %q, want %q", version, tc.wantVersion)
			}
		})
	}
}

func TestClassifyUserAgent_OrderedRecognizers(t *testing.T) {
	cases := []struct {
		ua   string
		want string
	}{
		{`pip/23.0 {"installer":{"name":"pip","version":"23.0"}}`, "pip"},
		{"setuptools/65.5.0", "setuptools"},
		{"bandersnatch/5.0", "bandersnatch"},
		{"devpi/6.0", "devpi"},
		{"python-requests/2.31.0", "requests"},
		{"Python-urllib/3.9", "urllib"},
		{"pex/2.1.0", "pex"},
		{"conda/23.0", "conda"},
		{"uv/0.1.0", "uv"},
		{"Mozilla/5.0 (Macintosh)", "browser"},
		{"some-opaque-thing/1", "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			info := classifyUserAgent(tc.ua)
			if info.Installer != tc.want {
				t.Errorf("Installer = %q, want %q", info.Installer, tc.want)
			}
			if info.Raw != tc.ua {
				t.Errorf("Raw = %q, want %q", info.Raw, tc.ua)
			}
		})
	}
}
