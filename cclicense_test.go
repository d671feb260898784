package openimage

import (
	"testing"
)

func TestIsCCLicenseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want bool
	}{
		{"https://creativecommons.org/licenses/by/4.0/", true},
		{"https://creativecommons.org/publicdomain/zero/1.0/", true},
		{"//creativecommons.org/licenses/by-sa/4.0/", true},
		{"HTTPS://CREATIVECOMMONS.ORG/LICENSES/BY/2.0/", true},
		{"https://creativecommons.org/", false},
		{"https://example.com/licenses/mit", false},
		{"", false},
	}

	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			t.Parallel()
			if got := IsCCLicenseURL(tc.url); got != tc.want {
				t.Errorf("IsCCLicenseURL(%q) = %v, want %v", tc.url, got, tc.want)
			}
		})
	}
}

func TestLicenseFromCCURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want LicenseKind
	}{
		{"https://creativecommons.org/licenses/by/4.0/", LicenseCCBY},
		{"https://creativecommons.org/licenses/by-sa/3.0/deed.fr", LicenseCCBYSA},
		{"https://creativecommons.org/licenses/by-nd/4.0/", LicenseCCBYND},
		{"https://creativecommons.org/licenses/by-nc/4.0/", LicenseUnknown},
		{"https://creativecommons.org/licenses/by-nc-sa/4.0/", LicenseUnknown},
		{"https://creativecommons.org/publicdomain/zero/1.0/", LicenseCC0},
		{"https://creativecommons.org/publicdomain/mark/1.0/", LicensePublicDomain},
		{"https://example.com/license", LicenseUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			t.Parallel()
			if got := LicenseFromCCURL(tc.url); got != tc.want {
				t.Errorf("LicenseFromCCURL(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}

func TestExtractCCLicense(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want string
	}{
		{name: "empty", html: "", want: ""},
		{
			name: "rel license anchor",
			html: `<a rel="license" href="https://creativecommons.org/licenses/by/4.0/">CC BY 4.0</a>`,
			want: "https://creativecommons.org/licenses/by/4.0/",
		},
		{
			name: "href before rel",
			html: `<a href="https://creativecommons.org/licenses/by-sa/4.0/" rel="license">CC BY-SA</a>`,
			want: "https://creativecommons.org/licenses/by-sa/4.0/",
		},
		{
			name: "non-CC rel license ignored",
			html: `<a rel="license" href="https://example.com/license">MIT</a>`,
			want: "",
		},
		{
			name: "bare CC href",
			html: `<p>Photo: EC, <a href="https://creativecommons.org/licenses/by/4.0/">licence</a></p>`,
			want: "https://creativecommons.org/licenses/by/4.0/",
		},
		{
			name: "meta content",
			html: `<meta name="license" content="https://creativecommons.org/publicdomain/zero/1.0/">`,
			want: "https://creativecommons.org/publicdomain/zero/1.0/",
		},
		{
			name: "CC homepage ignored",
			html: `<a href="https://creativecommons.org/">CC Home</a>`,
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractCCLicense(tc.html); got != tc.want {
				t.Errorf("ExtractCCLicense(...) = %q, want %q", got, tc.want)
			}
		})
	}
}
