package openimage

import (
	"html"
	"regexp"
	"strings"
)

// ccLicensePathSegments are URL path prefixes that identify a Creative Commons
// license or public-domain dedication (as opposed to the CC homepage).
var ccLicensePathSegments = []string{
	"creativecommons.org/licenses/",
	"creativecommons.org/publicdomain/",
}

// IsCCLicenseURL reports whether rawURL points to a Creative Commons license
// or public-domain tool. The CC homepage alone does not count.
func IsCCLicenseURL(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	lower := strings.ToLower(rawURL)
	for _, seg := range ccLicensePathSegments {
		if strings.Contains(lower, seg) {
			return true
		}
	}
	return false
}

// Patterns with rel="license" are tried first.
var (
	ccRelHrefRe = regexp.MustCompile(
		`(?i)rel=["']license["'][^>]*href=["']([^"']+)["']`,
	)
	ccHrefRelRe = regexp.MustCompile(
		`(?i)href=["']([^"']+)["'][^>]*rel=["']license["']`,
	)
	ccBareHrefRe = regexp.MustCompile(
		`(?i)href=["']((?:https?:)?//creativecommons\.org/(?:licenses|publicdomain)/[^"']+)["']`,
	)
	ccMetaContentRe = regexp.MustCompile(
		`(?i)content=["']((?:https?:)?//creativecommons\.org/(?:licenses|publicdomain)/[^"']+)["']`,
	)
)

// ExtractCCLicense scans HTML for Creative Commons license references.
// Returns the first CC license URL found, or empty string if none.
func ExtractCCLicense(pageHTML string) string {
	if url := matchCCFromRel(ccRelHrefRe, pageHTML); url != "" {
		return url
	}
	if url := matchCCFromRel(ccHrefRelRe, pageHTML); url != "" {
		return url
	}
	if m := ccBareHrefRe.FindStringSubmatch(pageHTML); m != nil {
		return html.UnescapeString(m[1])
	}
	if m := ccMetaContentRe.FindStringSubmatch(pageHTML); m != nil {
		return html.UnescapeString(m[1])
	}
	return ""
}

// matchCCFromRel extracts a URL from a rel="license" regex match and returns
// it only if it is a valid CC license URL.
func matchCCFromRel(re *regexp.Regexp, pageHTML string) string {
	m := re.FindStringSubmatch(pageHTML)
	if m == nil {
		return ""
	}
	url := html.UnescapeString(m[1])
	if IsCCLicenseURL(url) {
		return url
	}
	return ""
}

// ccLicenseKinds maps license path fragments to kinds. More specific
// fragments come first.
var ccLicenseKinds = []struct {
	fragment string
	kind     LicenseKind
}{
	{"/publicdomain/zero/", LicenseCC0},
	{"/publicdomain/mark/", LicensePublicDomain},
	{"/licenses/by-nc", LicenseUnknown},
	{"/licenses/by-sa/", LicenseCCBYSA},
	{"/licenses/by-nd/", LicenseCCBYND},
	{"/licenses/by/", LicenseCCBY},
}

// LicenseFromCCURL maps a Creative Commons license URL to a LicenseKind.
// Non-commercial licenses and unrecognized paths map to LicenseUnknown.
func LicenseFromCCURL(rawURL string) LicenseKind {
	if !IsCCLicenseURL(rawURL) {
		return LicenseUnknown
	}
	lower := strings.ToLower(rawURL)
	for _, e := range ccLicenseKinds {
		if strings.Contains(lower, e.fragment) {
			return e.kind
		}
	}
	return LicenseUnknown
}
