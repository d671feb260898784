package openimage

import (
	"net/url"
	"strings"
)

// LicenseKind names the license an image is distributed under.
type LicenseKind string

const (
	LicensePublicDomain LicenseKind = "Public Domain"
	LicenseCC0          LicenseKind = "CC0 (Creative Commons Zero)"
	LicenseCCBY         LicenseKind = "CC BY (Attribution)"
	LicenseCCBYSA       LicenseKind = "CC BY-SA (Attribution-ShareAlike)"
	LicenseCCBYND       LicenseKind = "CC BY-ND (Attribution-NoDerivs)"
	LicenseUnsplash     LicenseKind = "Unsplash License"
	LicensePexels       LicenseKind = "Pexels License"
	LicensePixabay      LicenseKind = "Pixabay License"
	LicenseEtalab       LicenseKind = "Etalab 2.0 Open License"
	LicenseOGL          LicenseKind = "Open Government Licence"
	LicenseUnknown      LicenseKind = "Unknown"
)

// IsCommercialSafe reports whether the license is on the commercial-use
// allow-list. Government open licenses are not on it.
func (k LicenseKind) IsCommercialSafe() bool {
	switch k {
	case LicensePublicDomain, LicenseCC0, LicenseCCBY, LicenseCCBYSA,
		LicenseUnsplash, LicensePexels, LicensePixabay:
		return true
	default:
		return false
	}
}

// ParseLicenseName maps a free-text license name such as "CC BY-SA 4.0" or
// "Public domain" to a LicenseKind. Non-commercial variants and anything
// unrecognized map to LicenseUnknown.
func ParseLicenseName(name string) LicenseKind {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, " ", "-")
	switch {
	case n == "":
		return LicenseUnknown
	case strings.Contains(n, "cc0") || strings.Contains(n, "cc-zero"):
		return LicenseCC0
	case strings.Contains(n, "public-domain") || n == "pd" || strings.HasPrefix(n, "pd-"):
		return LicensePublicDomain
	case strings.Contains(n, "-nc"):
		return LicenseUnknown
	case strings.Contains(n, "cc-by-sa"):
		return LicenseCCBYSA
	case strings.Contains(n, "cc-by-nd"):
		return LicenseCCBYND
	case strings.Contains(n, "cc-by"):
		return LicenseCCBY
	case strings.Contains(n, "etalab") || strings.Contains(n, "licence-ouverte"):
		return LicenseEtalab
	case strings.Contains(n, "open-government-licence"):
		return LicenseOGL
	default:
		return LicenseUnknown
	}
}

// DomainVerdict classifies an image host by copyright risk.
type DomainVerdict int

const (
	DomainSafe    DomainVerdict = iota // known free source (unsplash, wikimedia, etc.)
	DomainUnknown                      // no info
	DomainBlocked                      // stock site, reject entirely
)

func (v DomainVerdict) String() string {
	switch v {
	case DomainSafe:
		return "safe"
	case DomainBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// BlockedDomains are stock photo sites that enforce copyright and send invoices.
var BlockedDomains = []string{
	"shutterstock",
	"gettyimages",
	"istockphoto",
	"adobestock",
	"depositphotos",
	"dreamstime",
	"123rf",
	"alamy",
	"bigstockphoto",
	"stocksy",
	"pond5",
	"thinkstockphotos",
	"canstockphoto",
	"masterfile",
	"superstock",
	"agefotostock",
	"apimages",
	"reutersconnect",
	"afpforum",
	"epa-images",
	"corbisimages",
}

// BlockedURLPatterns are URL path segments that indicate stock photo pages.
var BlockedURLPatterns = []string{
	"/stock-photo",
	"/stock-image",
	"/editorial-image",
	"/premium-photo",
}

// SafeDomains are hosts of the licensed sources this package reads from.
var SafeDomains = []string{
	"upload.wikimedia.org",
	"commons.wikimedia",
	"images.unsplash.com",
	"images.pexels.com",
	"pixabay.com",
	"info.gouv.fr",
	"whitehouse.gov",
	"europa.eu",
}

// CheckDomain classifies an image by its URL and source page URL. Both are
// checked since an image on a neutral CDN may still come from a stock page.
func CheckDomain(imageURL, pageURL string) DomainVerdict {
	for _, u := range []string{imageURL, pageURL} {
		if isBlocked(u) {
			return DomainBlocked
		}
	}
	for _, u := range []string{imageURL, pageURL} {
		if isSafe(u) {
			return DomainSafe
		}
	}
	return DomainUnknown
}

func isBlocked(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Host)
	if host != "" {
		for _, d := range BlockedDomains {
			if strings.Contains(host, d) {
				return true
			}
		}
	}
	path := strings.ToLower(parsed.Path)
	for _, p := range BlockedURLPatterns {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

func isSafe(rawURL string) bool {
	host := extractHost(rawURL)
	if host == "" {
		return false
	}
	for _, d := range SafeDomains {
		if strings.Contains(host, d) {
			return true
		}
	}
	return false
}

func extractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}

// HostMatches reports whether rawURL's host is domain or one of its subdomains.
func HostMatches(rawURL, domain string) bool {
	host := extractHost(rawURL)
	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))
	host = strings.TrimPrefix(host, "www.")
	return host != "" && (host == domain || strings.HasSuffix(host, "."+domain))
}
