package openimage

import (
	"encoding/base64"
	"html"
	"net/url"
	"regexp"
	"strings"
)

var ogImageRe = regexp.MustCompile(
	`(?i)<meta\s+[^>]*property=["']og:image["'][^>]*content=["']([^"']+)["']|` +
		`<meta\s+[^>]*content=["']([^"']+)["'][^>]*property=["']og:image["']`,
)

// ExtractOGImageURL pulls the og:image URL from raw HTML, resolved against
// pageURL when it is relative. Returns "" if not found.
func ExtractOGImageURL(pageHTML, pageURL string) string {
	m := ogImageRe.FindStringSubmatch(pageHTML)
	if m == nil {
		return ""
	}
	img := m[1]
	if img == "" {
		img = m[2]
	}
	if img == "" {
		return ""
	}
	return ResolveURL(pageURL, html.UnescapeString(img))
}

// ResolveURL resolves ref against base. ref is returned unchanged when either
// fails to parse.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if base == "" {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// EncodeDataURL creates a data: URI from bytes and MIME type.
func EncodeDataURL(data []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// truncateRunes shortens s to at most n runes.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// TruncateRunes is exported for source adapters.
func TruncateRunes(s string, n int) string { return truncateRunes(strings.TrimSpace(s), n) }

// siteChromePatterns mark page furniture rather than photographs: logos,
// share cards, and the Marianne emblem on French government pages.
var siteChromePatterns = []string{
	"favicon", "logo", "icon", "banner", "sprite", "badge", "button",
	"widget", "avatar", "placeholder", "default-share", "social-card",
	"og-default", "pictogram", "marianne",
}

// IsSiteChrome reports whether the path of rawURL names a logo, icon or
// share card. Only the path is checked.
func IsSiteChrome(rawURL string) bool {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}
	p = strings.ToLower(p)
	for _, pat := range siteChromePatterns {
		if strings.Contains(p, pat) {
			return true
		}
	}
	return false
}
