package openimage

import (
	"strings"
	"testing"
)

func TestExtractOGImageURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		html    string
		pageURL string
		want    string
	}{
		{
			name: "property-first order",
			html: `<meta property="og:image" content="https://example.com/photo.jpg"/>`,
			want: "https://example.com/photo.jpg",
		},
		{
			name: "content-first order",
			html: `<meta content="https://example.com/other.jpg" property="og:image"/>`,
			want: "https://example.com/other.jpg",
		},
		{
			name: "HTML entities decoded",
			html: `<meta property="og:image" content="https://example.com/photo.jpg?a=1&amp;b=2"/>`,
			want: "https://example.com/photo.jpg?a=1&b=2",
		},
		{
			name:    "relative URL resolved",
			html:    `<meta property="og:image" content="/files/photo.jpg"/>`,
			pageURL: "https://www.info.gouv.fr/actualite/visite",
			want:    "https://www.info.gouv.fr/files/photo.jpg",
		},
		{name: "not found", html: `<title>No OG</title>`, want: ""},
		{name: "empty", html: "", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractOGImageURL(tc.html, tc.pageURL); got != tc.want {
				t.Errorf("ExtractOGImageURL(...) = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsSiteChrome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/images/logo.png", true},
		{"https://example.com/favicon.ico", true},
		{"https://www.info.gouv.fr/themes/marianne.svg", true},
		{"https://www.whitehouse.gov/wp-content/uploads/Social-Card.jpg", true},
		{"https://example.com/photos/city-view.jpg", false},
		{"https://logos.example.net/photos/summit-2024.jpg", false},
	}

	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			t.Parallel()
			if got := IsSiteChrome(tc.url); got != tc.want {
				t.Errorf("IsSiteChrome(%q) = %v, want %v", tc.url, got, tc.want)
			}
		})
	}
}

func TestEncodeDataURL(t *testing.T) {
	t.Parallel()

	got := EncodeDataURL([]byte("hello world"), "image/jpeg")
	want := "data:image/jpeg;base64,aGVsbG8gd29ybGQ="
	if got != want {
		t.Errorf("EncodeDataURL() = %q, want %q", got, want)
	}
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	if got := TruncateRunes("  Émile Zola  ", 5); got != "Émile" {
		t.Errorf("TruncateRunes() = %q, want %q", got, "Émile")
	}
	long := strings.Repeat("é", 300)
	if got := []rune(TruncateRunes(long, 200)); len(got) != 200 {
		t.Errorf("len(TruncateRunes()) = %d, want 200", len(got))
	}
}
