package openimage

import (
	"testing"
)

func TestIsStockByMetadata(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		meta *ImageMetadata
		want bool
	}{
		{name: "nil metadata", meta: nil, want: false},
		{name: "empty metadata", meta: &ImageMetadata{}, want: false},
		{name: "shutterstock in IPTC copyright", meta: &ImageMetadata{IPTCCopyright: "Copyright Shutterstock Inc."}, want: true},
		{name: "getty in IPTC credit", meta: &ImageMetadata{IPTCCredit: "Getty Images"}, want: true},
		{name: "case insensitive", meta: &ImageMetadata{IPTCCopyright: "SHUTTERSTOCK, INC."}, want: true},
		{name: "wire agency in byline", meta: &ImageMetadata{IPTCByline: "Associated Press"}, want: true},
		{name: "reuters in source", meta: &ImageMetadata{IPTCSource: "REUTERS"}, want: true},
		{name: "corbis in DC rights", meta: &ImageMetadata{DCRights: "Corbis Historical"}, want: true},
		{
			name: "government photographer",
			meta: &ImageMetadata{
				IPTCCopyright: "Public domain",
				IPTCByline:    "Official White House Photo by Adam Schultz",
				EXIFArtist:    "Adam Schultz",
			},
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsStockByMetadata(tc.meta); got != tc.want {
				t.Errorf("IsStockByMetadata() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsCCByMetadata(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		meta *ImageMetadata
		want bool
	}{
		{name: "nil metadata", meta: nil, want: false},
		{name: "CC BY 4.0 in XMP license", meta: &ImageMetadata{XMPLicense: "https://creativecommons.org/licenses/by/4.0/"}, want: true},
		{name: "CC0 in web statement", meta: &ImageMetadata{XMPWebStatement: "https://creativecommons.org/publicdomain/zero/1.0/"}, want: true},
		{name: "CC URL inside free text", meta: &ImageMetadata{XMPUsageTerms: "Licensed under https://creativecommons.org/licenses/by-sa/4.0/"}, want: true},
		{name: "non-CC URL", meta: &ImageMetadata{XMPLicense: "https://example.com/license"}, want: false},
		{name: "CC homepage only", meta: &ImageMetadata{XMPLicense: "https://creativecommons.org/about"}, want: false},
		{name: "ownership fields only", meta: &ImageMetadata{IPTCCopyright: "Some photographer"}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsCCByMetadata(tc.meta); got != tc.want {
				t.Errorf("IsCCByMetadata() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestImageMetadataCredit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		meta *ImageMetadata
		want string
	}{
		{name: "nil", meta: nil, want: ""},
		{name: "credit wins", meta: &ImageMetadata{IPTCCredit: "Elysée", IPTCByline: "Jane Doe"}, want: "Elysée"},
		{name: "byline fallback", meta: &ImageMetadata{IPTCByline: "Jane Doe", EXIFArtist: "JD"}, want: "Jane Doe"},
		{name: "artist fallback", meta: &ImageMetadata{EXIFArtist: "  John Roe "}, want: "John Roe"},
		{name: "copyright last", meta: &ImageMetadata{EXIFCopyright: "(c) Jane"}, want: "(c) Jane"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.meta.Credit(); got != tc.want {
				t.Errorf("Credit() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractImageMetadata_NilAndEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "nil data", data: nil},
		{name: "empty data", data: []byte{}},
		{name: "garbage data", data: []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x11, 0x22, 0x33}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractImageMetadata(tc.data); got != nil {
				t.Errorf("ExtractImageMetadata(%v) = %+v, want nil", tc.data, got)
			}
		})
	}
}
