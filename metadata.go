package openimage

import (
	"bytes"
	"strings"

	"github.com/bep/imagemeta"
)

// ImageMetadata holds the rights-related EXIF, IPTC and XMP fields of an image.
type ImageMetadata struct {
	EXIFCopyright   string
	EXIFArtist      string
	IPTCCopyright   string
	IPTCCredit      string
	IPTCSource      string
	IPTCByline      string
	XMPLicense      string
	XMPWebStatement string
	XMPUsageTerms   string
	XMPMarked       bool // xmpRights:Marked
	DCRights        string
	DCCreator       string
}

// Credit returns the best photo credit in the metadata: the IPTC credit line,
// then byline, then artist and creator fields.
func (m *ImageMetadata) Credit() string {
	if m == nil {
		return ""
	}
	return firstNonEmpty(m.IPTCCredit, m.IPTCByline, m.EXIFArtist, m.DCCreator, m.IPTCCopyright, m.EXIFCopyright)
}

// Rights returns the first non-empty ownership field.
func (m *ImageMetadata) Rights() string {
	if m == nil {
		return ""
	}
	return firstNonEmpty(m.EXIFCopyright, m.EXIFArtist, m.IPTCCopyright, m.IPTCCredit,
		m.IPTCSource, m.IPTCByline, m.DCRights, m.DCCreator)
}

// LicenseStatement returns the first non-empty license field.
func (m *ImageMetadata) LicenseStatement() string {
	if m == nil {
		return ""
	}
	return firstNonEmpty(m.XMPLicense, m.XMPWebStatement, m.XMPUsageTerms, m.DCRights)
}

func (m *ImageMetadata) ownershipFields() []string {
	return []string{m.EXIFCopyright, m.EXIFArtist, m.IPTCCopyright, m.IPTCCredit,
		m.IPTCSource, m.IPTCByline, m.DCRights, m.DCCreator}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// stockMetadataKeywords are substrings that indicate a stock-photo or wire
// agency when found (case-insensitive) in any ownership field.
var stockMetadataKeywords = []string{
	"shutterstock",
	"gettyimages",
	"getty images",
	"istockphoto",
	"istock",
	"alamy",
	"depositphotos",
	"dreamstime",
	"123rf",
	"adobestock",
	"adobe stock",
	"stocksy",
	"pond5",
	"masterfile",
	"superstock",
	"agefotostock",
	"age fotostock",
	"associated press",
	"reuters",
	"agence france-presse",
	"corbis",
}

// IsStockByMetadata reports whether the metadata names a known stock or wire agency.
func IsStockByMetadata(meta *ImageMetadata) bool {
	if meta == nil {
		return false
	}
	for _, f := range meta.ownershipFields() {
		if f == "" {
			continue
		}
		lower := strings.ToLower(f)
		for _, kw := range stockMetadataKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// IsCCByMetadata reports whether a license field carries a Creative Commons URL.
func IsCCByMetadata(meta *ImageMetadata) bool {
	if meta == nil {
		return false
	}
	for _, f := range []string{meta.XMPLicense, meta.XMPWebStatement, meta.XMPUsageTerms, meta.DCRights} {
		if IsCCLicenseURL(f) {
			return true
		}
	}
	return false
}

// metaFieldSetters maps source and tag name to the field the tag fills.
var metaFieldSetters = map[imagemeta.Source]map[string]func(*ImageMetadata, string){
	imagemeta.IPTC: {
		"CopyrightNotice": func(m *ImageMetadata, s string) { m.IPTCCopyright = s },
		"Credit":          func(m *ImageMetadata, s string) { m.IPTCCredit = s },
		"Byline":          func(m *ImageMetadata, s string) { m.IPTCByline = s },
		"Source":          func(m *ImageMetadata, s string) { m.IPTCSource = s },
	},
	imagemeta.EXIF: {
		"Copyright": func(m *ImageMetadata, s string) { m.EXIFCopyright = s },
		"Artist":    func(m *ImageMetadata, s string) { m.EXIFArtist = s },
	},
	imagemeta.XMP: {
		"WebStatement": func(m *ImageMetadata, s string) { m.XMPWebStatement = s },
		"UsageTerms":   func(m *ImageMetadata, s string) { m.XMPUsageTerms = s },
		"License":      func(m *ImageMetadata, s string) { m.XMPLicense = s },
		"Rights":       func(m *ImageMetadata, s string) { m.DCRights = s },
		"Creator":      func(m *ImageMetadata, s string) { m.DCCreator = s },
	},
}

// ExtractImageMetadata parses EXIF/IPTC/XMP rights fields from raw image bytes.
// Returns nil if nothing relevant was found or the data cannot be parsed.
func ExtractImageMetadata(data []byte) *ImageMetadata {
	if len(data) == 0 {
		return nil
	}

	meta := &ImageMetadata{}
	found := false

	_, err := imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF | imagemeta.IPTC | imagemeta.XMP,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			if ti.Source == imagemeta.XMP && ti.Tag == "Marked" {
				return true
			}
			_, ok := metaFieldSetters[ti.Source][ti.Tag]
			return ok
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			if ti.Source == imagemeta.XMP && ti.Tag == "Marked" {
				if b, ok := ti.Value.(bool); ok {
					meta.XMPMarked = b
					found = true
				}
				return nil
			}
			set, ok := metaFieldSetters[ti.Source][ti.Tag]
			if !ok {
				return nil
			}
			if s := tagValueString(ti.Value); s != "" {
				set(meta, s)
				found = true
			}
			return nil
		},
	})

	if err != nil || !found {
		return nil
	}
	return meta
}

// tagValueString extracts a string from a tag value.
// XMP values may be string or []string (from altList/seqList).
func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []string:
		if len(val) > 0 {
			return strings.TrimSpace(val[0])
		}
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
