package openimage

import (
	"regexp"
	"strings"
	"sync"
)

// AttributionSignal is a single evidence point about who owns an image.
type AttributionSignal struct {
	Source  string        // "domain", "credit_denylist", "metadata_stock", "metadata_cc"
	Detail  string        // human-readable detail
	Verdict DomainVerdict // what this signal indicates
}

// AttributionAssessment combines signals into a final verdict.
type AttributionAssessment struct {
	Verdict DomainVerdict       // Blocked > Safe > Unknown
	Signals []AttributionSignal // never nil, may be empty
}

// AssessAttribution decides whether an image found on a public page may be
// reused. It combines the domain check, the photo credit text matched against
// denylist, and stock or Creative Commons fingerprints in embedded metadata.
// Blocked signals take precedence over Safe.
func AssessAttribution(imageURL, pageURL, credit string, meta *ImageMetadata, denylist []string) AttributionAssessment {
	signals := make([]AttributionSignal, 0, 4) //nolint:mnd // one per signal kind

	switch v := CheckDomain(imageURL, pageURL); v {
	case DomainBlocked:
		signals = append(signals, AttributionSignal{Source: "domain", Detail: "stock host: " + imageURL, Verdict: v})
	case DomainSafe:
		signals = append(signals, AttributionSignal{Source: "domain", Detail: "known host: " + imageURL, Verdict: v})
	}

	if agency := MatchAgency(credit, denylist); agency != "" {
		signals = append(signals, AttributionSignal{
			Source:  "credit_denylist",
			Detail:  "credit names " + agency + ": " + credit,
			Verdict: DomainBlocked,
		})
	}

	if IsStockByMetadata(meta) {
		signals = append(signals, AttributionSignal{
			Source:  "metadata_stock",
			Detail:  "stock agency in metadata: " + meta.Rights(),
			Verdict: DomainBlocked,
		})
	}

	if IsCCByMetadata(meta) {
		signals = append(signals, AttributionSignal{
			Source:  "metadata_cc",
			Detail:  "Creative Commons license in metadata: " + meta.LicenseStatement(),
			Verdict: DomainSafe,
		})
	}

	final := DomainUnknown
	for _, sig := range signals {
		if sig.Verdict == DomainBlocked {
			final = DomainBlocked
			break
		}
		if sig.Verdict == DomainSafe {
			final = DomainSafe
		}
	}

	return AttributionAssessment{Verdict: final, Signals: signals}
}

// agencyPatterns caches compiled acronym patterns per agency name.
var agencyPatterns sync.Map // string -> *regexp.Regexp

// maxAcronymLen is the longest agency name matched as an acronym.
const maxAcronymLen = 3

// MatchAgency returns the first denylist entry found in credit, or "".
// Names are matched as case-insensitive substrings, so "getty" matches
// "© GettyImages". Acronyms of up to three letters must stand alone or be
// glued to further capitals: "ap" matches "(AP Photo)" and "APTN" but not
// "photograph".
func MatchAgency(credit string, denylist []string) string {
	if credit == "" {
		return ""
	}
	lower := strings.ToLower(credit)
	for _, agency := range denylist {
		name := strings.ToLower(strings.TrimSpace(agency))
		if name == "" {
			continue
		}
		if len(name) > maxAcronymLen {
			if strings.Contains(lower, name) {
				return agency
			}
			continue
		}
		if acronymPattern(name).MatchString(credit) {
			return agency
		}
	}
	return ""
}

func acronymPattern(name string) *regexp.Regexp {
	if re, ok := agencyPatterns.Load(name); ok {
		return re.(*regexp.Regexp)
	}
	q := regexp.QuoteMeta(name)
	re, _ := agencyPatterns.LoadOrStore(name, regexp.MustCompile(
		`(?i:\b`+q+`\b)|\b`+regexp.QuoteMeta(strings.ToUpper(name))+`[A-Z]`))
	return re.(*regexp.Regexp)
}
