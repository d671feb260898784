package openimage

import "sort"

// MaxQualityScore caps every quality score.
const MaxQualityScore = 5.0

// Scoring weights.
const (
	defaultBaseScore    = 0.5
	defaultLicenseScore = 0.5
	minSizeBonus        = 0.5
	fullHDBonus         = 0.3
	fullHDWidth         = 1920
	fullHDHeight        = 1080
	titleBonus          = 0.2
	descriptionBonus    = 0.15
	authorBonus         = 0.15
	faceBonus           = 0.5
)

// SourceBaseScores is the base score per source name.
var SourceBaseScores = map[string]float64{
	"Wikimedia Commons":   0.8,
	"Unsplash":            0.9,
	"Pexels":              0.85,
	"Pixabay":             0.75,
	"Info.gouv.fr":        0.95,
	"WhiteHouse.gov":      0.95,
	"European Commission": 0.95,
}

// LicenseScores is the license component of the quality score.
var LicenseScores = map[LicenseKind]float64{
	LicensePublicDomain: 1.0,
	LicenseCC0:          1.0,
	LicenseEtalab:       0.95,
	LicenseOGL:          0.95,
	LicenseUnsplash:     0.95,
	LicensePexels:       0.95,
	LicensePixabay:      0.95,
	LicenseCCBY:         0.9,
	LicenseCCBYSA:       0.85,
}

// QualityScore computes the additive quality score of rec for the given
// minimum dimensions and entity type.
func QualityScore(rec ImageRecord, entityType EntityType, minWidth, minHeight int) float64 {
	score, ok := SourceBaseScores[rec.Source]
	if !ok {
		score = defaultBaseScore
	}

	if rec.Width > 0 && rec.Height > 0 {
		if rec.Width >= minWidth && rec.Height >= minHeight {
			score += minSizeBonus
			if rec.Width >= fullHDWidth && rec.Height >= fullHDHeight {
				score += fullHDBonus
			}
		}
	}

	if rec.Title != "" {
		score += titleBonus
	}
	if rec.Description != "" {
		score += descriptionBonus
	}
	if rec.Author != "" {
		score += authorBonus
	}

	if entityType == EntityPerson && rec.HasFace != nil && *rec.HasFace {
		score += faceBonus
	}

	if ls, ok := LicenseScores[rec.LicenseType]; ok {
		score += ls
	} else {
		score += defaultLicenseScore
	}

	return min(score, MaxQualityScore)
}

// scoreAndRank assigns quality scores, sorts by score descending keeping
// merge order for ties, and truncates to maxResults.
func scoreAndRank(records []ImageRecord, entityType EntityType, minWidth, minHeight, maxResults int) []ImageRecord {
	for i := range records {
		s := QualityScore(records[i], entityType, minWidth, minHeight)
		records[i].QualityScore = &s
	}
	sort.SliceStable(records, func(i, j int) bool {
		return *records[i].QualityScore > *records[j].QualityScore
	})
	if len(records) > maxResults {
		records = records[:maxResults]
	}
	return records
}
