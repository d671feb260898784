package openimage

import (
	"math"
	"testing"
)

func boolPtr(b bool) *bool { return &b }

func approxEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestQualityScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		rec    ImageRecord
		entity EntityType
		want   float64
	}{
		{
			name:   "bare unknown source and license",
			rec:    ImageRecord{Source: "Elsewhere", LicenseType: LicenseUnknown},
			entity: EntityThing,
			want:   1.0,
		},
		{
			name: "full wikimedia person record",
			rec: ImageRecord{
				Source: "Wikimedia Commons", LicenseType: LicenseCC0,
				Width: 2000, Height: 1500,
				Title: "Ada Lovelace", Description: "Portrait", Author: "Alfred Chalon",
				HasFace: boolPtr(true),
			},
			entity: EntityPerson,
			want:   0.8 + 0.5 + 0.3 + 0.2 + 0.15 + 0.15 + 0.5 + 1.0,
		},
		{
			name: "face bonus only for persons",
			rec: ImageRecord{
				Source: "Unsplash", LicenseType: LicenseUnsplash, HasFace: boolPtr(true),
			},
			entity: EntityPlace,
			want:   0.9 + 0.95,
		},
		{
			name: "has_face false gives no bonus",
			rec: ImageRecord{
				Source: "Pexels", LicenseType: LicensePexels, HasFace: boolPtr(false),
			},
			entity: EntityPerson,
			want:   0.85 + 0.95,
		},
		{
			name:   "below minimum size",
			rec:    ImageRecord{Source: "Pixabay", LicenseType: LicensePixabay, Width: 640, Height: 480},
			entity: EntityThing,
			want:   0.75 + 0.95,
		},
		{
			name:   "wide but short misses full HD",
			rec:    ImageRecord{Source: "Pixabay", LicenseType: LicenseCCBYSA, Width: 2400, Height: 900},
			entity: EntityThing,
			want:   0.75 + 0.5 + 0.85,
		},
		{
			name:   "missing height gives no size bonus",
			rec:    ImageRecord{Source: "Info.gouv.fr", LicenseType: LicenseEtalab, Width: 4000},
			entity: EntityThing,
			want:   0.95 + 0.95,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := QualityScore(tc.rec, tc.entity, DefaultMinImageWidth, DefaultMinImageHeight)
			if !approxEqual(got, tc.want) {
				t.Errorf("QualityScore() = %v, want %v", got, tc.want)
			}
			if got > MaxQualityScore {
				t.Errorf("QualityScore() = %v exceeds cap %v", got, MaxQualityScore)
			}
		})
	}
}

func TestQualityScore_FullHDNeedsMinimumSize(t *testing.T) {
	t.Parallel()

	rec := ImageRecord{Source: "Pixabay", LicenseType: LicensePixabay, Width: 2000, Height: 1200}
	if got, want := QualityScore(rec, EntityThing, 2500, 1500), 0.75+0.95; !approxEqual(got, want) {
		t.Errorf("below raised minimum: QualityScore() = %v, want %v", got, want)
	}
	if got, want := QualityScore(rec, EntityThing, 1600, 1000), 0.75+0.5+0.3+0.95; !approxEqual(got, want) {
		t.Errorf("above raised minimum: QualityScore() = %v, want %v", got, want)
	}
}

func TestQualityScore_Capped(t *testing.T) {
	t.Parallel()

	rec := ImageRecord{
		Source: "Info.gouv.fr", LicenseType: LicensePublicDomain,
		Width: 4000, Height: 3000, Title: "t", Description: "d", Author: "a",
		HasFace: boolPtr(true),
	}
	got := QualityScore(rec, EntityPerson, 1, 1)
	if got > MaxQualityScore {
		t.Errorf("QualityScore() = %v, want <= %v", got, MaxQualityScore)
	}
}

func TestScoreAndRank_StableAndTruncated(t *testing.T) {
	t.Parallel()

	in := []ImageRecord{
		{ImageURL: "a", Source: "Elsewhere", LicenseType: LicenseUnknown},
		{ImageURL: "b", Source: "Unsplash", LicenseType: LicenseUnsplash},
		{ImageURL: "c", Source: "Elsewhere", LicenseType: LicenseUnknown},
		{ImageURL: "d", Source: "Unsplash", LicenseType: LicenseUnsplash},
		{ImageURL: "e", Source: "Elsewhere", LicenseType: LicenseUnknown},
	}
	got := scoreAndRank(in, EntityThing, DefaultMinImageWidth, DefaultMinImageHeight, 4)

	wantOrder := []string{"b", "d", "a", "c"}
	if len(got) != len(wantOrder) {
		t.Fatalf("len = %d, want %d", len(got), len(wantOrder))
	}
	for i, w := range wantOrder {
		if got[i].ImageURL != w {
			t.Errorf("got[%d] = %q, want %q", i, got[i].ImageURL, w)
		}
		if got[i].QualityScore == nil {
			t.Errorf("got[%d].QualityScore is nil", i)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Score() < got[i].Score() {
			t.Errorf("scores not descending at %d: %v < %v", i, got[i-1].Score(), got[i].Score())
		}
	}
}
