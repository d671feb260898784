package openimage

import (
	"errors"
	"fmt"
	"strings"
)

// Caller contract violations.
var (
	ErrEmptyQuery        = errors.New("openimage: query is required")
	ErrInvalidEntityType = errors.New("openimage: invalid entity type")
	ErrInvalidMaxResults = errors.New("openimage: max results out of range")
)

// Request bounds applied by front ends.
const (
	DefaultRequestMaxResults = 20
	MaxRequestResults        = 100
)

// SearchRequest is a search as received from a front end.
type SearchRequest struct {
	Query       string `json:"query" query:"query"`
	EntityType  string `json:"entity_type" query:"entity_type"`
	MaxResults  int    `json:"max_results" query:"max_results"`
	RequireFace *bool  `json:"require_face" query:"require_face"`
}

// Normalize fills defaults (person, 20 results, face required) and validates
// the request.
func (r *SearchRequest) Normalize() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return ErrEmptyQuery
	}

	if r.EntityType == "" {
		r.EntityType = string(EntityPerson)
	}
	e, ok := ParseEntityType(r.EntityType)
	if !ok {
		return fmt.Errorf("%w: %q (want person, place, thing or other)", ErrInvalidEntityType, r.EntityType)
	}
	r.EntityType = string(e)

	if r.MaxResults == 0 {
		r.MaxResults = DefaultRequestMaxResults
	}
	if r.MaxResults < 1 || r.MaxResults > MaxRequestResults {
		return fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidMaxResults, r.MaxResults, MaxRequestResults)
	}

	if r.RequireFace == nil {
		t := true
		r.RequireFace = &t
	}
	return nil
}

// Entity returns the normalized entity type.
func (r *SearchRequest) Entity() EntityType { return EntityType(r.EntityType) }

// FaceRequired reports whether the request asks for face filtering.
func (r *SearchRequest) FaceRequired() bool { return r.RequireFace == nil || *r.RequireFace }
