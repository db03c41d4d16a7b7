package model

import (
	"strings"
)

// SearchRequest describes one logical lead search. Exactly one of Location
// (single-area mode) or Region (state-wide mode) must be set.
type SearchRequest struct {
	BusinessType string `json:"business_type"`
	Location     string `json:"location,omitempty"`
	RadiusMeters int    `json:"radius_meters,omitempty"`
	Region       string `json:"region,omitempty"`
	MaxResults   int    `json:"max_results"`
	MaxAreas     int    `json:"max_areas,omitempty"`
}

// StateWide reports whether the request crawls many areas of a region.
func (r SearchRequest) StateWide() bool {
	return strings.TrimSpace(r.Region) != ""
}

// Validate checks the request shape. All failures wrap ErrInvalidRequest.
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.BusinessType) == "" {
		return invalidf("business type is required")
	}
	hasLocation := strings.TrimSpace(r.Location) != ""
	hasRegion := r.StateWide()
	switch {
	case !hasLocation && !hasRegion:
		return invalidf("a location or a region is required")
	case hasLocation && hasRegion:
		return invalidf("location and region are mutually exclusive")
	}
	if r.MaxResults <= 0 {
		return invalidf("max results must be positive, got %d", r.MaxResults)
	}
	if hasRegion && r.MaxAreas <= 0 {
		return invalidf("max areas must be positive, got %d", r.MaxAreas)
	}
	if hasLocation && r.RadiusMeters < 0 {
		return invalidf("radius must not be negative, got %d", r.RadiusMeters)
	}
	return nil
}

// AreaFailure records one area skipped during a state-wide crawl.
type AreaFailure struct {
	Area   string `json:"area"`
	Reason string `json:"reason"`
}

// SearchResult is the outcome of a search. AreasSearched and AreasPlanned are
// only populated in state-wide mode.
type SearchResult struct {
	Businesses    []BusinessRecord `json:"businesses"`
	Total         int              `json:"total"`
	AreasSearched int              `json:"areas_searched,omitempty"`
	AreasPlanned  int              `json:"areas_planned,omitempty"`
	Failed        []AreaFailure    `json:"failed_areas,omitempty"`
	Fingerprint   string           `json:"fingerprint"`
	FromCache     bool             `json:"from_cache"`
}
