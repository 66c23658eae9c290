// Package models holds the request and response shapes shared by the service
// and API layers.
package models

import "github.com/complaintstack/cfpb-signals/internal/params"

// SearchRequest represents one upstream search call with pagination controls.
type SearchRequest struct {
	Size        int
	From        int
	Sort        string
	SearchAfter string
	NoHighlight bool
	Filters     params.Params
}

// TrendsRequest represents one upstream trends aggregation call.
type TrendsRequest struct {
	Lens         string
	Interval     string
	TrendDepth   int
	SubLens      string
	SubLensDepth int
	Focus        string
	Filters      params.Params
}

// GeoRequest represents one per-state aggregation call.
type GeoRequest struct {
	Filters params.Params
}

// SuggestRequest fetches autocomplete values for a filter field.
type SuggestRequest struct {
	Field string
	Text  string
	Size  int
}

// OverallSignalsRequest computes spike signals over the overall trend series.
type OverallSignalsRequest struct {
	Lens            string
	Interval        string
	TrendDepth      int
	BaselineWindow  int
	MinBaselineMean float64
	Filters         params.Params
}

// GroupSpikesRequest ranks values of a grouping dimension by latest-bucket spike.
type GroupSpikesRequest struct {
	Group           string
	Lens            string
	Interval        string
	TrendDepth      int
	SubLensDepth    int
	TopN            int
	BaselineWindow  int
	MinBaselineMean float64
	Filters         params.Params
}

// CompanySpikesRequest drives the two-phase search-then-trends company pipeline.
type CompanySpikesRequest struct {
	Lens            string
	Interval        string
	TrendDepth      int
	TopN            int
	BaselineWindow  int
	MinBaselineMean float64
	Filters         params.Params
}

// DeeplinkRequest builds a dashboard URL for a filter state.
type DeeplinkRequest struct {
	Tab    string
	Params params.Params
}
