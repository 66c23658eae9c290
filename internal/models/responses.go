package models

import (
	"github.com/complaintstack/cfpb-signals/internal/citations"
	"github.com/complaintstack/cfpb-signals/internal/signals"
)

// DataResponse wraps an upstream payload with its dashboard citations.
type DataResponse struct {
	Data      any                  `json:"data"`
	Citations []citations.Citation `json:"citations"`
}

// OverallSignalsParams echoes the query that produced an overall-signals response.
type OverallSignalsParams struct {
	Lens            string `json:"lens"`
	TrendInterval   string `json:"trend_interval"`
	TrendDepth      int    `json:"trend_depth"`
	DateReceivedMin string `json:"date_received_min,omitempty"`
	DateReceivedMax string `json:"date_received_max,omitempty"`
}

// OverallSignals carries the single overall series result.
type OverallSignals struct {
	Overall signals.Result `json:"overall"`
}

// OverallSignalsResponse is the overall spike-signal payload.
type OverallSignalsResponse struct {
	Params  OverallSignalsParams `json:"params"`
	Signals OverallSignals       `json:"signals"`
}

// GroupSpike is one ranked group row; the signal fields are flattened in.
type GroupSpike struct {
	Group    string  `json:"group"`
	DocCount float64 `json:"doc_count"`
	signals.Result
}

// GroupSpikesParams echoes the query that produced a group ranking.
type GroupSpikesParams struct {
	Group           string `json:"group"`
	Lens            string `json:"lens"`
	TrendInterval   string `json:"trend_interval"`
	TrendDepth      int    `json:"trend_depth"`
	SubLensDepth    int    `json:"sub_lens_depth"`
	TopN            int    `json:"top_n"`
	DateReceivedMin string `json:"date_received_min,omitempty"`
	DateReceivedMax string `json:"date_received_max,omitempty"`
}

// GroupSpikesResponse ranks grouping-dimension values by spike z-score.
type GroupSpikesResponse struct {
	Params  GroupSpikesParams `json:"params"`
	Results []GroupSpike      `json:"results"`
}

// CompanySpike is one ranked company row from the two-phase pipeline.
type CompanySpike struct {
	Company         string         `json:"company"`
	CompanyDocCount int            `json:"company_doc_count"`
	Computed        signals.Result `json:"computed"`
}

// CompanySpikeDateFilters echoes the date bounds applied during ranking.
type CompanySpikeDateFilters struct {
	DateReceivedMin string `json:"date_received_min,omitempty"`
	DateReceivedMax string `json:"date_received_max,omitempty"`
}

// CompanySpikesResponse ranks high-volume companies by spike z-score.
type CompanySpikesResponse struct {
	DateFilters CompanySpikeDateFilters `json:"date_filters"`
	Ranking     string                  `json:"ranking"`
	Results     []CompanySpike          `json:"results"`
}

// DeeplinkResponse carries a generated dashboard URL.
type DeeplinkResponse struct {
	URL string `json:"url"`
}
