// Package citations builds human-navigable dashboard deep links annotated by
// the context they were produced in (search, trends, geo, document).
package citations

import (
	"fmt"
	"strconv"
	"time"

	"github.com/complaintstack/cfpb-signals/internal/params"
)

// Citation types.
const (
	TypeSearchResults   = "search_results"
	TypeTrendsChart     = "trends_chart"
	TypeGeographicMap   = "geographic_map"
	TypeComplaintDetail = "complaint_detail"
)

// Context types.
const (
	ContextSearch   = "search"
	ContextTrends   = "trends"
	ContextGeo      = "geo"
	ContextDocument = "document"
)

// Citation is one dashboard deep link with a human-facing description.
type Citation struct {
	Type        string `json:"type"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// filterKeys is the allow-list of filter parameters carried into citation
// URLs; anything else in the caller's parameter set is ignored.
var filterKeys = map[string]struct{}{
	"search_term":             {},
	"date_received_min":       {},
	"date_received_max":       {},
	"company":                 {},
	"product":                 {},
	"issue":                   {},
	"state":                   {},
	"has_narrative":           {},
	"company_response":        {},
	"company_public_response": {},
	"consumer_disputed":       {},
	"tags":                    {},
	"submitted_via":           {},
	"timely":                  {},
	"zip_code":                {},
}

// Request carries everything the generator needs for one response.
type Request struct {
	ContextType string
	TotalHits   *int
	ComplaintID string
	Lens        string
	Filters     params.Params
	// Today pins the deep-link date defaults for deterministic tests.
	Today time.Time
}

// Generate returns the ordered citation list for a response context. Unknown
// context types yield an empty list.
func Generate(req Request) []Citation {
	filters := make(params.Params)
	for key, value := range req.Filters {
		if _, ok := filterKeys[key]; ok {
			filters[key] = value
		}
	}

	citations := make([]Citation, 0, 2)

	switch req.ContextType {
	case ContextSearch:
		desc := "View these matching complaint(s) on CFPB.gov"
		if req.TotalHits != nil {
			desc = fmt.Sprintf("View all %s matching complaint(s) on CFPB.gov", groupDigits(*req.TotalHits))
		}
		citations = append(citations, Citation{
			Type:        TypeSearchResults,
			URL:         params.BuildDeeplinkURL(filters, "List", req.Today),
			Description: desc,
		})

	case ContextTrends:
		lens := req.Lens
		if lens == "" {
			lens = "Overview"
		}
		trendParams := make(params.Params, len(filters)+3)
		for key, value := range filters {
			trendParams[key] = value
		}
		trendParams["lens"] = lens
		trendParams["chartType"] = "line"
		trendParams["trend_interval"] = "month"
		citations = append(citations, Citation{
			Type:        TypeTrendsChart,
			URL:         params.BuildDeeplinkURL(trendParams, "Trends", req.Today),
			Description: "Interactive trends chart on CFPB.gov",
		})

	case ContextGeo:
		citations = append(citations, Citation{
			Type:        TypeGeographicMap,
			URL:         params.BuildDeeplinkURL(filters, "Map", req.Today),
			Description: "Interactive geographic map on CFPB.gov",
		})

	case ContextDocument:
		if req.ComplaintID != "" {
			// The dashboard has no per-complaint URL; List view is the
			// closest navigable target.
			citations = append(citations, Citation{
				Type:        TypeComplaintDetail,
				URL:         params.UIBaseURL + "?tab=List",
				Description: fmt.Sprintf("Search for complaint %s on CFPB.gov", req.ComplaintID),
			})
		}
	}

	if (req.ContextType == ContextTrends || req.ContextType == ContextGeo) && len(filters) > 0 {
		citations = append(citations, Citation{
			Type:        TypeSearchResults,
			URL:         params.BuildDeeplinkURL(filters, "List", req.Today),
			Description: "Browse matching complaints on CFPB.gov",
		})
	}

	return citations
}

// groupDigits renders an integer with thousands separators (1234567 -> "1,234,567").
func groupDigits(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var out []byte
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
