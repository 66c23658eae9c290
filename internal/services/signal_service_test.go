package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/complaintstack/cfpb-signals/internal/config"
	"github.com/complaintstack/cfpb-signals/internal/models"
	"github.com/complaintstack/cfpb-signals/internal/params"
	"github.com/complaintstack/cfpb-signals/internal/repo"
	"github.com/complaintstack/cfpb-signals/internal/utils"
)

var fixedNow = time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)

type stubClient struct {
	searchCalls  []repo.SearchOptions
	trendsCalls  []repo.TrendsOptions
	searchReply  any
	trendsReply  func(opts repo.TrendsOptions) any
	geoReply     any
	suggestReply any
	docReply     any
	err          error
}

func (s *stubClient) Search(_ context.Context, opts repo.SearchOptions) (any, error) {
	s.searchCalls = append(s.searchCalls, opts)
	return s.searchReply, s.err
}

func (s *stubClient) Trends(_ context.Context, opts repo.TrendsOptions) (any, error) {
	s.trendsCalls = append(s.trendsCalls, opts)
	if s.err != nil {
		return nil, s.err
	}
	if s.trendsReply != nil {
		return s.trendsReply(opts), nil
	}
	return nil, nil
}

func (s *stubClient) GeoStates(context.Context, params.Params) (any, error) {
	return s.geoReply, s.err
}

func (s *stubClient) Suggest(context.Context, string, string, int) (any, error) {
	return s.suggestReply, s.err
}

func (s *stubClient) Document(context.Context, string) (any, error) {
	return s.docReply, s.err
}

func newTestService(client *stubClient) *SignalService {
	svc := NewSignalService(utils.NewLogger("error", false), client, config.SignalsConfig{})
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func monthBuckets(counts ...float64) []any {
	buckets := make([]any, 0, len(counts))
	for i, c := range counts {
		month := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0)
		buckets = append(buckets, map[string]any{
			"key":           float64(month.UnixMilli()),
			"key_as_string": month.Format("2006-01-02") + "T00:00:00.000Z",
			"doc_count":     c,
		})
	}
	return buckets
}

func overallTrendsPayload(counts ...float64) map[string]any {
	return map[string]any{
		"aggregations": map[string]any{
			"dateRangeArea": map[string]any{
				"dateRangeArea": map[string]any{"buckets": monthBuckets(counts...)},
			},
		},
	}
}

func TestSearchAttachesCitations(t *testing.T) {
	client := &stubClient{searchReply: map[string]any{
		"hits": map[string]any{"total": float64(4200)},
	}}
	svc := newTestService(client)

	resp, err := svc.Search(context.Background(), models.SearchRequest{
		Size:    10,
		Sort:    "created_date_desc",
		Filters: params.Params{"state": []string{"CA"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Citations) != 1 {
		t.Fatalf("expected one citation, got %d", len(resp.Citations))
	}
	if !strings.Contains(resp.Citations[0].Description, "4,200") {
		t.Fatalf("total hits missing from citation: %s", resp.Citations[0].Description)
	}
	if len(client.searchCalls) != 1 || client.searchCalls[0].Size != 10 {
		t.Fatalf("unexpected upstream call: %+v", client.searchCalls)
	}
}

func TestTrendsAppliesDefaults(t *testing.T) {
	client := &stubClient{}
	svc := newTestService(client)

	if _, err := svc.Trends(context.Background(), models.TrendsRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call := client.trendsCalls[0]
	if call.Lens != "overview" || call.Interval != "month" || call.TrendDepth != 5 {
		t.Fatalf("defaults not applied: %+v", call)
	}
}

func TestOverallSignalsDropsCurrentMonth(t *testing.T) {
	// Twelve months ending at the fixed "now" (2025-06); the June bucket is a
	// partial month and must not count as the spike being measured.
	client := &stubClient{trendsReply: func(repo.TrendsOptions) any {
		return overallTrendsPayload(95, 105, 100, 102, 98, 101, 99, 100, 103, 97, 100, 300, 999)
	}}
	svc := newTestService(client)

	resp, err := svc.OverallSignals(context.Background(), models.OverallSignalsRequest{
		Filters: params.Params{"date_received_min": "2024-06-01"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	call := client.trendsCalls[0]
	if call.TrendDepth != 24 {
		t.Fatalf("default overall depth not applied: %+v", call)
	}
	if resp.Params.Lens != "overview" || resp.Params.TrendInterval != "month" {
		t.Fatalf("params not echoed: %+v", resp.Params)
	}
	if resp.Params.DateReceivedMin != "2024-06-01" {
		t.Fatalf("date filter not echoed: %+v", resp.Params)
	}

	overall := resp.Signals.Overall
	if overall.InsufficientData() {
		t.Fatalf("unexpected sentinel: %+v", overall)
	}
	// The 999-count partial bucket for 2025-06 is dropped; the last bucket is
	// the 300-count May spike.
	if overall.LastBucket == nil || overall.LastBucket.Count != 300 {
		t.Fatalf("current month not dropped: %+v", overall.LastBucket)
	}
	if z, ok := overall.ZScore(); !ok || z <= 0 {
		t.Fatalf("expected positive z, got %v %v", z, ok)
	}
}

func groupTrendsPayload(group string, series map[string][]float64) map[string]any {
	buckets := make([]any, 0, len(series))
	for name, counts := range series {
		buckets = append(buckets, map[string]any{
			"key":       name,
			"doc_count": 100.0,
			"trend_period": map[string]any{
				"buckets": monthBuckets(counts...),
			},
		})
	}
	return map[string]any{
		"aggregations": map[string]any{
			group: map[string]any{
				group: map[string]any{"buckets": buckets},
			},
		},
	}
}

func TestRankGroupSpikes(t *testing.T) {
	client := &stubClient{trendsReply: func(repo.TrendsOptions) any {
		return groupTrendsPayload("product", map[string][]float64{
			"Spiking":  {100, 101, 99, 100, 101, 500},
			"Flat":     {100, 101, 99, 100, 101, 100},
			"TooShort": {50},
		})
	}}
	svc := newTestService(client)

	resp, err := svc.RankGroupSpikes(context.Background(), models.GroupSpikesRequest{Group: "product"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	call := client.trendsCalls[0]
	if call.SubLens != "product" || call.SubLensDepth != 10 || call.TrendDepth != 12 {
		t.Fatalf("group defaults not applied: %+v", call)
	}
	if resp.Params.TopN != 10 {
		t.Fatalf("top_n default not echoed: %+v", resp.Params)
	}

	if len(resp.Results) != 2 {
		t.Fatalf("short series should be skipped: %+v", resp.Results)
	}
	if resp.Results[0].Group != "Spiking" {
		t.Fatalf("spiking group should rank first: %+v", resp.Results)
	}
}

func TestRankGroupSpikesRequiresGroup(t *testing.T) {
	svc := newTestService(&stubClient{})
	if _, err := svc.RankGroupSpikes(context.Background(), models.GroupSpikesRequest{}); err == nil {
		t.Fatal("expected error for missing group")
	}
}

func TestRankGroupSpikesTruncatesTopN(t *testing.T) {
	client := &stubClient{trendsReply: func(repo.TrendsOptions) any {
		return groupTrendsPayload("issue", map[string][]float64{
			"A": {100, 101, 99, 100, 101, 200},
			"B": {100, 101, 99, 100, 101, 300},
			"C": {100, 101, 99, 100, 101, 400},
		})
	}}
	svc := newTestService(client)

	resp, err := svc.RankGroupSpikes(context.Background(), models.GroupSpikesRequest{Group: "issue", TopN: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(resp.Results))
	}
	if resp.Results[0].Group != "C" || resp.Results[1].Group != "B" {
		t.Fatalf("unexpected ranking: %+v", resp.Results)
	}
}

func companySearchPayload(companies map[string]float64) map[string]any {
	buckets := make([]any, 0, len(companies))
	for name, count := range companies {
		buckets = append(buckets, map[string]any{"key": name, "doc_count": count})
	}
	return map[string]any{
		"hits": map[string]any{"total": float64(1000)},
		"aggregations": map[string]any{
			"company": map[string]any{
				"company": map[string]any{"buckets": buckets},
			},
		},
	}
}

func TestRankCompanySpikes(t *testing.T) {
	client := &stubClient{
		searchReply: companySearchPayload(map[string]float64{
			"ACME BANK":   820,
			"ZEN LENDING": 640,
		}),
		trendsReply: func(opts repo.TrendsOptions) any {
			company, _ := opts.Filters["company"].([]string)
			if len(company) == 1 && company[0] == "ACME BANK" {
				return overallTrendsPayload(100, 101, 99, 100, 101, 400)
			}
			return overallTrendsPayload(100, 100, 100, 100, 100, 100)
		},
	}
	svc := newTestService(client)

	resp, err := svc.RankCompanySpikes(context.Background(), models.CompanySpikesRequest{
		Filters: params.Params{
			"company":           []string{"should be stripped"},
			"date_received_min": "2024-01-01",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seed := client.searchCalls[0]
	if seed.Size != 0 || seed.Sort != "created_date_desc" || !seed.NoHighlight {
		t.Fatalf("seed search options wrong: %+v", seed)
	}
	if _, present := seed.Filters["company"]; present {
		t.Fatalf("company filter leaked into seed search: %+v", seed.Filters)
	}

	if len(client.trendsCalls) != 2 {
		t.Fatalf("expected one trends call per seeded company, got %d", len(client.trendsCalls))
	}

	if resp.Ranking != "last bucket vs baseline z-score" {
		t.Fatalf("unexpected ranking description: %q", resp.Ranking)
	}
	if resp.DateFilters.DateReceivedMin != "2024-01-01" {
		t.Fatalf("date filters not echoed: %+v", resp.DateFilters)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected both companies in results: %+v", resp.Results)
	}
	if resp.Results[0].Company != "ACME BANK" {
		t.Fatalf("spiking company should rank first: %+v", resp.Results)
	}
	// The flat company has a zero-variance baseline, so its z is nil, but it
	// stays in the output rather than being filtered.
	if _, ok := resp.Results[1].Computed.ZScore(); ok {
		t.Fatalf("flat series should have no z: %+v", resp.Results[1].Computed)
	}
}

func TestDeeplink(t *testing.T) {
	svc := newTestService(&stubClient{})
	resp := svc.Deeplink(models.DeeplinkRequest{
		Tab:    "List",
		Params: params.Params{"state": "CA"},
	})
	if !strings.Contains(resp.URL, "tab=List") || !strings.Contains(resp.URL, "state=CA") {
		t.Fatalf("unexpected deeplink: %s", resp.URL)
	}
}
