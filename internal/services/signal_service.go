// Package services orchestrates upstream fetches, signal computation and
// citation generation behind the HTTP API.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/complaintstack/cfpb-signals/internal/citations"
	"github.com/complaintstack/cfpb-signals/internal/config"
	"github.com/complaintstack/cfpb-signals/internal/metrics"
	"github.com/complaintstack/cfpb-signals/internal/models"
	"github.com/complaintstack/cfpb-signals/internal/params"
	"github.com/complaintstack/cfpb-signals/internal/repo"
	"github.com/complaintstack/cfpb-signals/internal/signals"
	"github.com/complaintstack/cfpb-signals/internal/utils"
)

// UpstreamClient defines the complaint-search API operations the service needs.
type UpstreamClient interface {
	Search(ctx context.Context, opts repo.SearchOptions) (any, error)
	Trends(ctx context.Context, opts repo.TrendsOptions) (any, error)
	GeoStates(ctx context.Context, filters params.Params) (any, error)
	Suggest(ctx context.Context, field, text string, size int) (any, error)
	Document(ctx context.Context, complaintID string) (any, error)
}

// SignalService is the facade behind the HTTP handlers. All operations are
// stateless; the only mutable state is the latency tracker.
type SignalService struct {
	logger    *slog.Logger
	client    UpstreamClient
	defaults  config.SignalsConfig
	latencies *utils.LatencyTracker
	now       func() time.Time
}

// NewSignalService constructs the service facade.
func NewSignalService(logger *slog.Logger, client UpstreamClient, defaults config.SignalsConfig) *SignalService {
	if logger == nil {
		logger = slog.Default()
	}
	if defaults.OverallTrendDepth <= 0 {
		defaults.OverallTrendDepth = 24
	}
	if defaults.GroupTrendDepth <= 0 {
		defaults.GroupTrendDepth = 12
	}
	if defaults.BaselineWindow <= 0 {
		defaults.BaselineWindow = signals.DefaultBaselineWindow
	}
	if defaults.MinBaselineMean <= 0 {
		defaults.MinBaselineMean = signals.DefaultMinBaselineMean
	}
	if defaults.CompanyMinBaseline <= 0 {
		defaults.CompanyMinBaseline = 25.0
	}
	if defaults.TopN <= 0 {
		defaults.TopN = 10
	}
	if defaults.SubLensDepth <= 0 {
		defaults.SubLensDepth = 10
	}
	return &SignalService{
		logger:    logger,
		client:    client,
		defaults:  defaults,
		latencies: utils.NewLatencyTracker(1024),
		now:       time.Now,
	}
}

// Search proxies a paginated search and attaches dashboard citations.
func (s *SignalService) Search(ctx context.Context, req models.SearchRequest) (models.DataResponse, error) {
	if s.client == nil {
		return models.DataResponse{}, fmt.Errorf("upstream client not configured")
	}

	start := s.now()
	payload, err := s.client.Search(ctx, repo.SearchOptions{
		Size:        req.Size,
		From:        req.From,
		Sort:        req.Sort,
		SearchAfter: req.SearchAfter,
		NoHighlight: req.NoHighlight,
		Filters:     req.Filters,
	})
	s.observe("search", start, err)
	if err != nil {
		s.logger.Error("upstream search failed", slog.Any("error", err))
		return models.DataResponse{}, utils.NewAppError("search", "upstream search failed", err)
	}

	return models.DataResponse{
		Data: payload,
		Citations: citations.Generate(citations.Request{
			ContextType: citations.ContextSearch,
			TotalHits:   totalHits(payload),
			Filters:     req.Filters,
			Today:       s.now(),
		}),
	}, nil
}

// Trends proxies a trends aggregation and attaches dashboard citations.
func (s *SignalService) Trends(ctx context.Context, req models.TrendsRequest) (models.DataResponse, error) {
	if s.client == nil {
		return models.DataResponse{}, fmt.Errorf("upstream client not configured")
	}

	lens := req.Lens
	if lens == "" {
		lens = "overview"
	}
	interval := req.Interval
	if interval == "" {
		interval = "month"
	}
	depth := req.TrendDepth
	if depth <= 0 {
		depth = 5
	}
	subDepth := req.SubLensDepth
	if req.SubLens != "" && subDepth <= 0 {
		subDepth = 5
	}

	start := s.now()
	payload, err := s.client.Trends(ctx, repo.TrendsOptions{
		Lens:         lens,
		Interval:     interval,
		TrendDepth:   depth,
		SubLens:      req.SubLens,
		SubLensDepth: subDepth,
		Focus:        req.Focus,
		Filters:      req.Filters,
	})
	s.observe("trends", start, err)
	if err != nil {
		s.logger.Error("upstream trends failed", slog.Any("error", err))
		return models.DataResponse{}, utils.NewAppError("trends", "upstream trends failed", err)
	}

	return models.DataResponse{
		Data: payload,
		Citations: citations.Generate(citations.Request{
			ContextType: citations.ContextTrends,
			Lens:        lens,
			Filters:     req.Filters,
			Today:       s.now(),
		}),
	}, nil
}

// GeoStates proxies the per-state aggregation and attaches dashboard citations.
func (s *SignalService) GeoStates(ctx context.Context, req models.GeoRequest) (models.DataResponse, error) {
	if s.client == nil {
		return models.DataResponse{}, fmt.Errorf("upstream client not configured")
	}

	start := s.now()
	payload, err := s.client.GeoStates(ctx, req.Filters)
	s.observe("geo_states", start, err)
	if err != nil {
		s.logger.Error("upstream geo aggregation failed", slog.Any("error", err))
		return models.DataResponse{}, utils.NewAppError("geo_states", "upstream geo aggregation failed", err)
	}

	return models.DataResponse{
		Data: payload,
		Citations: citations.Generate(citations.Request{
			ContextType: citations.ContextGeo,
			Filters:     req.Filters,
			Today:       s.now(),
		}),
	}, nil
}

// Suggest proxies autocomplete lookups. No citations; suggestions are not a
// navigable dashboard state.
func (s *SignalService) Suggest(ctx context.Context, req models.SuggestRequest) (any, error) {
	if s.client == nil {
		return nil, fmt.Errorf("upstream client not configured")
	}
	size := req.Size
	if size <= 0 {
		size = 10
	}

	start := s.now()
	payload, err := s.client.Suggest(ctx, req.Field, req.Text, size)
	s.observe("suggest", start, err)
	if err != nil {
		s.logger.Error("upstream suggest failed", slog.Any("error", err))
		return nil, utils.NewAppError("suggest", "upstream suggest failed", err)
	}
	return payload, nil
}

// Document fetches a single complaint and attaches a detail citation.
func (s *SignalService) Document(ctx context.Context, complaintID string) (models.DataResponse, error) {
	if s.client == nil {
		return models.DataResponse{}, fmt.Errorf("upstream client not configured")
	}

	start := s.now()
	payload, err := s.client.Document(ctx, complaintID)
	s.observe("document", start, err)
	if err != nil {
		s.logger.Error("upstream document fetch failed", slog.Any("error", err), slog.String("complaint_id", complaintID))
		return models.DataResponse{}, utils.NewAppError("document", "upstream document fetch failed", err)
	}

	return models.DataResponse{
		Data: payload,
		Citations: citations.Generate(citations.Request{
			ContextType: citations.ContextDocument,
			ComplaintID: complaintID,
			Today:       s.now(),
		}),
	}, nil
}

// OverallSignals fetches the overall trend series and computes spike signals
// over it. The in-progress month is dropped before computing so a partial
// bucket never reads as a collapse.
func (s *SignalService) OverallSignals(ctx context.Context, req models.OverallSignalsRequest) (models.OverallSignalsResponse, error) {
	if s.client == nil {
		return models.OverallSignalsResponse{}, fmt.Errorf("upstream client not configured")
	}

	lens := req.Lens
	if lens == "" {
		lens = "overview"
	}
	interval := req.Interval
	if interval == "" {
		interval = "month"
	}
	depth := req.TrendDepth
	if depth <= 0 {
		depth = s.defaults.OverallTrendDepth
	}
	window := req.BaselineWindow
	if window <= 0 {
		window = s.defaults.BaselineWindow
	}
	minMean := req.MinBaselineMean
	if minMean <= 0 {
		minMean = s.defaults.MinBaselineMean
	}

	start := s.now()
	payload, err := s.client.Trends(ctx, repo.TrendsOptions{
		Lens:       lens,
		Interval:   interval,
		TrendDepth: depth,
		Filters:    req.Filters,
	})
	s.observe("signals_overall", start, err)
	if err != nil {
		s.logger.Error("overall signals fetch failed", slog.Any("error", err))
		return models.OverallSignalsResponse{}, utils.NewAppError("signals_overall", "upstream trends failed", err)
	}

	points := signals.DropCurrentMonth(signals.ExtractOverallPoints(payload), s.now())
	dateMin, dateMax := dateBounds(req.Filters)

	return models.OverallSignalsResponse{
		Params: models.OverallSignalsParams{
			Lens:            lens,
			TrendInterval:   interval,
			TrendDepth:      depth,
			DateReceivedMin: dateMin,
			DateReceivedMax: dateMax,
		},
		Signals: models.OverallSignals{
			Overall: signals.Compute(points, window, minMean),
		},
	}, nil
}

// RankGroupSpikes fetches one trends aggregation grouped by the requested
// dimension and ranks its values by latest-bucket z-score. Series too short
// to score are skipped rather than ranked.
func (s *SignalService) RankGroupSpikes(ctx context.Context, req models.GroupSpikesRequest) (models.GroupSpikesResponse, error) {
	if s.client == nil {
		return models.GroupSpikesResponse{}, fmt.Errorf("upstream client not configured")
	}
	if req.Group == "" {
		return models.GroupSpikesResponse{}, fmt.Errorf("group dimension is required")
	}

	lens := req.Lens
	if lens == "" {
		lens = "overview"
	}
	interval := req.Interval
	if interval == "" {
		interval = "month"
	}
	depth := req.TrendDepth
	if depth <= 0 {
		depth = s.defaults.GroupTrendDepth
	}
	subDepth := req.SubLensDepth
	if subDepth <= 0 {
		subDepth = s.defaults.SubLensDepth
	}
	topN := req.TopN
	if topN <= 0 {
		topN = s.defaults.TopN
	}
	window := req.BaselineWindow
	if window <= 0 {
		window = s.defaults.BaselineWindow
	}
	minMean := req.MinBaselineMean
	if minMean <= 0 {
		minMean = s.defaults.MinBaselineMean
	}

	start := s.now()
	payload, err := s.client.Trends(ctx, repo.TrendsOptions{
		Lens:         lens,
		Interval:     interval,
		TrendDepth:   depth,
		SubLens:      req.Group,
		SubLensDepth: subDepth,
		Filters:      req.Filters,
	})
	s.observe("signals_groups", start, err)
	if err != nil {
		s.logger.Error("group spikes fetch failed", slog.Any("error", err), slog.String("group", req.Group))
		return models.GroupSpikesResponse{}, utils.NewAppError("signals_groups", "upstream trends failed", err)
	}

	now := s.now()
	series := signals.ExtractGroupSeries(payload, req.Group)
	results := make([]models.GroupSpike, 0, len(series))
	for _, gs := range series {
		points := signals.DropCurrentMonth(gs.Points, now)
		computed := signals.Compute(points, window, minMean)
		if computed.InsufficientData() {
			continue
		}
		results = append(results, models.GroupSpike{
			Group:    gs.Group,
			DocCount: gs.DocCount,
			Result:   computed,
		})
	}

	signals.SortByZDesc(len(results),
		func(i int) signals.Result { return results[i].Result },
		func(i, j int) { results[i], results[j] = results[j], results[i] },
	)
	if len(results) > topN {
		results = results[:topN]
	}

	dateMin, dateMax := dateBounds(req.Filters)
	return models.GroupSpikesResponse{
		Params: models.GroupSpikesParams{
			Group:           req.Group,
			Lens:            lens,
			TrendInterval:   interval,
			TrendDepth:      depth,
			SubLensDepth:    subDepth,
			TopN:            topN,
			DateReceivedMin: dateMin,
			DateReceivedMax: dateMax,
		},
		Results: results,
	}, nil
}

// RankCompanySpikes runs the two-phase pipeline: an aggregation-only search
// seeds the top-N companies by volume, then each company's trend series is
// fetched and scored. Unlike group ranking, short series stay in the output
// with their sentinel so the caller sees every seeded company.
func (s *SignalService) RankCompanySpikes(ctx context.Context, req models.CompanySpikesRequest) (models.CompanySpikesResponse, error) {
	if s.client == nil {
		return models.CompanySpikesResponse{}, fmt.Errorf("upstream client not configured")
	}

	lens := req.Lens
	if lens == "" {
		lens = "overview"
	}
	interval := req.Interval
	if interval == "" {
		interval = "month"
	}
	depth := req.TrendDepth
	if depth <= 0 {
		depth = s.defaults.GroupTrendDepth
	}
	topN := req.TopN
	if topN <= 0 {
		topN = s.defaults.TopN
	}
	window := req.BaselineWindow
	if window <= 0 {
		window = s.defaults.BaselineWindow
	}
	minMean := req.MinBaselineMean
	if minMean <= 0 {
		minMean = s.defaults.CompanyMinBaseline
	}

	// Phase one seeds the ranking from the search-side company aggregation.
	// Any company filter is stripped so the seed set reflects overall volume.
	searchFilters := make(params.Params, len(req.Filters))
	for key, value := range req.Filters {
		if key == "company" {
			continue
		}
		searchFilters[key] = value
	}

	start := s.now()
	searchPayload, err := s.client.Search(ctx, repo.SearchOptions{
		Size:        0,
		Sort:        "created_date_desc",
		NoHighlight: true,
		Filters:     searchFilters,
	})
	if err != nil {
		s.observe("signals_companies", start, err)
		s.logger.Error("company seed search failed", slog.Any("error", err))
		return models.CompanySpikesResponse{}, utils.NewAppError("signals_companies", "company seed search failed", err)
	}

	seeds := signals.CompanyBucketsFromSearch(searchPayload)
	if len(seeds) > topN {
		seeds = seeds[:topN]
	}

	now := s.now()
	results := make([]models.CompanySpike, 0, len(seeds))
	for _, seed := range seeds {
		companyFilters := make(params.Params, len(searchFilters)+1)
		for key, value := range searchFilters {
			companyFilters[key] = value
		}
		companyFilters["company"] = []string{seed.Company}

		trendsPayload, err := s.client.Trends(ctx, repo.TrendsOptions{
			Lens:       lens,
			Interval:   interval,
			TrendDepth: depth,
			Filters:    companyFilters,
		})
		if err != nil {
			s.observe("signals_companies", start, err)
			s.logger.Error("company trends fetch failed", slog.Any("error", err), slog.String("company", seed.Company))
			return models.CompanySpikesResponse{}, utils.NewAppError("signals_companies", "company trends fetch failed", err)
		}

		points := signals.DropCurrentMonth(signals.ExtractOverallPoints(trendsPayload), now)
		results = append(results, models.CompanySpike{
			Company:         seed.Company,
			CompanyDocCount: seed.DocCount,
			Computed:        signals.Compute(points, window, minMean),
		})
	}
	s.observe("signals_companies", start, nil)

	signals.SortByZDesc(len(results),
		func(i int) signals.Result { return results[i].Computed },
		func(i, j int) { results[i], results[j] = results[j], results[i] },
	)

	dateMin, dateMax := dateBounds(req.Filters)
	return models.CompanySpikesResponse{
		DateFilters: models.CompanySpikeDateFilters{
			DateReceivedMin: dateMin,
			DateReceivedMax: dateMax,
		},
		Ranking: "last bucket vs baseline z-score",
		Results: results,
	}, nil
}

// Deeplink builds a dashboard URL for an arbitrary filter state.
func (s *SignalService) Deeplink(req models.DeeplinkRequest) models.DeeplinkResponse {
	return models.DeeplinkResponse{
		URL: params.BuildDeeplinkURL(req.Params, req.Tab, s.now()),
	}
}

// LatencyP95 returns the current p95 upstream operation latency.
func (s *SignalService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func (s *SignalService) observe(operation string, start time.Time, err error) {
	duration := s.now().Sub(start)
	if err != nil {
		metrics.ObserveOperation(operation, duration, metrics.OutcomeError)
		return
	}
	s.latencies.Observe(duration)
	metrics.ObserveOperation(operation, duration, metrics.OutcomeSuccess)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("upstream latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}
}

// totalHits digs the hit count out of a search payload, tolerating both the
// bare-integer and the object form of hits.total.
func totalHits(payload any) *int {
	doc, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	hits, ok := doc["hits"].(map[string]any)
	if !ok {
		return nil
	}
	switch total := hits["total"].(type) {
	case float64:
		n := int(total)
		return &n
	case int:
		n := total
		return &n
	case map[string]any:
		if v, ok := total["value"].(float64); ok {
			n := int(v)
			return &n
		}
	}
	return nil
}

// dateBounds extracts the echoed date filters from a parameter set.
func dateBounds(filters params.Params) (string, string) {
	min, _ := filters["date_received_min"].(string)
	max, _ := filters["date_received_max"].(string)
	return min, max
}
