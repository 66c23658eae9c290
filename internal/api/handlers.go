package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"

	"github.com/complaintstack/cfpb-signals/internal/models"
	"github.com/complaintstack/cfpb-signals/internal/params"
	"github.com/complaintstack/cfpb-signals/internal/repo"
	"github.com/complaintstack/cfpb-signals/internal/services"
)

// RouterConfig wires the HTTP surface together.
type RouterConfig struct {
	Logger            *slog.Logger
	Service           *services.SignalService
	APIKeys           []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter builds the chi router with the full middleware chain and all
// versioned routes.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{logger: logger, service: cfg.Service}

	r := chi.NewRouter()
	r.Use(requestLog(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", apiKeyHeader},
		MaxAge:         300,
	}))
	r.Use(rateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

	r.Get("/", h.root)
	r.Get("/healthz", h.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireAPIKey(cfg.APIKeys, logger))

		r.Route("/complaints", func(r chi.Router) {
			r.Get("/search", h.search)
			r.Get("/trends", h.trends)
			r.Get("/geo/states", h.geoStates)
			r.Get("/suggest", h.suggest)
			r.Get("/{complaintID}", h.document)
		})
		r.Route("/signals", func(r chi.Router) {
			r.Get("/overall", h.overallSignals)
			r.Get("/groups", h.groupSpikes)
			r.Get("/companies", h.companySpikes)
		})
		r.Get("/deeplink", h.deeplink)
	})

	return r
}

type handlers struct {
	logger  *slog.Logger
	service *services.SignalService
}

func (h *handlers) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "cfpb-signals",
		"docs":    "/api/v1",
	})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// searchControlKeys are consumed by the search handler itself rather than
// forwarded as filters.
var searchControlKeys = map[string]struct{}{
	"size": {}, "frm": {}, "sort": {}, "search_after": {}, "no_highlight": {},
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	size, err := intQuery(q, "size", 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	from, err := intQuery(q, "frm", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	sort := q.Get("sort")
	if sort == "" {
		sort = "relevance_desc"
	}

	filters, ok := h.collectFilters(w, q, searchControlKeys, params.SearchEndpointKeys)
	if !ok {
		return
	}

	resp, err := h.service.Search(r.Context(), models.SearchRequest{
		Size:        size,
		From:        from,
		Sort:        sort,
		SearchAfter: q.Get("search_after"),
		NoHighlight: boolQuery(q, "no_highlight"),
		Filters:     filters,
	})
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

var trendsControlKeys = map[string]struct{}{
	"lens": {}, "trend_interval": {}, "trend_depth": {}, "sub_lens": {},
	"sub_lens_depth": {}, "focus": {},
}

func (h *handlers) trends(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	depth, err := intQuery(q, "trend_depth", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	subDepth, err := intQuery(q, "sub_lens_depth", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	filters, ok := h.collectFilters(w, q, trendsControlKeys, params.TrendsEndpointKeys)
	if !ok {
		return
	}

	resp, err := h.service.Trends(r.Context(), models.TrendsRequest{
		Lens:         q.Get("lens"),
		Interval:     q.Get("trend_interval"),
		TrendDepth:   depth,
		SubLens:      q.Get("sub_lens"),
		SubLensDepth: subDepth,
		Focus:        q.Get("focus"),
		Filters:      filters,
	})
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) geoStates(w http.ResponseWriter, r *http.Request) {
	filters, ok := h.collectFilters(w, r.URL.Query(), nil, params.GeoEndpointKeys)
	if !ok {
		return
	}

	resp, err := h.service.GeoStates(r.Context(), models.GeoRequest{Filters: filters})
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	field := q.Get("field")
	if field == "" {
		field = "company"
	}
	if field != "company" && field != "zip_code" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "field must be company or zip_code")
		return
	}
	text := q.Get("text")
	if text == "" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "text is required")
		return
	}
	size, err := intQuery(q, "size", 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	payload, err := h.service.Suggest(r.Context(), models.SuggestRequest{Field: field, Text: text, Size: size})
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *handlers) document(w http.ResponseWriter, r *http.Request) {
	complaintID := chi.URLParam(r, "complaintID")
	if complaintID == "" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "complaint id is required")
		return
	}

	resp, err := h.service.Document(r.Context(), complaintID)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

var signalControlKeys = map[string]struct{}{
	"lens": {}, "trend_interval": {}, "trend_depth": {}, "baseline_window": {},
	"min_baseline_mean": {}, "group": {}, "sub_lens_depth": {}, "top_n": {},
}

func (h *handlers) overallSignals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	depth, err := intQuery(q, "trend_depth", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	window, err := intQuery(q, "baseline_window", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	minMean, err := floatQuery(q, "min_baseline_mean", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	filters, ok := h.collectFilters(w, q, signalControlKeys, params.TrendsEndpointKeys)
	if !ok {
		return
	}

	resp, err := h.service.OverallSignals(r.Context(), models.OverallSignalsRequest{
		Lens:            q.Get("lens"),
		Interval:        q.Get("trend_interval"),
		TrendDepth:      depth,
		BaselineWindow:  window,
		MinBaselineMean: minMean,
		Filters:         filters,
	})
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) groupSpikes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	group := q.Get("group")
	if group != "product" && group != "issue" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "group must be product or issue")
		return
	}
	depth, err := intQuery(q, "trend_depth", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	subDepth, err := intQuery(q, "sub_lens_depth", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	topN, err := intQuery(q, "top_n", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	window, err := intQuery(q, "baseline_window", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	minMean, err := floatQuery(q, "min_baseline_mean", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	filters, ok := h.collectFilters(w, q, signalControlKeys, params.TrendsEndpointKeys)
	if !ok {
		return
	}

	resp, err := h.service.RankGroupSpikes(r.Context(), models.GroupSpikesRequest{
		Group:           group,
		Lens:            q.Get("lens"),
		Interval:        q.Get("trend_interval"),
		TrendDepth:      depth,
		SubLensDepth:    subDepth,
		TopN:            topN,
		BaselineWindow:  window,
		MinBaselineMean: minMean,
		Filters:         filters,
	})
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) companySpikes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	depth, err := intQuery(q, "trend_depth", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	topN, err := intQuery(q, "top_n", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	window, err := intQuery(q, "baseline_window", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	minMean, err := floatQuery(q, "min_baseline_mean", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	filters, ok := h.collectFilters(w, q, signalControlKeys, params.TrendsEndpointKeys)
	if !ok {
		return
	}

	resp, err := h.service.RankCompanySpikes(r.Context(), models.CompanySpikesRequest{
		Lens:            q.Get("lens"),
		Interval:        q.Get("trend_interval"),
		TrendDepth:      depth,
		TopN:            topN,
		BaselineWindow:  window,
		MinBaselineMean: minMean,
		Filters:         filters,
	})
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// deeplinkKeys is the union of search and trends vocabularies; a deep link
// can reproduce either dashboard view.
var deeplinkKeys = func() map[string]struct{} {
	keys := make(map[string]struct{}, len(params.SearchEndpointKeys)+len(params.TrendsEndpointKeys))
	for k := range params.SearchEndpointKeys {
		keys[k] = struct{}{}
	}
	for k := range params.TrendsEndpointKeys {
		keys[k] = struct{}{}
	}
	return keys
}()

func (h *handlers) deeplink(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	tab := q.Get("tab")
	switch tab {
	case "", "List", "Trends", "Map":
	default:
		writeError(w, http.StatusBadRequest, "invalid_parameter", "tab must be List, Trends or Map")
		return
	}

	linkParams, ok := h.collectFilters(w, q, map[string]struct{}{"tab": {}}, deeplinkKeys)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, h.service.Deeplink(models.DeeplinkRequest{Tab: tab, Params: linkParams}))
}

// collectFilters converts the remaining query parameters into a filter set,
// rejecting keys outside the endpoint vocabulary. Repeated keys become
// slices. A false return means the response has already been written.
func (h *handlers) collectFilters(w http.ResponseWriter, q url.Values, control map[string]struct{}, allowed map[string]struct{}) (params.Params, bool) {
	filters := make(params.Params, len(q))
	for key, values := range q {
		if _, ok := control[key]; ok {
			continue
		}
		if len(values) == 1 {
			filters[key] = values[0]
		} else {
			filters[key] = append([]string(nil), values...)
		}
	}

	if result := params.Validate(filters, allowed); len(result.UnknownKeys) > 0 {
		writeError(w, http.StatusBadRequest, "unknown_parameter",
			"unknown parameter(s): "+strings.Join(result.UnknownKeys, ", "))
		return nil, false
	}
	return filters, true
}

func (h *handlers) writeUpstreamError(w http.ResponseWriter, err error) {
	var upstream *repo.UpstreamError
	if errors.As(err, &upstream) {
		status := upstream.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		writeError(w, status, "upstream_error", upstream.Error())
		return
	}
	writeError(w, http.StatusBadGateway, "upstream_unreachable", err.Error())
}

func intQuery(q url.Values, key string, fallback int) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}

func floatQuery(q url.Values, key string, fallback float64) (float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New(key + " must be a number")
	}
	return f, nil
}

func boolQuery(q url.Values, key string) bool {
	v := strings.ToLower(q.Get(key))
	return v == "true" || v == "1"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: errorBody{Type: errType, Message: message}})
}
