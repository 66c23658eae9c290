// Package repo wraps the upstream consumer-complaint search API. Responses
// are loosely-typed JSON documents; the signal engine tolerates malformed
// nesting, so the client does no shape validation beyond decoding.
package repo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/complaintstack/cfpb-signals/internal/cache"
	"github.com/complaintstack/cfpb-signals/internal/params"
)

// DefaultBaseURL is the public upstream complaint-search API root.
const DefaultBaseURL = "https://www.consumerfinance.gov/data-research/consumer-complaints/search/api/v1/"

// UpstreamError reports a non-2xx upstream response. The status code is
// preserved so the serving layer can relay it.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// SearchOptions controls a search request beyond the filter set.
type SearchOptions struct {
	Size        int
	From        int
	Sort        string
	SearchAfter string
	NoHighlight bool
	Filters     params.Params
}

// TrendsOptions controls a trends aggregation request.
type TrendsOptions struct {
	Lens         string
	Interval     string
	TrendDepth   int
	SubLens      string
	SubLensDepth int
	Focus        string
	Filters      params.Params
}

// CFPBClient issues GET requests against the upstream complaint-search API,
// memoizing search and trends payloads through the cache provider.
type CFPBClient struct {
	baseURL    string
	httpClient *http.Client
	cache      cache.Provider
	searchTTL  time.Duration
	trendsTTL  time.Duration
}

// NewCFPBClient constructs a client for the configured upstream instance. A
// nil cache provider disables memoization.
func NewCFPBClient(baseURL string, timeout time.Duration, cacheProvider cache.Provider, searchTTL, trendsTTL time.Duration) *CFPBClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	return &CFPBClient{
		baseURL:    strings.TrimRight(baseURL, "/") + "/",
		httpClient: &http.Client{Timeout: timeout},
		cache:      cacheProvider,
		searchTTL:  searchTTL,
		trendsTTL:  trendsTTL,
	}
}

// Search queries the upstream search endpoint with pagination and filters.
func (c *CFPBClient) Search(ctx context.Context, opts SearchOptions) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("cfpb client not initialised")
	}

	query := make(params.Params, len(opts.Filters)+6)
	for key, value := range opts.Filters {
		query[key] = value
	}
	query["size"] = opts.Size
	query["frm"] = opts.From
	query["sort"] = opts.Sort
	query["no_highlight"] = opts.NoHighlight
	query["no_aggs"] = false
	if opts.SearchAfter != "" {
		query["search_after"] = opts.SearchAfter
	}

	return c.getJSON(ctx, "", params.Normalize(query), c.searchTTL)
}

// Trends queries the upstream trends endpoint for the requested lens. The
// sub-lens depth is only sent alongside a sub-lens; the upstream rejects it
// otherwise.
func (c *CFPBClient) Trends(ctx context.Context, opts TrendsOptions) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("cfpb client not initialised")
	}

	query := make(params.Params, len(opts.Filters)+6)
	for key, value := range opts.Filters {
		query[key] = value
	}
	query["lens"] = opts.Lens
	query["trend_interval"] = opts.Interval
	query["trend_depth"] = opts.TrendDepth
	if opts.SubLens != "" {
		query["sub_lens"] = opts.SubLens
		query["sub_lens_depth"] = opts.SubLensDepth
	}
	if opts.Focus != "" {
		query["focus"] = opts.Focus
	}

	return c.getJSON(ctx, "trends", params.Normalize(query), c.trendsTTL)
}

// GeoStates queries the per-state aggregation endpoint.
func (c *CFPBClient) GeoStates(ctx context.Context, filters params.Params) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("cfpb client not initialised")
	}
	return c.getJSON(ctx, "geo/states", params.Normalize(filters), 0)
}

// Suggest fetches autocomplete candidates for company or zip_code values.
// The upstream returns a bare list; it is truncated to the requested size.
func (c *CFPBClient) Suggest(ctx context.Context, field, text string, size int) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("cfpb client not initialised")
	}

	endpoint := "_suggest_company"
	if field == "zip_code" {
		endpoint = "_suggest_zip"
	}
	payload, err := c.getJSON(ctx, endpoint, params.Params{"text": text, "size": size}, 0)
	if err != nil {
		return nil, err
	}
	if list, ok := payload.([]any); ok && size >= 0 && len(list) > size {
		return list[:size], nil
	}
	return payload, nil
}

// Document fetches a single complaint by its id.
func (c *CFPBClient) Document(ctx context.Context, complaintID string) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("cfpb client not initialised")
	}
	return c.getJSON(ctx, url.PathEscape(complaintID), nil, 0)
}

// getJSON performs a GET with the encoded query, consulting the cache first
// when a positive TTL is configured for the endpoint.
func (c *CFPBClient) getJSON(ctx context.Context, endpoint string, query params.Params, ttl time.Duration) (any, error) {
	encoded := encodeQuery(query)
	target := c.baseURL + endpoint
	if encoded != "" {
		target += "?" + encoded
	}

	cacheKey := "cfpb:" + endpoint + "?" + encoded
	if ttl > 0 {
		if data, err := c.cache.Get(ctx, cacheKey); err == nil {
			var payload any
			if err := json.Unmarshal(data, &payload); err == nil {
				return payload, nil
			}
			// A corrupt entry falls through to a fresh fetch.
			_ = c.cache.Del(ctx, cacheKey)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if ttl > 0 {
		// Cache failures only cost a refetch.
		_ = c.cache.Set(ctx, cacheKey, body, ttl)
	}

	return payload, nil
}

// encodeQuery renders a normalized parameter set for the upstream API.
// Multi-valued parameters become repeated keys, which is how the upstream
// expects multi-selects (unlike the dashboard's comma-joined encoding).
func encodeQuery(p params.Params) string {
	values := url.Values{}
	for key, value := range p {
		switch v := value.(type) {
		case []any:
			for _, item := range v {
				values.Add(key, fmt.Sprint(item))
			}
		case []string:
			for _, item := range v {
				values.Add(key, item)
			}
		case bool:
			if v {
				values.Set(key, "true")
			} else {
				values.Set(key, "false")
			}
		default:
			values.Set(key, fmt.Sprint(value))
		}
	}
	return values.Encode()
}
