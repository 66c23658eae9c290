// Package params implements the translation layer between the upstream
// complaint-search API parameter vocabulary and the public dashboard's URL
// vocabulary: normalization, default date windows, bidirectional key
// transcoding with offset/page arithmetic, and deep-link construction.
package params

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// UIBaseURL is the public complaint-search dashboard all deep links point at.
const UIBaseURL = "https://www.consumerfinance.gov/data-research/consumer-complaints/search/"

// DefaultStartDate is the earliest date the upstream dataset covers.
const DefaultStartDate = "2011-12-01"

// Params is a mapping of filter parameter names to scalar values
// (string/bool/number) or slices of scalars. A normalized Params contains no
// nil values, no empty strings, and no empty slices.
type Params map[string]any

// apiToURLParam renames upstream API keys to the dashboard URL vocabulary.
var apiToURLParam = map[string]string{
	"search_term":    "searchText",
	"field":          "searchField",
	"sub_lens":       "subLens",
	"trend_interval": "dateInterval",
}

// urlToAPIParam is the inverse rename table, plus the page->frm pagination key.
var urlToAPIParam = map[string]string{
	"searchText":   "search_term",
	"searchField":  "field",
	"subLens":      "sub_lens",
	"dateInterval": "trend_interval",
	"page":         "frm",
}

// trendKeys are the parameters whose presence implies the Trends dashboard tab.
var trendKeys = map[string]struct{}{
	"lens":           {},
	"sub_lens":       {},
	"trend_interval": {},
	"trend_depth":    {},
	"sub_lens_depth": {},
	"focus":          {},
	"chartType":      {},
}

// SearchEndpointKeys lists the parameters accepted by the upstream search endpoint.
var SearchEndpointKeys = keySet(
	"search_term", "field", "frm", "size", "sort", "format", "no_aggs",
	"no_highlight", "company", "company_public_response",
	"company_received_max", "company_received_min", "company_response",
	"consumer_consent_provided", "consumer_disputed", "date_received_max",
	"date_received_min", "has_narrative", "issue", "product", "search_after",
	"state", "submitted_via", "tags", "timely", "zip_code",
)

// GeoEndpointKeys lists the parameters accepted by the upstream geo endpoint.
var GeoEndpointKeys = keySet(
	"search_term", "field", "company", "company_public_response",
	"company_received_max", "company_received_min", "company_response",
	"consumer_consent_provided", "consumer_disputed", "date_received_max",
	"date_received_min", "has_narrative", "issue", "product", "state",
	"submitted_via", "tags", "timely", "zip_code",
)

// TrendsEndpointKeys lists the parameters accepted by the upstream trends endpoint.
var TrendsEndpointKeys = keySet(
	"search_term", "field", "company", "company_public_response",
	"company_received_max", "company_received_min", "company_response",
	"consumer_consent_provided", "consumer_disputed", "date_received_max",
	"date_received_min", "focus", "has_narrative", "issue", "lens", "product",
	"state", "submitted_via", "sub_lens", "sub_lens_depth", "tags", "timely",
	"trend_depth", "trend_interval", "zip_code",
)

func keySet(keys ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// ValidationResult reports which supplied keys fall outside an endpoint's
// allow-list. Unknown keys are informational; the transcoder passes them through.
type ValidationResult struct {
	UnknownKeys []string
	AllowedKeys []string
}

// Validate compares the supplied parameter keys against an endpoint allow-list.
func Validate(p Params, allowed map[string]struct{}) ValidationResult {
	unknown := make([]string, 0)
	for key := range p {
		if _, ok := allowed[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	allowedKeys := make([]string, 0, len(allowed))
	for key := range allowed {
		allowedKeys = append(allowedKeys, key)
	}
	sort.Strings(allowedKeys)

	return ValidationResult{UnknownKeys: unknown, AllowedKeys: allowedKeys}
}

// parseInt extracts an integer from int-like or digit-string values. Anything
// else (floats with fractions, signed strings, garbage) reports false so
// pagination derivation is silently skipped.
func parseInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
		return 0, false
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		for _, r := range trimmed {
			if r < '0' || r > '9' {
				return 0, false
			}
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// formatLens canonicalizes a lens token: whitespace/hyphen runs become
// underscores and the result is lowercased ("Date Received" -> "date_received").
// Idempotent.
func formatLens(value string) string {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return value
	}
	fields := strings.FieldsFunc(cleaned, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-'
	})
	return strings.ToLower(strings.Join(fields, "_"))
}

// formatTrendInterval renders an interval token for the dashboard: snake,
// kebab, or space separated words become Title Case joined by spaces
// ("bi_weekly" -> "Bi Weekly").
func formatTrendInterval(value string) string {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return value
	}
	fields := strings.FieldsFunc(cleaned, func(r rune) bool {
		return unicode.IsSpace(r) || r == '_' || r == '-'
	})
	for i, field := range fields {
		fields[i] = capitalize(field)
	}
	return strings.Join(fields, " ")
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	lower := strings.ToLower(word)
	runes := []rune(lower)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
