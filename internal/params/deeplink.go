package params

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// BuildDeeplinkURL composes an absolute dashboard URL reproducing the given
// filter state. Date defaults are applied first, then the parameters are
// transcoded into the URL vocabulary. When no tab is supplied and the original
// mapping carries any trend-related key, the Trends tab is selected. An empty
// parameter set yields the bare base URL with no query string.
//
// Multi-valued parameters are serialized as one comma-joined value per key,
// matching the dashboard's multi-select encoding.
func BuildDeeplinkURL(apiParams Params, tab string, today time.Time) string {
	withDates := ApplyDefaultDates(apiParams, today)
	urlParams := APIToURLParams(withDates)

	if tab == "" {
		for key := range trendKeys {
			if _, present := apiParams[key]; present {
				tab = "Trends"
				break
			}
		}
	}
	if tab != "" {
		urlParams["tab"] = tab
	}

	if len(urlParams) == 0 {
		return UIBaseURL
	}

	return UIBaseURL + "?" + encodeURLParams(urlParams)
}

// encodeURLParams renders URL parameters with slices joined by commas.
func encodeURLParams(p Params) string {
	values := url.Values{}
	for key, value := range p {
		values.Set(key, queryString(value))
	}
	return values.Encode()
}

func queryString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []string:
		joined := ""
		for i, item := range v {
			if i > 0 {
				joined += ","
			}
			joined += item
		}
		return joined
	case []any:
		joined := ""
		for i, item := range v {
			if i > 0 {
				joined += ","
			}
			joined += queryString(item)
		}
		return joined
	default:
		return fmt.Sprint(value)
	}
}
