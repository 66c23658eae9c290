package params

import (
	"net/url"
	"strings"
)

// APIToURLParams converts upstream API parameters into the dashboard URL
// vocabulary. The mapping normalizes first, renames keys per the fixed table,
// reformats interval and lens values for display, and derives the one-based
// page number from the frm offset. The frm key itself never appears in the
// output. Unknown keys pass through with their name unchanged.
func APIToURLParams(apiParams Params) Params {
	normalized := Normalize(apiParams)
	urlParams := make(Params, len(normalized))

	for key, value := range normalized {
		if key == "frm" {
			continue
		}
		mappedKey := key
		if renamed, ok := apiToURLParam[key]; ok {
			mappedKey = renamed
		}
		mappedValue := value
		if s, isString := value.(string); isString {
			switch key {
			case "trend_interval":
				mappedValue = formatTrendInterval(s)
			case "lens", "sub_lens":
				mappedValue = formatLens(s)
			}
		}
		urlParams[mappedKey] = mappedValue
	}

	applyPagination(normalized, urlParams)
	return urlParams
}

// applyPagination derives page = frm/size + 1 (floor division over a
// zero-based offset). When frm is not an exact multiple of size the page is
// approximate; that behaviour is inherited from the dashboard and kept as-is.
func applyPagination(apiParams Params, urlParams Params) {
	frm, okFrm := parseInt(apiParams["frm"])
	size, okSize := parseInt(apiParams["size"])
	if !okFrm || !okSize || size == 0 {
		return
	}
	urlParams["page"] = (frm / size) + 1
}

// URLToAPIParams converts dashboard URL parameters back into the upstream API
// vocabulary. The round trip through APIToURLParams is lossy: frm is only
// recovered exactly when the original offset was a multiple of size, and it is
// dropped entirely when no usable size accompanies the page number.
func URLToAPIParams(urlParams Params) Params {
	apiParams := make(Params, len(urlParams))
	for key, raw := range urlParams {
		apiKey := key
		if renamed, ok := urlToAPIParam[key]; ok {
			apiKey = renamed
		}
		cleaned, ok := cleanValue(raw)
		if !ok {
			continue
		}
		if s, isString := cleaned.(string); isString {
			switch apiKey {
			case "trend_interval":
				cleaned = strings.ToLower(s)
			case "lens", "sub_lens":
				cleaned = formatLens(s)
			}
		}
		apiParams[apiKey] = cleaned
	}

	if _, present := apiParams["frm"]; present {
		page, okPage := parseInt(apiParams["frm"])
		size, okSize := parseInt(apiParams["size"])
		if okPage && okSize && size > 0 {
			apiParams["frm"] = (page - 1) * size
		} else {
			delete(apiParams, "frm")
		}
	}

	return apiParams
}

// ParseDashboardURL extracts API parameters from a full dashboard URL.
func ParseDashboardURL(rawURL string) (Params, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	query := parsed.Query()
	flattened := make(Params, len(query))
	for key, values := range query {
		if len(values) > 1 {
			flattened[key] = values
		} else if len(values) == 1 {
			flattened[key] = values[0]
		}
	}
	return URLToAPIParams(flattened), nil
}
