package signals

import (
	"fmt"
	"sort"
	"time"
)

// GroupSeries is the time series extracted for one value of a grouping
// dimension (a product, an issue, a company).
type GroupSeries struct {
	Group    string  `json:"group"`
	DocCount float64 `json:"doc_count"`
	Points   []Point `json:"points"`
}

// CompanyCount is one company aggregation bucket from a search payload.
type CompanyCount struct {
	Company  string `json:"company"`
	DocCount int    `json:"doc_count"`
}

// dig walks a path of keys through a loosely-typed JSON document. Any type
// mismatch or missing key along the way yields nil rather than an error;
// malformed upstream payloads degrade to "no data".
func dig(doc any, path ...string) any {
	current := doc
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[key]
	}
	return current
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// ExtractOverallPoints pulls the overall date-bucketed series out of a trends
// payload. Buckets missing a numeric sort key, a label, or a numeric count are
// skipped; the remainder is ordered ascending by the numeric key.
func ExtractOverallPoints(payload any) []Point {
	buckets, ok := dig(payload, "aggregations", "dateRangeArea", "dateRangeArea", "buckets").([]any)
	if !ok {
		return nil
	}

	type row struct {
		key   int64
		point Point
	}
	rows := make([]row, 0, len(buckets))
	for _, raw := range buckets {
		bucket, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		key, okKey := asFloat(bucket["key"])
		label := bucket["key_as_string"]
		count, okCount := asFloat(bucket["doc_count"])
		if !okKey || label == nil || !okCount {
			continue
		}
		rows = append(rows, row{key: int64(key), point: Point{Label: fmt.Sprint(label), Count: count}})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].key < rows[j].key })

	points := make([]Point, 0, len(rows))
	for _, r := range rows {
		points = append(points, r.point)
	}
	return points
}

// ExtractGroupSeries pulls per-group time series out of a trends payload for
// the named grouping dimension. Points are ordered by the numeric bucket key
// when any bucket carries one (missing keys sort first); when none do, the
// fallback is lexicographic label order, which is only chronological for
// zero-padded date-style labels. That fallback is inherited behaviour.
func ExtractGroupSeries(payload any, group string) []GroupSeries {
	groupBuckets, ok := dig(payload, "aggregations", group, group, "buckets").([]any)
	if !ok {
		return nil
	}

	out := make([]GroupSeries, 0, len(groupBuckets))
	for _, raw := range groupBuckets {
		bucket, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		groupKey := bucket["key"]
		trendBuckets, okTrend := dig(bucket, "trend_period", "buckets").([]any)
		if groupKey == nil || !okTrend {
			continue
		}
		docCount, _ := asFloat(bucket["doc_count"])

		out = append(out, GroupSeries{
			Group:    fmt.Sprint(groupKey),
			DocCount: docCount,
			Points:   extractTrendPoints(trendBuckets),
		})
	}
	return out
}

// extractTrendPoints reads (key, key_as_string, doc_count) rows from nested
// trend buckets and orders them chronologically.
func extractTrendPoints(trendBuckets []any) []Point {
	type row struct {
		key   *int64
		label string
		count float64
	}
	rows := make([]row, 0, len(trendBuckets))
	anyKey := false
	for _, raw := range trendBuckets {
		bucket, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		label := bucket["key_as_string"]
		count, okCount := asFloat(bucket["doc_count"])
		if label == nil || !okCount {
			continue
		}
		var keyNum *int64
		if key, okKey := asFloat(bucket["key"]); okKey {
			n := int64(key)
			keyNum = &n
			anyKey = true
		}
		rows = append(rows, row{key: keyNum, label: fmt.Sprint(label), count: count})
	}

	if anyKey {
		sort.SliceStable(rows, func(i, j int) bool {
			ki, kj := rows[i].key, rows[j].key
			if ki == nil {
				return kj != nil
			}
			if kj == nil {
				return false
			}
			return *ki < *kj
		})
	} else {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].label < rows[j].label })
	}

	points := make([]Point, 0, len(rows))
	for _, r := range rows {
		points = append(points, Point{Label: r.label, Count: r.count})
	}
	return points
}

// CompanyBucketsFromSearch extracts (company, doc_count) pairs from a search
// payload's company aggregation, descending by count. This seeds the
// search-then-trends company spike pipeline.
func CompanyBucketsFromSearch(payload any) []CompanyCount {
	buckets, ok := dig(payload, "aggregations", "company", "company", "buckets").([]any)
	if !ok {
		return nil
	}

	out := make([]CompanyCount, 0, len(buckets))
	for _, raw := range buckets {
		bucket, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		key, okKey := bucket["key"].(string)
		count, okCount := asFloat(bucket["doc_count"])
		if !okKey || !okCount {
			continue
		}
		out = append(out, CompanyCount{Company: key, DocCount: int(count)})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].DocCount > out[j].DocCount })
	return out
}

// DropCurrentMonth removes buckets whose label starts with the current
// YYYY-MM- prefix, excluding the in-progress partial month from both the
// baseline and the last-bucket comparison. This is a label-prefix filter, not
// a date parse; it inherits the upstream label format. A zero now means the
// current UTC wall clock.
func DropCurrentMonth(points []Point, now time.Time) []Point {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	prefix := fmt.Sprintf("%04d-%02d-", now.Year(), int(now.Month()))

	kept := make([]Point, 0, len(points))
	for _, p := range points {
		if len(p.Label) >= len(prefix) && p.Label[:len(prefix)] == prefix {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}
