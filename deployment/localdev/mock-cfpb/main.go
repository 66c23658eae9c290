// mock-cfpb serves canned complaint-search API responses for local
// development, so the service can run without hitting the public API.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

func monthBucket(key float64, label string, count int) map[string]any {
	return map[string]any{
		"key":           key,
		"key_as_string": label,
		"doc_count":     count,
	}
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	trendBuckets := []map[string]any{
		monthBucket(1735689600000, "2025-01-01T00:00:00.000Z", 1200),
		monthBucket(1738368000000, "2025-02-01T00:00:00.000Z", 1180),
		monthBucket(1740787200000, "2025-03-01T00:00:00.000Z", 1310),
		monthBucket(1743465600000, "2025-04-01T00:00:00.000Z", 1295),
		monthBucket(1746057600000, "2025-05-01T00:00:00.000Z", 2410),
	}

	mux.HandleFunc("/trends", func(w http.ResponseWriter, r *http.Request) {
		sub := r.URL.Query().Get("sub_lens")
		aggs := map[string]any{
			"dateRangeArea": map[string]any{
				"dateRangeArea": map[string]any{"buckets": trendBuckets},
			},
		}
		if sub != "" {
			aggs[sub] = map[string]any{
				sub: map[string]any{
					"buckets": []map[string]any{
						{
							"key":       "Checking account",
							"doc_count": 900,
							"trend_period": map[string]any{
								"buckets": trendBuckets,
							},
						},
					},
				},
			}
		}
		writeJSON(w, map[string]any{"aggregations": aggs})
	})

	mux.HandleFunc("/geo/states", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"aggregations": map[string]any{
				"state": map[string]any{
					"state": map[string]any{
						"buckets": []map[string]any{
							{"key": "CA", "doc_count": 5400},
							{"key": "TX", "doc_count": 4100},
							{"key": "FL", "doc_count": 3900},
						},
					},
				},
			},
		})
	})

	mux.HandleFunc("/_suggest_company", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []string{"ACME BANK", "ACME CREDIT UNION", "ACME MORTGAGE"})
	})

	mux.HandleFunc("/_suggest_zip", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []string{"90001", "90002", "90003"})
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if id := strings.Trim(r.URL.Path, "/"); id != "" {
			writeJSON(w, map[string]any{
				"_id": id,
				"_source": map[string]any{
					"company":                 "ACME BANK",
					"product":                 "Checking or savings account",
					"issue":                   "Managing an account",
					"state":                   "CA",
					"date_received":           "2025-04-18",
					"complaint_what_happened": "Example narrative.",
				},
			})
			return
		}
		writeJSON(w, map[string]any{
			"hits": map[string]any{
				"total": 12345,
				"hits":  []any{},
			},
			"aggregations": map[string]any{
				"company": map[string]any{
					"company": map[string]any{
						"buckets": []map[string]any{
							{"key": "ACME BANK", "doc_count": 820},
							{"key": "ZEN LENDING", "doc_count": 640},
							{"key": "ORBIT CARDS", "doc_count": 310},
						},
					},
				},
			},
		})
	})

	addr := ":9100"
	log.Printf("mock-cfpb listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
