package params

import "time"

// ApplyDefaultDates returns a copy of the parameter mapping with
// date_received_min/date_received_max filled in when absent or nil. The
// minimum defaults to the fixed dataset start; the maximum defaults to the
// last day of the month before (today - 30 days), so the newest bucket the
// window touches is always a complete month.
//
// A zero today means the current UTC wall-clock date.
func ApplyDefaultDates(p Params, today time.Time) Params {
	withDates := make(Params, len(p)+2)
	for key, value := range p {
		withDates[key] = value
	}

	if value, ok := withDates["date_received_min"]; !ok || value == nil {
		withDates["date_received_min"] = DefaultStartDate
	}
	if value, ok := withDates["date_received_max"]; !ok || value == nil {
		withDates["date_received_max"] = defaultEndDate(today)
	}
	return withDates
}

// defaultEndDate computes the last day of the month before (today - 30 days).
func defaultEndDate(today time.Time) string {
	anchor := today
	if anchor.IsZero() {
		anchor = time.Now().UTC()
	}
	cutoff := anchor.AddDate(0, 0, -30)
	firstOfCutoffMonth := time.Date(cutoff.Year(), cutoff.Month(), 1, 0, 0, 0, 0, cutoff.Location())
	end := firstOfCutoffMonth.AddDate(0, 0, -1)
	return end.Format("2006-01-02")
}
