package params

import (
	"reflect"
	"testing"
)

func TestNormalizeDropsEmptyValues(t *testing.T) {
	got := Normalize(Params{
		"company":     nil,
		"search_term": "   ",
		"state":       []string{" ", ""},
		"product":     []string{},
	})
	if len(got) != 0 {
		t.Fatalf("expected empty mapping, got %+v", got)
	}
}

func TestNormalizeCanonicalizesBooleans(t *testing.T) {
	got := Normalize(Params{
		"has_narrative": true,
		"timely":        " TRUE ",
		"no_highlight":  false,
		"disputed":      "False",
	})
	want := Params{
		"has_narrative": "true",
		"timely":        "true",
		"no_highlight":  "false",
		"disputed":      "false",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestNormalizePreservesCaseOfOtherStrings(t *testing.T) {
	got := Normalize(Params{"company": "  ACME Bank  "})
	if got["company"] != "ACME Bank" {
		t.Fatalf("expected trimmed original casing, got %q", got["company"])
	}
}

func TestNormalizeCleansSlicesRecursively(t *testing.T) {
	got := Normalize(Params{
		"state":   []string{" CA ", "", "TX"},
		"product": []any{"Mortgage", nil, "  "},
	})
	if !reflect.DeepEqual(got["state"], []any{"CA", "TX"}) {
		t.Fatalf("unexpected state: %+v", got["state"])
	}
	if !reflect.DeepEqual(got["product"], []any{"Mortgage"}) {
		t.Fatalf("unexpected product: %+v", got["product"])
	}
}

func TestNormalizeSpecialKeys(t *testing.T) {
	got := Normalize(Params{
		"trend_interval": "MONTH",
		"lens":           "Date Received",
		"sub_lens":       "Sub-Product",
	})
	if got["trend_interval"] != "month" {
		t.Fatalf("unexpected interval: %q", got["trend_interval"])
	}
	if got["lens"] != "date_received" {
		t.Fatalf("unexpected lens: %q", got["lens"])
	}
	if got["sub_lens"] != "sub_product" {
		t.Fatalf("unexpected sub_lens: %q", got["sub_lens"])
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	input := Params{
		"search_term":    " overdraft fees ",
		"has_narrative":  true,
		"state":          []string{"CA", " NY "},
		"trend_interval": "Month",
		"size":           25,
	}
	once := Normalize(input)
	twice := Normalize(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("not idempotent: %+v vs %+v", once, twice)
	}
	if once["size"] != 25 {
		t.Fatalf("numeric value altered: %+v", once["size"])
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	input := Params{"timely": true}
	Normalize(input)
	if input["timely"] != true {
		t.Fatalf("input mutated: %+v", input)
	}
}
