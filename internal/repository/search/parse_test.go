package search

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/olivere/elastic/v7"

	"github.com/kailas-cloud/weightedterms/internal/domain"
	"github.com/kailas-cloud/weightedterms/internal/domain/query"
)

func decodeAggs(t *testing.T, raw string) elastic.Aggregations {
	t.Helper()
	var aggs elastic.Aggregations
	if err := json.Unmarshal([]byte(raw), &aggs); err != nil {
		t.Fatalf("decode aggregations: %v", err)
	}
	return aggs
}

func TestParseResult_SingleLevel(t *testing.T) {
	aggs := decodeAggs(t, `{
		"weightedterms": {
			"doc_count": 160,
			"status": {
				"sum_other_doc_count": 7,
				"buckets": [
					{"key": "a", "doc_count": 100},
					{"key": "b", "doc_count": 50}
				]
			},
			"weightedterms_missing": {"doc_count": 3}
		}
	}`)

	res, err := ParseResult(aggs, query.TermsQuery{Field: "status"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(res.Buckets))
	}
	if res.Buckets[0].Key() != "a" || res.Buckets[0].DocCount() != 100 {
		t.Errorf("unexpected first bucket %+v", res.Buckets[0])
	}
	if res.Buckets[0].HasSubBuckets() {
		t.Error("single-level bucket should have no sub-buckets")
	}
	if res.Other != 7 {
		t.Errorf("expected other 7, got %d", res.Other)
	}
	if res.Missing != 3 {
		t.Errorf("expected missing 3, got %d", res.Missing)
	}
}

func TestParseResult_TwoLevels(t *testing.T) {
	aggs := decodeAggs(t, `{
		"weightedterms": {
			"doc_count": 20,
			"host": {
				"buckets": [
					{"key": "a", "doc_count": 20, "service": {"buckets": [
						{"key": "x", "doc_count": 10},
						{"key": "y", "doc_count": 10}
					]}}
				]
			}
		}
	}`)

	res, err := ParseResult(aggs, query.TermsQuery{Field: "host", SubField: "service"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Buckets[0].HasSubBuckets() {
		t.Fatal("expected sub-buckets")
	}
	sub := res.Buckets[0].SubBuckets()
	if len(sub) != 2 || sub[0].Key() != "x" || sub[1].DocCount() != 10 {
		t.Errorf("unexpected sub-buckets %+v", sub)
	}
}

func TestParseResult_NumericKeys(t *testing.T) {
	aggs := decodeAggs(t, `{
		"weightedterms": {
			"doc_count": 5,
			"code": {"buckets": [{"key": 404, "doc_count": 5}]}
		}
	}`)

	res, err := ParseResult(aggs, query.TermsQuery{Field: "code"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Buckets[0].Key() != "404" {
		t.Errorf("expected key 404, got %q", res.Buckets[0].Key())
	}
}

func TestParseResult_Malformed(t *testing.T) {
	tests := map[string]string{
		"no root":  `{}`,
		"no terms": `{"weightedterms": {"doc_count": 0}}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseResult(decodeAggs(t, raw), query.TermsQuery{Field: "status"})
			if !errors.Is(err, domain.ErrMalformedAggregation) {
				t.Fatalf("expected ErrMalformedAggregation, got %v", err)
			}
		})
	}
}

func TestHasFieldMapping(t *testing.T) {
	resp := map[string]any{
		"logs-1": map[string]any{"mappings": map[string]any{}},
		"logs-2": map[string]any{"mappings": map[string]any{"status.raw": map[string]any{}}},
	}
	if !hasFieldMapping(resp, "status.raw") {
		t.Error("expected field to be found")
	}
	if hasFieldMapping(resp, "host.raw") {
		t.Error("unexpected field match")
	}
}
