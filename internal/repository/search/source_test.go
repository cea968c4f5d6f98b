package search

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/kailas-cloud/weightedterms/internal/domain/query"
)

func sourceJSON(t *testing.T, q query.TermsQuery) map[string]any {
	t.Helper()
	src, err := BuildSource(q).Source()
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	data, err := json.Marshal(src)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func dig(t *testing.T, m map[string]any, path ...string) map[string]any {
	t.Helper()
	cur := m
	for _, p := range path {
		next, ok := cur[p].(map[string]any)
		if !ok {
			t.Fatalf("missing %s in %v", strings.Join(path, "."), m)
		}
		cur = next
	}
	return cur
}

func TestBuildSource_TermsWithExclude(t *testing.T) {
	q := query.TermsQuery{Field: "status", Size: 5, Exclude: "^debug$"}
	out := sourceJSON(t, q)

	if size, _ := out["size"].(float64); size != 0 {
		t.Errorf("expected size 0, got %v", out["size"])
	}
	terms := dig(t, out, "aggregations", RootAggName, "aggregations", "status", "terms")
	if terms["field"] != "status" {
		t.Errorf("unexpected field %v", terms["field"])
	}
	if terms["size"] != float64(5) {
		t.Errorf("unexpected size %v", terms["size"])
	}
	if terms["exclude"] != "^debug$" {
		t.Errorf("unexpected exclude %v", terms["exclude"])
	}

	missing := dig(t, out, "aggregations", RootAggName, "aggregations", MissingAggName, "missing")
	if missing["field"] != "status" {
		t.Errorf("unexpected missing field %v", missing["field"])
	}
}

func TestBuildSource_SubAggregation(t *testing.T) {
	q := query.TermsQuery{Field: "host", SubField: "service", Size: 10}
	out := sourceJSON(t, q)

	sub := dig(t, out, "aggregations", RootAggName, "aggregations", "host", "aggregations", "service", "terms")
	if sub["field"] != "service" {
		t.Errorf("unexpected sub field %v", sub["field"])
	}
}

func TestBuildSource_NoExcludeWhenEmpty(t *testing.T) {
	out := sourceJSON(t, query.TermsQuery{Field: "f", Size: 3})
	terms := dig(t, out, "aggregations", RootAggName, "aggregations", "f", "terms")
	if _, ok := terms["exclude"]; ok {
		t.Error("exclude should be omitted when empty")
	}
}

func TestBuildSource_QueriesAndFilters(t *testing.T) {
	must, _ := query.NewTermsFilter("status.raw", "500", query.Must)
	notMissing, _ := query.NewExistsFilter("status.raw", query.MustNot)
	q := query.TermsQuery{
		Field:   "status",
		Size:    10,
		Queries: []query.Query{{ID: 0, Text: "level:error"}, {ID: 1, Text: "*"}},
		Filters: []query.Filter{must, notMissing},
	}
	out := sourceJSON(t, q)

	boolQ := dig(t, out, "aggregations", RootAggName, "filter", "bool")
	if _, ok := boolQ["must"]; !ok {
		t.Errorf("expected must clause for queries, got %v", boolQ)
	}
	if _, ok := boolQ["filter"]; !ok {
		t.Errorf("expected filter clause, got %v", boolQ)
	}
	if _, ok := boolQ["must_not"]; !ok {
		t.Errorf("expected must_not clause, got %v", boolQ)
	}

	data, _ := json.Marshal(boolQ)
	body := string(data)
	for _, want := range []string{`"query_string"`, `"match_all"`, `"level:error"`, `"exists"`, `"term"`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s in %s", want, body)
		}
	}
}
