package weightedterms

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/olivere/elastic/v7"
	"go.uber.org/zap"
)

// --- Mocks ---

type mockFetcher struct {
	body []byte
	err  error
	urls []string
}

func (m *mockFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	m.urls = append(m.urls, url)
	return m.body, m.err
}

const singleLevelResponse = `{
	"took": 2,
	"hits": {"total": {"value": 160, "relation": "eq"}, "hits": []},
	"aggregations": {
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
	}
}`

const twoLevelResponse = `{
	"took": 2,
	"hits": {"total": {"value": 30, "relation": "eq"}, "hits": []},
	"aggregations": {
		"weightedterms": {
			"doc_count": 30,
			"host": {
				"sum_other_doc_count": 0,
				"buckets": [
					{"key": "h1", "doc_count": 30, "service": {"buckets": [
						{"key": "api", "doc_count": 10},
						{"key": "db", "doc_count": 20}
					]}}
				]
			},
			"weightedterms_missing": {"doc_count": 0}
		}
	}
}`

func newTestClient(t *testing.T, body string, fetcher *mockFetcher) (*Client, *map[string]any) {
	t.Helper()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	cfg := &clientConfig{urls: []string{srv.URL}, logger: zap.NewNop()}
	if fetcher != nil {
		cfg.weightsFetcher = fetcher
	}
	es, err := elastic.NewClient(esOptions(cfg)...)
	if err != nil {
		t.Fatalf("new elastic client: %v", err)
	}
	c := wireClient(es, cfg)
	t.Cleanup(c.Close)
	return c, &got
}

// --- Tests ---

func TestNew_NoURL(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatal("expected error when no url provided")
	}
}

func TestTerms_Validation(t *testing.T) {
	c, _ := newTestClient(t, singleLevelResponse, nil)

	if _, err := c.Terms("").In("logs").Do(context.Background()); err == nil {
		t.Error("expected error for empty field")
	}
	if _, err := c.Terms("status").In("logs").Where("", "x").Do(context.Background()); err == nil {
		t.Error("expected error for filter without field")
	}
}

func TestTerms_NoIndicesIsEmpty(t *testing.T) {
	c, got := newTestClient(t, singleLevelResponse, nil)

	res, err := c.Terms("status").Do(context.Background())
	if err != nil {
		t.Fatalf("expected no error without indices, got %v", err)
	}
	if len(res.Points) != 0 || res.Other != 0 || res.Missing != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
	if *got != nil {
		t.Error("no request may be issued without indices")
	}
}

func TestTerms_WeightsReorder(t *testing.T) {
	c, _ := newTestClient(t, singleLevelResponse, nil)

	res, err := c.Terms("status").
		In("logs").
		Weights(map[string]float64{"b": 4}).
		Do(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Points) != 2 {
		t.Fatalf("points: got %d, want 2", len(res.Points))
	}
	if res.Points[0].Label != "b" || res.Points[0].Value != 200 {
		t.Errorf("first: got %+v, want b=200", res.Points[0])
	}
	if res.Points[1].Label != "a" || res.Points[1].Rank != 1 {
		t.Errorf("second: got %+v, want a rank 1", res.Points[1])
	}
	if res.Other != 7 || res.Missing != 3 {
		t.Errorf("other/missing: got %d/%d, want 7/3", res.Other, res.Missing)
	}
	if res.WeightsOrigin != "manual" {
		t.Errorf("origin: got %q, want manual", res.WeightsOrigin)
	}
}

func TestTerms_RequestBody(t *testing.T) {
	c, got := newTestClient(t, singleLevelResponse, nil)

	_, err := c.Terms("status").
		In("logs").
		Size(5).
		Exclude("debug.*").
		Query("level:error").
		WhereNot("env", "test").
		Do(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if (*got)["size"] != float64(0) {
		t.Errorf("size: got %v, want 0", (*got)["size"])
	}
	aggs, _ := (*got)["aggregations"].(map[string]any)
	outer, _ := aggs["weightedterms"].(map[string]any)
	inner, _ := outer["aggregations"].(map[string]any)
	status, _ := inner["status"].(map[string]any)
	terms, _ := status["terms"].(map[string]any)
	if terms["size"] != float64(5) {
		t.Errorf("terms size: got %v, want 5", terms["size"])
	}
	if terms["exclude"] != "debug.*" {
		t.Errorf("exclude: got %v, want debug.*", terms["exclude"])
	}
}

func TestTerms_TwoLevel(t *testing.T) {
	c, _ := newTestClient(t, twoLevelResponse, nil)

	res, err := c.Terms("host").
		By("service").
		In("logs").
		Weights(map[string]float64{"api": 2, "db": 3}).
		Do(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Points) != 1 || res.Points[0].Value != 80 {
		t.Errorf("points: got %+v, want h1=80", res.Points)
	}
}

func TestTerms_WeightsFallback(t *testing.T) {
	fetcher := &mockFetcher{body: []byte(`{"a": 0.5}`)}
	c, _ := newTestClient(t, singleLevelResponse, fetcher)

	res, err := c.Terms("status").
		In("logs").
		WeightsJSON("not json").
		WeightsURL("http://w/weights.json").
		Do(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.WeightsOrigin != "file" {
		t.Errorf("origin: got %q, want file", res.WeightsOrigin)
	}
	if len(fetcher.urls) != 1 || fetcher.urls[0] != "http://w/weights.json" {
		t.Errorf("fetched urls: got %v", fetcher.urls)
	}
	if len(res.Messages) != 2 {
		t.Errorf("messages: got %v, want invalid manual + file", res.Messages)
	}
	// a: floor(0.5*100) = 50 ties b: 50, original order kept.
	if res.Points[0].Label != "a" || res.Points[0].Value != 50 || res.Points[1].Value != 50 {
		t.Errorf("points: got %+v", res.Points)
	}
}

func TestTerms_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error": {"type": "boom", "reason": "boom"}, "status": 500}`)
	}))
	t.Cleanup(srv.Close)

	cfg := &clientConfig{urls: []string{srv.URL}, logger: zap.NewNop()}
	es, err := elastic.NewClient(esOptions(cfg)...)
	if err != nil {
		t.Fatalf("new elastic client: %v", err)
	}
	c := wireClient(es, cfg)

	_, err = c.Terms("status").In("logs").Do(context.Background())
	if !errors.Is(err, ErrSearchBackend) {
		t.Errorf("got %v, want ErrSearchBackend", err)
	}
}
