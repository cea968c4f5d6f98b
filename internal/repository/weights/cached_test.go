package weights

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/weightedterms/internal/db"
)

// --- Mocks ---

type mockStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	delFn func(ctx context.Context, key string) error
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

type mockFetcher struct {
	body  []byte
	err   error
	calls int
}

func (m *mockFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	m.calls++
	return m.body, m.err
}

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_weights_cache_total"}, []string{"result"})
}

// --- Tests ---

func TestCachedFetcher_MissStoresPayload(t *testing.T) {
	inner := &mockFetcher{body: []byte(`{"a":2}`)}
	var storedKey string
	var storedTTL time.Duration
	ms := &mockStore{
		setFn: func(_ context.Context, key string, _ []byte, ttl time.Duration) error {
			storedKey, storedTTL = key, ttl
			return nil
		},
	}
	counter := newCounter()
	cf := NewCachedFetcher(inner, ms, time.Hour, counter, nil)

	body, err := cf.Fetch(context.Background(), "http://w/weights.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"a":2}` {
		t.Errorf("unexpected body %q", body)
	}
	if storedKey != CacheKey("http://w/weights.json") {
		t.Errorf("unexpected cache key %q", storedKey)
	}
	if !strings.HasPrefix(storedKey, KeyPrefix) {
		t.Errorf("cache key must be prefixed, got %q", storedKey)
	}
	if storedTTL != time.Hour {
		t.Errorf("expected ttl 1h, got %v", storedTTL)
	}
	if v := testutil.ToFloat64(counter.WithLabelValues("miss")); v != 1 {
		t.Errorf("expected 1 miss, got %f", v)
	}
}

func TestCachedFetcher_Hit(t *testing.T) {
	inner := &mockFetcher{body: []byte(`{"a":9}`)}
	ms := &mockStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) {
			return []byte(`{"a":2}`), nil
		},
	}
	counter := newCounter()
	cf := NewCachedFetcher(inner, ms, time.Hour, counter, nil)

	body, err := cf.Fetch(context.Background(), "http://w/weights.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"a":2}` {
		t.Errorf("expected cached body, got %q", body)
	}
	if inner.calls != 0 {
		t.Error("inner fetcher must not be called on hit")
	}
	if v := testutil.ToFloat64(counter.WithLabelValues("hit")); v != 1 {
		t.Errorf("expected 1 hit, got %f", v)
	}
}

func TestCachedFetcher_StoreErrorsDegrade(t *testing.T) {
	inner := &mockFetcher{body: []byte(`{}`)}
	ms := &mockStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) {
			return nil, &db.Error{Op: db.OpGet, Err: errors.New("conn refused")}
		},
		setFn: func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
			return &db.Error{Op: db.OpSet, Err: errors.New("conn refused")}
		},
	}
	cf := NewCachedFetcher(inner, ms, time.Hour, nil, nil)

	body, err := cf.Fetch(context.Background(), "http://w/weights.json")
	if err != nil {
		t.Fatalf("cache errors must not surface: %v", err)
	}
	if string(body) != `{}` {
		t.Errorf("unexpected body %q", body)
	}
	if inner.calls != 1 {
		t.Errorf("expected one inner call, got %d", inner.calls)
	}
}

func TestCachedFetcher_EmptyPayloadNotCached(t *testing.T) {
	inner := &mockFetcher{body: nil}
	var setCalled bool
	ms := &mockStore{
		setFn: func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
			setCalled = true
			return nil
		},
	}
	cf := NewCachedFetcher(inner, ms, time.Hour, nil, nil)

	if _, err := cf.Fetch(context.Background(), "http://w/empty.json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if setCalled {
		t.Error("empty payload must not be cached")
	}
}

func TestCachedFetcher_InnerError(t *testing.T) {
	inner := &mockFetcher{err: errors.New("down")}
	cf := NewCachedFetcher(inner, &mockStore{}, time.Hour, nil, nil)

	if _, err := cf.Fetch(context.Background(), "http://w/weights.json"); err == nil {
		t.Fatal("expected error from inner fetcher")
	}
}

func TestCachedFetcher_Evict(t *testing.T) {
	var deleted string
	ms := &mockStore{
		delFn: func(_ context.Context, key string) error {
			deleted = key
			return nil
		},
	}
	cf := NewCachedFetcher(&mockFetcher{}, ms, time.Hour, nil, nil)

	if err := cf.Evict(context.Background(), "http://w/weights.json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != CacheKey("http://w/weights.json") {
		t.Errorf("deleted %q, want %q", deleted, CacheKey("http://w/weights.json"))
	}
}

func TestCachedFetcher_EvictError(t *testing.T) {
	ms := &mockStore{
		delFn: func(_ context.Context, _ string) error {
			return errors.New("connection reset")
		},
	}
	cf := NewCachedFetcher(&mockFetcher{}, ms, time.Hour, nil, nil)

	err := cf.Evict(context.Background(), "http://w/weights.json")
	if err == nil || !strings.Contains(err.Error(), "evict cached weights") {
		t.Fatalf("expected wrapped evict error, got %v", err)
	}
}
