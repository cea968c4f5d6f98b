package weights

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/weightedterms/internal/domain"
)

func TestHTTPFetcher_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("unexpected Accept header %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error": 5}`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, nil)
	body, err := f.Fetch(context.Background(), srv.URL+"/weights.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"error": 5}` {
		t.Errorf("unexpected body %q", body)
	}
}

func TestHTTPFetcher_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, nil)
	_, err := f.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, domain.ErrWeightsUnavailable) {
		t.Fatalf("expected ErrWeightsUnavailable, got %v", err)
	}
}

func TestHTTPFetcher_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := NewHTTPFetcher(time.Second, nil)
	_, err := f.Fetch(context.Background(), url)
	if !errors.Is(err, domain.ErrWeightsUnavailable) {
		t.Fatalf("expected ErrWeightsUnavailable, got %v", err)
	}
}

func TestHTTPFetcher_EmptyBodyIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, nil)
	body, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(body) != 0 {
		t.Errorf("expected empty body, got %q", body)
	}
}

func TestHTTPFetcher_SharesInFlightRequests(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5*time.Second, nil)

	const callers = 5
	var wg sync.WaitGroup
	started := make(chan struct{}, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started <- struct{}{}
			if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	for i := 0; i < callers; i++ {
		<-started
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := hits.Load(); n < 1 || n > callers {
		t.Fatalf("unexpected hit count %d", n)
	}
}

func TestHTTPFetcher_CancelledCallerDoesNotFailOthers(t *testing.T) {
	var hits atomic.Int32
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		arrived <- struct{}{}
		<-release
		_, _ = w.Write([]byte(`{"a":2}`))
	}))
	defer srv.Close()
	defer close(release)

	f := NewHTTPFetcher(5*time.Second, nil)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := f.Fetch(ctxA, srv.URL)
		errA <- err
	}()
	<-arrived

	type result struct {
		body []byte
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		body, err := f.Fetch(context.Background(), srv.URL)
		resB <- result{body, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller: got %v, want context.Canceled", err)
	}

	release <- struct{}{}
	got := <-resB
	if got.err != nil {
		t.Fatalf("live caller must not fail: %v", got.err)
	}
	if string(got.body) != `{"a":2}` {
		t.Errorf("unexpected body %q", got.body)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("expected one shared request, got %d", n)
	}
}
