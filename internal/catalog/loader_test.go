package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/starford/langcards/internal/apperr"
	"github.com/starford/langcards/internal/models"
	"github.com/starford/langcards/internal/storage"
	"github.com/starford/langcards/internal/testutil"
)

func TestEnsure_LoadsOnce(t *testing.T) {
	p := testutil.NewProvider(testutil.TwoLanguages)
	l := NewLoader(p, time.Second, testutil.Logger())

	for i := 0; i < 5; i++ {
		cat, err := l.Ensure(context.Background())
		if err != nil {
			t.Fatalf("Ensure #%d: %v", i, err)
		}
		if cat.Len() != 2 {
			t.Fatalf("len = %d, want 2", cat.Len())
		}
	}
	if p.Calls() != 1 {
		t.Errorf("fetches = %d, want 1", p.Calls())
	}
	if !l.Loaded() {
		t.Error("loader should report loaded")
	}
}

func TestEnsure_FailureLeavesEmptyAndRetries(t *testing.T) {
	p := testutil.FailingProvider(testutil.ErrNetwork)
	l := NewLoader(p, time.Second, testutil.Logger())

	_, err := l.Ensure(context.Background())
	if !errors.Is(err, apperr.ErrResourceLoad) {
		t.Fatalf("err = %v, want ErrResourceLoad", err)
	}
	if !errors.Is(err, testutil.ErrNetwork) {
		t.Errorf("err = %v, should wrap the transport error", err)
	}
	if l.Loaded() {
		t.Fatal("catalog must stay empty after a failed load")
	}

	p.Set(testutil.TwoLanguages, nil)
	cat, err := l.Ensure(context.Background())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if cat.Len() != 2 {
		t.Errorf("len = %d, want 2", cat.Len())
	}
	if p.Calls() != 2 {
		t.Errorf("fetches = %d, want 2", p.Calls())
	}
}

func TestEnsure_ParseError(t *testing.T) {
	p := testutil.NewProvider(`{"not":"an array"}`)
	l := NewLoader(p, time.Second, testutil.Logger())

	_, err := l.Ensure(context.Background())
	if !errors.Is(err, apperr.ErrResourceParse) {
		t.Fatalf("err = %v, want ErrResourceParse", err)
	}
	if l.Loaded() {
		t.Error("catalog must stay empty after a parse failure")
	}
}

func TestEnsure_EmptyResourceIsRetried(t *testing.T) {
	p := testutil.NewProvider(`[]`)
	l := NewLoader(p, time.Second, testutil.Logger())

	cat, err := l.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !cat.Empty() || l.Loaded() {
		t.Fatal("empty resource must not populate the catalog")
	}
	if _, err := l.Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.Calls() != 2 {
		t.Errorf("fetches = %d, want 2", p.Calls())
	}
}

func TestEnsure_ConcurrentCallersShareOneFetch(t *testing.T) {
	p := testutil.NewProvider(testutil.TwoLanguages)
	release := p.Hold()
	l := NewLoader(p, 5*time.Second, testutil.Logger())

	const callers = 16
	var wg sync.WaitGroup
	results := make([]models.Catalog, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = l.Ensure(context.Background())
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	release()
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i].Len() != 2 {
			t.Errorf("caller %d: len = %d", i, results[i].Len())
		}
	}
	if p.Calls() != 1 {
		t.Errorf("fetches = %d, want 1", p.Calls())
	}
}

func TestEnsure_TimeoutIsLoadFailure(t *testing.T) {
	p := testutil.NewProvider(testutil.TwoLanguages)
	release := p.Hold()
	t.Cleanup(release)
	l := NewLoader(p, 50*time.Millisecond, testutil.Logger())

	_, err := l.Ensure(context.Background())
	if !errors.Is(err, apperr.ErrResourceLoad) {
		t.Fatalf("err = %v, want ErrResourceLoad", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if l.Loaded() {
		t.Error("timed out load must not populate the catalog")
	}
}

func TestEnsure_CallerCancelDoesNotAbortSharedLoad(t *testing.T) {
	p := testutil.NewProvider(testutil.TwoLanguages)
	release := p.Hold()
	l := NewLoader(p, 5*time.Second, testutil.Logger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Ensure(ctx); !errors.Is(err, apperr.ErrResourceLoad) {
		t.Fatalf("err = %v, want ErrResourceLoad", err)
	}

	release()
	cat, err := l.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if cat.Len() != 2 {
		t.Errorf("len = %d", cat.Len())
	}
	if p.Calls() != 1 {
		t.Errorf("fetches = %d, want 1", p.Calls())
	}
}

func TestEnsure_HTTPProviderFetchesOnce(t *testing.T) {
	srv, hits := testutil.CatalogServer(t, testutil.TwoLanguages)
	l := NewLoader(storage.NewHTTP(srv.URL, srv.Client()), time.Second, testutil.Logger())

	for i := 0; i < 3; i++ {
		if _, err := l.Ensure(context.Background()); err != nil {
			t.Fatalf("Ensure: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("requests = %d, want 1", hits.Load())
	}
	if l.Source() != srv.URL {
		t.Errorf("source = %q", l.Source())
	}
}
