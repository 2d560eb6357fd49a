package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/starford/langcards/internal/apperr"
	"github.com/starford/langcards/internal/catalog"
	"github.com/starford/langcards/internal/models"
	"github.com/starford/langcards/internal/render"
	"github.com/starford/langcards/internal/testutil"
)

// enteredSource reports every Ensure call before delegating.
type enteredSource struct {
	Source
	entered chan struct{}
}

func (s *enteredSource) Ensure(ctx context.Context) (models.Catalog, error) {
	s.entered <- struct{}{}
	return s.Source.Ensure(ctx)
}

func newPipeline(t *testing.T, p *testutil.Provider) (*Pipeline, *render.View) {
	t.Helper()
	loader := catalog.NewLoader(p, time.Second, testutil.Logger())
	view := render.NewView()
	return NewPipeline(loader, render.NewRenderer("", testutil.Logger()), view, testutil.Logger()), view
}

func titles(v *render.View) []string {
	var out []string
	for _, c := range v.Cards() {
		out = append(out, c.Title)
	}
	return out
}

func assertTitles(t *testing.T, v *render.View, want ...string) {
	t.Helper()
	got := titles(v)
	if len(got) != len(want) {
		t.Fatalf("cards = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cards = %v, want %v", got, want)
		}
	}
}

func TestScenario_NameMatch(t *testing.T) {
	pl, view := newPipeline(t, testutil.NewProvider(testutil.TwoLanguages))
	if out := pl.HandleSearch(context.Background(), "go"); out != Rendered {
		t.Fatalf("outcome = %v", out)
	}
	assertTitles(t, view, "Go")
}

func TestScenario_DescriptionMatch(t *testing.T) {
	pl, view := newPipeline(t, testutil.NewProvider(testutil.TwoLanguages))
	pl.HandleSearch(context.Background(), "safe")
	assertTitles(t, view, "Rust")
}

func TestScenario_NoMatch(t *testing.T) {
	pl, view := newPipeline(t, testutil.NewProvider(testutil.TwoLanguages))
	pl.HandleSearch(context.Background(), "go")
	pl.HandleSearch(context.Background(), "xyz")
	assertTitles(t, view)
}

func TestScenario_EmptyQueryRendersAll(t *testing.T) {
	pl, view := newPipeline(t, testutil.NewProvider(testutil.TwoLanguages))
	pl.HandleSearch(context.Background(), "")
	assertTitles(t, view, "Go", "Rust")
}

func TestScenario_LoadFailureThenRetry(t *testing.T) {
	p := testutil.FailingProvider(testutil.ErrNetwork)
	pl, view := newPipeline(t, p)

	if out := pl.HandleSearch(context.Background(), ""); out != Aborted {
		t.Fatalf("outcome = %v, want aborted", out)
	}
	assertTitles(t, view)

	p.Set(testutil.TwoLanguages, nil)
	if out := pl.HandleSearch(context.Background(), ""); out != Rendered {
		t.Fatalf("outcome = %v, want rendered", out)
	}
	assertTitles(t, view, "Go", "Rust")
	if p.Calls() != 2 {
		t.Errorf("fetches = %d, want 2", p.Calls())
	}
}

func TestFailureLeavesPreviousCards(t *testing.T) {
	view := render.NewView()
	renderer := render.NewRenderer("", testutil.Logger())
	good := NewPipeline(catalog.NewLoader(testutil.NewProvider(testutil.TwoLanguages), time.Second, testutil.Logger()), renderer, view, testutil.Logger())
	good.HandleSearch(context.Background(), "rust")

	bad := NewPipeline(catalog.NewLoader(testutil.FailingProvider(testutil.ErrNetwork), time.Second, testutil.Logger()), renderer, view, testutil.Logger())
	if out := bad.HandleSearch(context.Background(), ""); out != Aborted {
		t.Fatalf("outcome = %v", out)
	}
	assertTitles(t, view, "Rust")
}

func TestEmptyCatalogAborts(t *testing.T) {
	pl, view := newPipeline(t, testutil.NewProvider(`[]`))
	view.Append(render.Card{Title: "previous"})
	if out := pl.HandleSearch(context.Background(), ""); out != Aborted {
		t.Fatalf("outcome = %v, want aborted", out)
	}
	assertTitles(t, view, "previous")
}

func TestIdempotent(t *testing.T) {
	pl, view := newPipeline(t, testutil.NewProvider(testutil.TwoLanguages))
	pl.HandleSearch(context.Background(), "s")
	first := titles(view)
	pl.HandleSearch(context.Background(), "s")
	second := titles(view)
	if len(first) != len(second) {
		t.Fatalf("first = %v, second = %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("first = %v, second = %v", first, second)
		}
	}
}

func TestLoadOnceAcrossSearches(t *testing.T) {
	p := testutil.NewProvider(testutil.TwoLanguages)
	pl, _ := newPipeline(t, p)
	for _, q := range []string{"", "g", "go", "r", "ru", "rust", "xyz", ""} {
		pl.HandleSearch(context.Background(), q)
	}
	if p.Calls() != 1 {
		t.Errorf("fetches = %d, want 1", p.Calls())
	}
}

func TestStaleResultDiscarded(t *testing.T) {
	p := testutil.NewProvider(testutil.TwoLanguages)
	release := p.Hold()
	loader := catalog.NewLoader(p, 5*time.Second, testutil.Logger())
	src := &enteredSource{Source: loader, entered: make(chan struct{}, 2)}
	view := render.NewView()
	pl := NewPipeline(src, render.NewRenderer("", testutil.Logger()), view, testutil.Logger())

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		outcomes[0] = pl.HandleSearch(context.Background(), "go")
	}()
	<-src.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		outcomes[1] = pl.HandleSearch(context.Background(), "safe")
	}()
	<-src.entered

	release()
	wg.Wait()

	if outcomes[0] != Superseded {
		t.Errorf("older query outcome = %v, want superseded", outcomes[0])
	}
	if outcomes[1] != Rendered {
		t.Errorf("newer query outcome = %v, want rendered", outcomes[1])
	}
	assertTitles(t, view, "Rust")
}

func TestHandleSearchSeq_LateOlderQueryDropped(t *testing.T) {
	pl, view := newPipeline(t, testutil.NewProvider(testutil.TwoLanguages))
	ctx := context.Background()

	if out := pl.HandleSearchSeq(ctx, "go", 2); out != Rendered {
		t.Fatalf("seq 2 outcome = %v, want rendered", out)
	}
	if out := pl.HandleSearchSeq(ctx, "r", 1); out != Superseded {
		t.Fatalf("late seq 1 outcome = %v, want superseded", out)
	}
	if out := pl.HandleSearchSeq(ctx, "", 2); out != Superseded {
		t.Fatalf("repeated seq 2 outcome = %v, want superseded", out)
	}
	assertTitles(t, view, "Go")
	if pl.Latest() != 2 {
		t.Errorf("latest = %d, want 2", pl.Latest())
	}
}

func TestHandleSearchSeq_AfterPipelineNumbering(t *testing.T) {
	pl, view := newPipeline(t, testutil.NewProvider(testutil.TwoLanguages))
	ctx := context.Background()

	pl.HandleSearch(ctx, "")
	if out := pl.HandleSearchSeq(ctx, "safe", pl.Latest()); out != Superseded {
		t.Errorf("seq equal to latest should be superseded, got %v", out)
	}
	if out := pl.HandleSearchSeq(ctx, "safe", pl.Latest()+1); out != Rendered {
		t.Errorf("next seq outcome = %v, want rendered", out)
	}
	assertTitles(t, view, "Rust")
}

func TestSearchHelper(t *testing.T) {
	loader := catalog.NewLoader(testutil.NewProvider(testutil.TwoLanguages), time.Second, testutil.Logger())
	recs, err := Search(context.Background(), loader, "GO")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Name != "Go" {
		t.Errorf("recs = %+v", recs)
	}

	failing := catalog.NewLoader(testutil.FailingProvider(testutil.ErrNetwork), time.Second, testutil.Logger())
	if _, err := Search(context.Background(), failing, ""); err == nil {
		t.Error("expected error from failing source")
	}

	empty := catalog.NewLoader(testutil.NewProvider(`[]`), time.Second, testutil.Logger())
	if _, err := Search(context.Background(), empty, ""); !errors.Is(err, apperr.ErrResourceLoad) {
		t.Errorf("empty catalog err = %v, want ErrResourceLoad", err)
	}
}

func TestOutcomeString(t *testing.T) {
	for o, want := range map[Outcome]string{Rendered: "rendered", Aborted: "aborted", Superseded: "superseded", Outcome(9): "unknown"} {
		if o.String() != want {
			t.Errorf("%d.String() = %q, want %q", o, o.String(), want)
		}
	}
}
