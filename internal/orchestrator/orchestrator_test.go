package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"thepup/internal/config"
	"thepup/internal/models/domain"

	"github.com/google/uuid"
)

type fakeScraper struct {
	mu    sync.Mutex
	jobs  []config.SourceConfig
	done  []chan struct{}
	fails map[string]bool
}

func (f *fakeScraper) AddJob(_ uuid.UUID, source config.SourceConfig) (chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails[source.Name] {
		return nil, errors.New("unknown scraper")
	}
	ch := make(chan struct{})
	f.jobs = append(f.jobs, source)
	f.done = append(f.done, ch)
	return ch, nil
}

func (f *fakeScraper) finishAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.done {
		close(ch)
	}
	f.done = nil
}

func (f *fakeScraper) jobCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

type fakeAI struct {
	err      error
	enriched chan domain.Draft
}

func (f *fakeAI) AddJob(_ uuid.UUID, draft domain.Draft) (chan struct{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	draft.News.Summary = "enriched"
	f.enriched <- draft
	done := make(chan struct{})
	close(done)
	return done, nil
}

type fakeModerator struct {
	got chan domain.Draft
}

func (f *fakeModerator) SendDraft(draft domain.Draft) error {
	f.got <- draft
	return nil
}

func testConfig(sources ...config.SourceConfig) *config.Config {
	return &config.Config{ScraperConfig: config.ScraperConfig{Sources: sources}}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitDraft(t *testing.T, ch <-chan domain.Draft) domain.Draft {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for draft")
		return domain.Draft{}
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunOnceIsExclusive(t *testing.T) {
	scraper := &fakeScraper{fails: map[string]bool{"broken": true}}
	cfg := testConfig(
		config.SourceConfig{Name: "mec", URL: "https://example.com/events"},
		config.SourceConfig{Name: "rss", URL: "https://example.com/feed"},
		config.SourceConfig{Name: "broken", URL: "https://example.com"},
	)
	o := New(discardLogger(), cfg, scraper, nil, nil, nil, nil)

	if err := o.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	eventually(t, func() bool { return scraper.jobCount() == 2 })

	if err := o.RunOnce(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second RunOnce = %v; want ErrAlreadyRunning", err)
	}
	if !o.Running() {
		t.Fatal("import should be running")
	}

	scraper.finishAll()
	eventually(t, func() bool { return !o.Running() })

	if err := o.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce after finish: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := o.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown with pending jobs: %v", err)
	}
	if err := o.RunOnce(context.Background()); err == nil {
		t.Fatal("RunOnce after shutdown should fail")
	}
}

func TestDraftsFlowThroughAI(t *testing.T) {
	completed := make(chan domain.Draft, 1)
	enriched := make(chan domain.Draft, 1)
	moderator := &fakeModerator{got: make(chan domain.Draft, 1)}
	ai := &fakeAI{enriched: enriched}

	o := New(discardLogger(), testConfig(), &fakeScraper{}, ai, moderator, completed, enriched)
	if err := o.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer o.Shutdown(context.Background())

	completed <- domain.NewsDraft(domain.News{ID: uuid.New(), Title: "Comeback"})

	got := waitDraft(t, moderator.got)
	if got.News.Summary != "enriched" {
		t.Fatalf("draft was not enriched: %+v", got.News)
	}
}

func TestDraftsSkipFailingAI(t *testing.T) {
	completed := make(chan domain.Draft, 1)
	moderator := &fakeModerator{got: make(chan domain.Draft, 1)}
	ai := &fakeAI{err: errors.New("buffer full")}

	o := New(discardLogger(), testConfig(), &fakeScraper{}, ai, moderator, completed, nil)
	if err := o.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer o.Shutdown(context.Background())

	id := uuid.New()
	completed <- domain.EventDraft(domain.Event{ID: id, Title: "Cupsleeve"})

	if got := waitDraft(t, moderator.got); got.ID() != id || got.Kind != domain.KindEvent {
		t.Fatalf("unexpected draft %+v", got)
	}
}

func TestDraftsWithoutAI(t *testing.T) {
	completed := make(chan domain.Draft, 1)
	moderator := &fakeModerator{got: make(chan domain.Draft, 1)}

	o := New(discardLogger(), testConfig(), &fakeScraper{}, nil, moderator, completed, nil)
	if err := o.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer o.Shutdown(context.Background())

	completed <- domain.NewsDraft(domain.News{ID: uuid.New(), Title: "Tour dates"})

	if got := waitDraft(t, moderator.got); got.Title() != "Tour dates" {
		t.Fatalf("unexpected draft %+v", got)
	}
}

func TestStartSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.ScraperConfig.Schedule = "every day at noon"
	o := New(discardLogger(), cfg, &fakeScraper{}, nil, nil, nil, nil)
	if err := o.Start(); err == nil {
		t.Fatal("invalid cron schedule must fail")
	}

	scraper := &fakeScraper{}
	cfg = testConfig(config.SourceConfig{Name: "rss", URL: "https://example.com/feed"})
	cfg.ScraperConfig.Schedule = "@every 1h"
	cfg.ScraperConfig.RunOnStart = true
	o = New(discardLogger(), cfg, scraper, nil, nil, nil, nil)
	if err := o.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	eventually(t, func() bool { return scraper.jobCount() == 1 })
	scraper.finishAll()

	if err := o.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
