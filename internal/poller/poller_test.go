package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobfeed/internal/adapter"
	"github.com/amishk599/jobfeed/internal/aggregator"
	"github.com/amishk599/jobfeed/internal/model"
	"github.com/amishk599/jobfeed/internal/store"
)

// --- Fakes ---

// eventLog records the order in which pipeline stages ran.
type eventLog struct {
	events []string
}

func (l *eventLog) add(e string) { l.events = append(l.events, e) }

type fakeSource struct {
	log     *eventLog
	results []model.RawResult
	query   string
}

func (s *fakeSource) Aggregate(_ context.Context, query string) []model.RawResult {
	s.log.add("aggregate")
	s.query = query
	return s.results
}

// fakeStore returns a fixed set of "new" listings from Save.
type fakeStore struct {
	log      *eventLog
	fresh    []model.Listing
	err      error
	received []model.RawResult
}

func (s *fakeStore) Save(_ context.Context, results []model.RawResult) ([]model.Listing, error) {
	s.log.add("save")
	s.received = results
	return s.fresh, s.err
}

func (s *fakeStore) GetAll(context.Context) ([]model.Listing, error) { return s.fresh, nil }
func (s *fakeStore) GetByID(context.Context, int64) (model.Listing, error) {
	return model.Listing{}, model.ErrNotFound
}
func (s *fakeStore) Count(context.Context) (int, error) { return len(s.fresh), nil }

// recordingNotifier records which listings were sent to Notify.
type recordingNotifier struct {
	log     *eventLog
	batches [][]model.Listing
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, listings []model.Listing) error {
	if n.log != nil {
		n.log.add("notify")
	}
	n.batches = append(n.batches, listings)
	return n.err
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func listings(ids ...string) []model.Listing {
	out := make([]model.Listing, len(ids))
	for i, id := range ids {
		out[i] = model.Listing{ID: int64(i + 1), ExternalID: id, Headline: "Rörmokare", Source: "af"}
	}
	return out
}

// --- Tests ---

func TestPoll_NotifiesSavedSetAfterSave(t *testing.T) {
	log := &eventLog{}
	src := &fakeSource{log: log, results: []model.RawResult{{Source: "af"}, {Source: "af"}, {Source: "af"}, {Source: "af"}}}
	st := &fakeStore{log: log, fresh: listings("A1", "A2", "A3")}
	n := &recordingNotifier{log: log}

	p := NewPipeline("plumber Stockholm", src, st, n, discardLogger())
	fresh, err := p.Poll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"aggregate", "save", "notify"}
	if fmt.Sprint(log.events) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", log.events, want)
	}
	if src.query != "plumber Stockholm" {
		t.Errorf("query = %q", src.query)
	}
	if len(st.received) != 4 {
		t.Errorf("store received %d results, want 4", len(st.received))
	}
	if len(n.batches) != 1 {
		t.Fatalf("expected one notify call, got %d", len(n.batches))
	}
	var notified []string
	for _, l := range n.batches[0] {
		notified = append(notified, l.ExternalID)
	}
	if fmt.Sprint(notified) != fmt.Sprint([]string{"A1", "A2", "A3"}) {
		t.Errorf("notified %v, want exactly the saved set [A1 A2 A3]", notified)
	}
	if len(fresh) != 3 {
		t.Errorf("Poll returned %d listings, want 3", len(fresh))
	}
}

func TestPoll_NothingNewIsSilent(t *testing.T) {
	log := &eventLog{}
	n := &recordingNotifier{log: log}
	p := NewPipeline("q", &fakeSource{log: log}, &fakeStore{log: log}, n, discardLogger())

	if _, err := p.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(n.batches) != 0 {
		t.Error("notifier should not be called when nothing is new")
	}
}

func TestPoll_SaveErrorSkipsNotify(t *testing.T) {
	log := &eventLog{}
	n := &recordingNotifier{log: log}
	st := &fakeStore{log: log, err: errors.New("disk full")}
	p := NewPipeline("q", &fakeSource{log: log}, st, n, discardLogger())

	if _, err := p.Poll(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
	if len(n.batches) != 0 {
		t.Error("notifier should not be called on save error")
	}
}

func TestPoll_NotifyErrorIsReturned(t *testing.T) {
	log := &eventLog{}
	n := &recordingNotifier{log: log, err: errors.New("webhook down")}
	st := &fakeStore{log: log, fresh: listings("A1")}
	p := NewPipeline("q", &fakeSource{log: log}, st, n, discardLogger())

	fresh, err := p.Poll(context.Background())
	if err == nil {
		t.Fatal("expected notify error")
	}
	if len(fresh) != 1 {
		t.Errorf("expected the stored listing to be returned alongside the error")
	}
}

// TestPoll_PlumberStockholmScenario runs two cycles against a fake JobTech
// endpoint: A1,A2 then A1,A3. Only A3 is new the second time.
func TestPoll_PlumberStockholmScenario(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("q"); q != "plumber Stockholm" {
			t.Errorf("q = %q", q)
		}
		ids := []string{"A1", "A2"}
		if calls.Add(1) > 1 {
			ids = []string{"A1", "A3"}
		}
		hits := make([]map[string]any, len(ids))
		for i, id := range ids {
			hits[i] = map[string]any{"id": id, "headline": "Rörmokare " + id}
		}
		json.NewEncoder(w).Encode(map[string]any{"total": map[string]int{"value": len(ids)}, "hits": hits})
	}))
	defer srv.Close()

	logger := discardLogger()
	registry := adapter.NewRegistry()
	if err := registry.Register("af", adapter.TypeJobTech); err != nil {
		t.Fatal(err)
	}
	client := adapter.NewJobTechClient("af", srv.URL, 100, time.Second, srv.Client(), logger)
	agg := aggregator.New([]model.SourceClient{client}, logger)
	st := store.NewMemoryStore(registry, logger)
	n := &recordingNotifier{}

	p := NewPipeline("plumber Stockholm", agg, st, n, logger)
	ctx := context.Background()

	if _, err := p.Poll(ctx); err != nil {
		t.Fatalf("cycle 1: %v", err)
	}
	if _, err := p.Poll(ctx); err != nil {
		t.Fatalf("cycle 2: %v", err)
	}

	if len(n.batches) != 2 {
		t.Fatalf("expected 2 broadcasts, got %d", len(n.batches))
	}
	if got := externalIDs(n.batches[0]); got != "[A1 A2]" {
		t.Errorf("cycle 1 broadcast = %s, want [A1 A2]", got)
	}
	if got := externalIDs(n.batches[1]); got != "[A3]" {
		t.Errorf("cycle 2 broadcast = %s, want [A3]", got)
	}

	all, err := st.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if got := externalIDs(all); got != "[A1 A2 A3]" {
		t.Errorf("snapshot = %s, want [A1 A2 A3]", got)
	}
}

func TestPoll_UpstreamDownStillCompletes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	logger := discardLogger()
	registry := adapter.NewRegistry()
	registry.Register("af", adapter.TypeJobTech)
	client := adapter.NewJobTechClient("af", srv.URL, 100, time.Second, srv.Client(), logger)
	n := &recordingNotifier{}
	p := NewPipeline("q", aggregator.New([]model.SourceClient{client}, logger), store.NewMemoryStore(registry, logger), n, logger)

	if _, err := p.Poll(context.Background()); err != nil {
		t.Fatalf("expected the cycle to complete, got %v", err)
	}
	if len(n.batches) != 0 {
		t.Error("nothing should be broadcast when every source fails")
	}
}

func externalIDs(ls []model.Listing) string {
	ids := make([]string, len(ls))
	for i, l := range ls {
		ids[i] = l.ExternalID
	}
	return fmt.Sprint(ids)
}
