package overview

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"StockOverview/internal/bucket"
	"StockOverview/internal/cache"
	"StockOverview/internal/collector"
	"StockOverview/internal/model"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T, withCache bool) (*Service, *collector.MockFetcher, *cache.FileStore, *clock) {
	t.Helper()
	mock := &collector.MockFetcher{Bodies: collector.MockBodies("AAPL")}
	clk := &clock{t: time.Date(2024, time.January, 2, 15, 30, 10, 0, time.UTC)}

	var store *cache.FileStore
	svc := NewService(collector.NewCollector(mock), nil, nil)
	if withCache {
		var err error
		store, err = cache.NewFileStore(t.TempDir(), time.UTC)
		if err != nil {
			t.Fatalf("NewFileStore: %v", err)
		}
		svc.Store = store
	}
	svc.Location = time.UTC
	svc.Now = clk.Now
	return svc, mock, store, clk
}

func cacheFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	sort.Strings(names)
	return names
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestOverview_FetchThenServeFromCache(t *testing.T) {
	svc, mock, store, _ := newTestService(t, true)
	ctx := context.Background()

	first, err := svc.Overview(ctx, Request{Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("first Overview: %v", err)
	}
	if n := len(mock.Calls()); n != 9 {
		t.Errorf("first call made %d upstream requests, want 9", n)
	}
	if first.Quote == nil || first.Quote.Symbol != "AAPL" {
		t.Fatalf("quote = %+v", first.Quote)
	}
	if first.Charts.InitialKey != model.KeyOneDay {
		t.Errorf("initialKey = %q", first.Charts.InitialKey)
	}

	want := []string{"AAPL-202401021530.json", "AAPL-YTD-20240102.json"}
	if got := cacheFiles(t, store.Dir); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("cache files = %v, want %v", got, want)
	}

	mock.Reset()
	second, err := svc.Overview(ctx, Request{Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("second Overview: %v", err)
	}
	if n := len(mock.Calls()); n != 0 {
		t.Errorf("second call made %d upstream requests, want 0", n)
	}
	if a, b := mustJSON(t, first), mustJSON(t, second); a != b {
		t.Errorf("cached payload differs:\nfirst:  %s\nsecond: %s", a, b)
	}
}

func TestOverview_MinuteRolloverPrunes(t *testing.T) {
	svc, mock, store, clk := newTestService(t, true)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := svc.Overview(ctx, Request{Symbol: "AAPL"}); err != nil {
			t.Fatalf("Overview at minute %d: %v", i, err)
		}
		clk.Advance(time.Minute)
	}

	// 15:30 was pruned by the 15:33 request; the day bucket was fetched once.
	want := []string{
		"AAPL-202401021531.json",
		"AAPL-202401021532.json",
		"AAPL-202401021533.json",
		"AAPL-YTD-20240102.json",
	}
	got := cacheFiles(t, store.Dir)
	if len(got) != len(want) {
		t.Fatalf("cache files = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cache files = %v, want %v", got, want)
			break
		}
	}

	var daily int
	for _, c := range mock.Calls() {
		if filepath.Base(c) == "1m?chartCloseOnly=true" {
			daily++
		}
	}
	if daily != 1 {
		t.Errorf("one-month range fetched %d times, want 1", daily)
	}
}

func TestOverview_CorruptEntryIsRefetched(t *testing.T) {
	svc, mock, store, clk := newTestService(t, true)
	ctx := context.Background()

	key := bucket.MinuteKey("AAPL", clk.Now())
	if err := os.WriteFile(filepath.Join(store.Dir, key+".json"), []byte(`{"quote":`), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := svc.Overview(ctx, Request{Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if p.Quote == nil || p.Quote.Symbol != "AAPL" {
		t.Fatalf("quote = %+v", p.Quote)
	}
	if n := len(mock.Calls()); n != 9 {
		t.Errorf("upstream calls = %d, want 9", n)
	}

	var entry model.MinuteEntry
	if err := store.Read(ctx, key, &entry); err != nil {
		t.Fatalf("corrupt entry was not replaced: %v", err)
	}
}

func TestOverview_UpstreamErrorWritesNothing(t *testing.T) {
	svc, mock, store, clk := newTestService(t, true)
	mock.Errors = map[string]error{
		"/stock/AAPL/quote": &collector.UpstreamError{Path: "/stock/AAPL/quote", Status: 401, Body: "bad token"},
	}

	_, err := svc.Overview(context.Background(), Request{Symbol: "AAPL"})
	var ue *collector.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
	// The day bucket resolves on its own and may still be cached.
	minuteFile := bucket.MinuteKey("AAPL", clk.Now()) + ".json"
	for _, f := range cacheFiles(t, store.Dir) {
		if f == minuteFile {
			t.Errorf("failed minute bucket was cached: %v", f)
		}
	}
}

func TestOverview_BothBucketsFailMinuteWins(t *testing.T) {
	svc, mock, _, _ := newTestService(t, true)
	mock.Errors = map[string]error{
		"/stock/AAPL/quote":                        &collector.UpstreamError{Path: "/stock/AAPL/quote", Status: 401},
		"/stock/AAPL/chart/1y?chartCloseOnly=true": collector.ErrTransport,
	}

	_, err := svc.Overview(context.Background(), Request{Symbol: "AAPL"})
	var ue *collector.UpstreamError
	if !errors.As(err, &ue) || ue.Status != 401 {
		t.Fatalf("err = %v, want the minute bucket's UpstreamError", err)
	}
}

// rendezvousFetcher holds the quote request until a historical range request
// has started, so it only succeeds when both buckets are in flight together.
type rendezvousFetcher struct {
	*collector.MockFetcher
	once    sync.Once
	started chan struct{}
}

func (f *rendezvousFetcher) Get(ctx context.Context, token, path string) ([]byte, error) {
	if strings.Contains(path, "/chart/") {
		f.once.Do(func() { close(f.started) })
	}
	if strings.HasSuffix(path, "/quote") {
		select {
		case <-f.started:
		case <-time.After(2 * time.Second):
			return nil, errors.New("daily bucket never started")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.MockFetcher.Get(ctx, token, path)
}

func TestOverview_ResolvesBucketsConcurrently(t *testing.T) {
	svc, mock, store, _ := newTestService(t, true)
	svc.Collector = collector.NewCollector(&rendezvousFetcher{MockFetcher: mock, started: make(chan struct{})})

	p, err := svc.Overview(context.Background(), Request{Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if p.Quote == nil || p.Charts.OneMonth == nil {
		t.Fatalf("payload = %+v", p)
	}
	if n := len(cacheFiles(t, store.Dir)); n != 2 {
		t.Errorf("cache files = %d, want 2", n)
	}
}

func TestOverview_WithoutCache(t *testing.T) {
	svc, mock, _, _ := newTestService(t, false)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.Overview(ctx, Request{Symbol: "AAPL"}); err != nil {
			t.Fatalf("Overview: %v", err)
		}
	}
	if n := len(mock.Calls()); n != 18 {
		t.Errorf("upstream calls = %d, want 18", n)
	}
}

func TestOverview_Selected(t *testing.T) {
	svc, _, _, _ := newTestService(t, true)

	p, err := svc.Overview(context.Background(), Request{Symbol: "AAPL", Selected: model.KeyThreeMonth})
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if p.Charts.Current != p.Charts.ThreeMonth || p.Charts.InitialKey != model.KeyThreeMonth {
		t.Errorf("current = %q", p.Charts.InitialKey)
	}
	if p.Charts.OneDay.Show || !p.Charts.ThreeMonth.Show {
		t.Error("show flags not moved to the selected chart")
	}
}

func TestOverview_InvalidSymbol(t *testing.T) {
	svc, mock, _, _ := newTestService(t, true)

	for _, sym := range []string{"", "   ", "../etc", "AAPL MSFT", "ABCDEFGHIJKLMNOPQ"} {
		if _, err := svc.Overview(context.Background(), Request{Symbol: sym}); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("Overview(%q) err = %v, want ErrInvalidRequest", sym, err)
		}
	}
	if n := len(mock.Calls()); n != 0 {
		t.Errorf("invalid requests reached upstream %d times", n)
	}
}
