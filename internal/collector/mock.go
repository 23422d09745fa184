package collector

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockFetcher serves canned bodies by path for development and testing.
type MockFetcher struct {
	Bodies map[string]string
	Errors map[string]error
	Delays map[string]time.Duration

	mu    sync.Mutex
	calls []string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) Get(ctx context.Context, _ string, path string) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, path)
	m.mu.Unlock()

	if d := m.Delays[path]; d > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
	}
	if err := m.Errors[path]; err != nil {
		return nil, err
	}
	body, ok := m.Bodies[path]
	if !ok {
		return nil, &UpstreamError{Path: path, Status: 404, Body: "Unknown symbol"}
	}
	return []byte(body), nil
}

// Calls returns the paths requested so far, in arrival order.
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Reset forgets recorded calls.
func (m *MockFetcher) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

// MockBodies returns a complete set of canned answers for symbol: a quote,
// three news items, intraday prices and the six historical ranges. Each range
// closes at a distinct price (1m=101 ... 5y=106) so tests can tell them apart.
func MockBodies(symbol string) map[string]string {
	b := map[string]string{
		"/stock/" + symbol + "/quote": fmt.Sprintf(`{"symbol":%q,"companyName":"Apple Inc.","latestPrice":187.4567,`+
			`"change":-1.234,"changePercent":-0.00654,"extendedChange":null,"extendedChangePercent":0,`+
			`"latestUpdate":1704209400000,"isUSMarketOpen":true}`, symbol),
		"/stock/" + symbol + "/news/last/3": `[` +
			`{"datetime":1704200000000,"headline":"First","source":"Reuters","url":"https://example.com/1","summary":"one","image":"https://example.com/1.png","lang":"en","hasPaywall":false},` +
			`{"datetime":"2024-01-02T10:00:00Z","headline":"Second","source":"CNBC","url":"https://example.com/2","summary":"two","image":"","lang":"en","hasPaywall":true},` +
			`{"datetime":1704100000000,"headline":"Third","source":"WSJ","url":"https://example.com/3","summary":"three","image":"","lang":"en","hasPaywall":true}]`,
		"/stock/" + symbol + "/intraday-prices?chartIEXOnly=true": `[` +
			`{"date":"2024-01-02","minute":"09:30","label":"09:30 AM","close":187.1},` +
			`{"date":"2024-01-02","minute":"09:31","label":"09:31 AM","close":null},` +
			`{"date":"2024-01-02","minute":"09:32","label":"09:32 AM","close":187.3}]`,
	}
	for i, r := range dailyRanges {
		b["/stock/"+symbol+"/chart/"+r.Range+"?chartCloseOnly=true"] = fmt.Sprintf(
			`[{"date":"2023-12-29","close":%d},{"date":"2024-01-02","close":%d.5}]`, 101+i, 101+i)
	}
	return b
}
