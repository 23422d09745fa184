package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"StockOverview/internal/model"
)

type sent struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

func telegramServer(t *testing.T, failures int) (*httptest.Server, func() []sent) {
	t.Helper()
	var (
		mu   sync.Mutex
		msgs []sent
		seen int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("path = %q", r.URL.Path)
		}
		mu.Lock()
		defer mu.Unlock()
		seen++
		if seen <= failures {
			http.Error(w, `{"ok":false}`, http.StatusTooManyRequests)
			return
		}
		var m sent
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			t.Errorf("decode: %v", err)
		}
		msgs = append(msgs, m)
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []sent {
		mu.Lock()
		defer mu.Unlock()
		return append([]sent(nil), msgs...)
	}
}

func testNotifier(url string) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "42", "")
	n.APIBase = url
	n.Backoff = time.Millisecond
	return n
}

func TestSend(t *testing.T) {
	srv, msgs := telegramServer(t, 0)
	n := testNotifier(srv.URL)

	if err := n.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got := msgs()
	if len(got) != 1 || got[0].ChatID != "42" || got[0].Text != "hello" {
		t.Errorf("messages = %+v", got)
	}
}

func TestSendWithRetry(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		retries  int
		wantErr  bool
	}{
		{"first try", 0, 3, false},
		{"recovers", 2, 3, false},
		{"exhausted", 5, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, msgs := telegramServer(t, tt.failures)
			err := testNotifier(srv.URL).SendWithRetry(context.Background(), "x", tt.retries)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(msgs()) != 1 {
				t.Errorf("delivered %d messages", len(msgs()))
			}
		})
	}
}

func TestSendWithRetry_Cancelled(t *testing.T) {
	srv, _ := telegramServer(t, 100)
	n := testNotifier(srv.URL)
	n.Backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if err := n.SendWithRetry(ctx, "x", 3); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSend_TransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	err := testNotifier(srv.URL).Send(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "TOKEN") {
		t.Errorf("bot token leaked: %v", err)
	}
}

func TestDispatch(t *testing.T) {
	srv, msgs := telegramServer(t, 0)
	n := testNotifier(srv.URL)

	var updates []telegramUpdate
	if err := json.Unmarshal([]byte(`[
		{"update_id": 7, "message": {"text": " /quote aapl ", "chat": {"id": 99}}},
		{"update_id": 8},
		{"update_id": 9, "message": {"text": "ignored"}}
	]`), &updates); err != nil {
		t.Fatal(err)
	}

	var commands []string
	offset := n.dispatch(context.Background(), updates, 0, func(_ context.Context, cmd string) string {
		commands = append(commands, cmd)
		if cmd == "ignored" {
			return ""
		}
		return "reply to " + cmd
	})

	if offset != 10 {
		t.Errorf("offset = %d, want 10", offset)
	}
	if len(commands) != 2 || commands[0] != "/quote aapl" {
		t.Errorf("commands = %q", commands)
	}
	got := msgs()
	if len(got) != 1 || got[0].ChatID != "99" || got[0].Text != "reply to /quote aapl" {
		t.Errorf("replies = %+v", got)
	}
}

func TestFormatQuote(t *testing.T) {
	price, change, pct := 187.46, -1.23, -0.0065
	updated := time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC)
	p := &model.Payload{
		Quote: &model.Quote{
			Symbol:        "AAPL",
			CompanyName:   "Apple Inc.",
			LatestPrice:   &price,
			Change:        &change,
			ChangePercent: &pct,
			Date:          &updated,
		},
		News: model.News{Items: []model.NewsItem{{Title: "A & B", Link: "https://x/y", Source: "Wire"}}},
	}

	got := FormatQuote(p)
	for _, want := range []string{
		"<b>Apple Inc. (AAPL)</b>",
		"Price: 187.46 | -1.23 (-0.65%)",
		"Updated: 2024-01-02 15:30 UTC",
		`<a href="https://x/y">A &amp; B</a> - Wire`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatQuote missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Extended") || strings.Contains(got, "52w") {
		t.Errorf("absent fields rendered:\n%s", got)
	}

	if got := FormatQuote(&model.Payload{}); got != "No quote available." {
		t.Errorf("empty payload = %q", got)
	}
}

func TestFormatFailure(t *testing.T) {
	got := FormatFailure("prewarm", "MSFT", errors.New("status 402 <quota>"), time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	want := "❌ <b>prewarm failed</b> | MSFT\n\nstatus 402 &lt;quota&gt;\n\n2024-01-02 03:04:05"
	if got != want {
		t.Errorf("FormatFailure =\n%q\nwant\n%q", got, want)
	}
}
