package bucket

import (
	"testing"
	"time"
)

func TestMinuteAndDayKeys(t *testing.T) {
	ts := time.Date(2024, time.March, 5, 7, 4, 59, 0, time.UTC)

	if got, want := MinuteKey("AAPL", ts), "AAPL-202403050704"; got != want {
		t.Errorf("MinuteKey = %q, want %q", got, want)
	}
	if got, want := DayKey("AAPL", ts), "AAPL-YTD-20240305"; got != want {
		t.Errorf("DayKey = %q, want %q", got, want)
	}
}

func TestKeysAreDeterministic(t *testing.T) {
	ts := time.Date(2023, time.December, 31, 23, 59, 0, 0, time.UTC)
	if MinuteKey("MSFT", ts) != MinuteKey("MSFT", ts) {
		t.Fatal("MinuteKey not deterministic")
	}
	if DayKey("MSFT", ts) != DayKey("MSFT", ts) {
		t.Fatal("DayKey not deterministic")
	}
}

func TestKeysSortChronologically(t *testing.T) {
	base := time.Date(2024, time.September, 9, 9, 9, 0, 0, time.UTC)
	prev := MinuteKey("IBM", base)
	for i := 1; i < 2000; i += 37 {
		next := MinuteKey("IBM", base.Add(time.Duration(i)*time.Minute))
		if next <= prev {
			t.Fatalf("minute keys not monotonic: %q <= %q", next, prev)
		}
		prev = next
	}
}

func TestEarlierMatchesDirectKey(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
	}{
		{"mid day", time.Date(2024, time.June, 12, 14, 30, 0, 0, time.UTC)},
		{"hour rollover", time.Date(2024, time.June, 12, 14, 1, 0, 0, time.UTC)},
		{"year rollover", time.Date(2024, time.January, 1, 0, 1, 0, 0, time.UTC)},
		{"leap day", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Earlier(MinuteKey("AAPL", tt.at), 3, time.UTC)
			if err != nil {
				t.Fatalf("Earlier(minute): %v", err)
			}
			if want := MinuteKey("AAPL", tt.at.Add(-3*time.Minute)); got != want {
				t.Errorf("minute prune target = %q, want %q", got, want)
			}

			got, err = Earlier(DayKey("AAPL", tt.at), 3, time.UTC)
			if err != nil {
				t.Fatalf("Earlier(day): %v", err)
			}
			if want := DayKey("AAPL", tt.at.AddDate(0, 0, -3)); got != want {
				t.Errorf("day prune target = %q, want %q", got, want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		key    string
		symbol string
		gran   string
		ok     bool
	}{
		{"AAPL-202401021530", "AAPL", "minute", true},
		{"AAPL-YTD-20240102", "AAPL", "day", true},
		{"BRK-B-202401021530", "BRK-B", "minute", true},
		{"BRK-B-YTD-20240102", "BRK-B", "day", true},
		{"AAPL-2024", "", "", false},
		{"notakey", "", "", false},
		{"AAPL-YTD-2024130x", "", "", false},
	}

	for _, tt := range tests {
		k, err := Parse(tt.key, time.UTC)
		if !tt.ok {
			if err == nil {
				t.Errorf("Parse(%q) expected error, got %+v", tt.key, k)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.key, err)
			continue
		}
		if k.Symbol != tt.symbol || k.Granularity.Name != tt.gran {
			t.Errorf("Parse(%q) = %s/%s, want %s/%s", tt.key, k.Symbol, k.Granularity.Name, tt.symbol, tt.gran)
		}
		if k.String() != tt.key {
			t.Errorf("Parse(%q).String() = %q", tt.key, k.String())
		}
	}
}
