// Package bucket derives time-bucketed cache keys from wall-clock instants.
package bucket

import (
	"fmt"
	"strings"
	"time"
)

// Granularity describes one bucket width and how its keys are laid out.
type Granularity struct {
	Name   string
	Layout string // time layout of the key suffix, zero-padded
	Infix  string // separator between symbol and timestamp
}

var (
	// Minute buckets: SYMBOL-YYYYMMDDHHmm.
	Minute = Granularity{Name: "minute", Layout: "200601021504", Infix: "-"}
	// Day buckets: SYMBOL-YTD-YYYYMMDD.
	Day = Granularity{Name: "day", Layout: "20060102", Infix: "-YTD-"}
)

// Key is a parsed bucket key.
type Key struct {
	Symbol      string
	Granularity Granularity
	Start       time.Time
}

// String formats the key back to its on-disk form.
func (k Key) String() string {
	return Format(k.Symbol, k.Start, k.Granularity)
}

// Earlier returns the key n buckets before k.
func (k Key) Earlier(n int) Key {
	out := k
	switch k.Granularity.Name {
	case Day.Name:
		out.Start = k.Start.AddDate(0, 0, -n)
	default:
		out.Start = k.Start.Add(-time.Duration(n) * time.Minute)
	}
	return out
}

// Format renders t as a bucket key for symbol at granularity g.
func Format(symbol string, t time.Time, g Granularity) string {
	return symbol + g.Infix + t.Format(g.Layout)
}

// MinuteKey returns the per-minute key for symbol at t.
func MinuteKey(symbol string, t time.Time) string {
	return Format(symbol, t, Minute)
}

// DayKey returns the per-day key for symbol at t.
func DayKey(symbol string, t time.Time) string {
	return Format(symbol, t, Day)
}

// Parse recovers the symbol, granularity and bucket start from a key. Times are
// interpreted in loc. Symbols may themselves contain dashes.
func Parse(key string, loc *time.Location) (Key, error) {
	if loc == nil {
		loc = time.Local
	}
	// Day first: its infix ends in "-" so a minute parse could misread it.
	for _, g := range []Granularity{Day, Minute} {
		suffix := len(g.Infix) + len(g.Layout)
		if len(key) <= suffix {
			continue
		}
		head, tail := key[:len(key)-suffix], key[len(key)-suffix:]
		if !strings.HasPrefix(tail, g.Infix) {
			continue
		}
		t, err := time.ParseInLocation(g.Layout, tail[len(g.Infix):], loc)
		if err != nil {
			continue
		}
		return Key{Symbol: head, Granularity: g, Start: t}, nil
	}
	return Key{}, fmt.Errorf("parse bucket key %q: unrecognised layout", key)
}

// Earlier returns the key n buckets before key, keeping the key's granularity.
func Earlier(key string, n int, loc *time.Location) (string, error) {
	k, err := Parse(key, loc)
	if err != nil {
		return "", err
	}
	return k.Earlier(n).String(), nil
}
