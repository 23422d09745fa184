package collector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"StockOverview/internal/model"
)

// Kind tells which upstream shape a body matched.
type Kind int

const (
	KindUnknown Kind = iota
	KindQuote
	KindNews
	KindChart
)

func (k Kind) String() string {
	switch k {
	case KindQuote:
		return "quote"
	case KindNews:
		return "news"
	case KindChart:
		return "chart"
	}
	return "unknown"
}

// Response is a decoded upstream body. Exactly one of the payload fields is
// set, according to Kind.
type Response struct {
	Kind  Kind
	Quote *model.Quote
	News  []iexNews
	Chart []iexPoint
}

type iexNews struct {
	Datetime   flexTime `json:"datetime"`
	Headline   string   `json:"headline"`
	Source     string   `json:"source"`
	URL        string   `json:"url"`
	Summary    string   `json:"summary"`
	Image      string   `json:"image"`
	Lang       string   `json:"lang"`
	HasPaywall bool     `json:"hasPaywall"`
}

type iexPoint struct {
	Date   string   `json:"date"`
	Minute string   `json:"minute"`
	Label  string   `json:"label"`
	Close  *float64 `json:"close"`
}

// shapeProbe picks out the fields the shape checks look at.
type shapeProbe struct {
	Symbol   string   `json:"symbol"`
	Headline string   `json:"headline"`
	Close    *float64 `json:"close"`
}

// Decode classifies body by its shape rather than by the request that
// produced it. The checks run in order and the first match wins:
//
//	object with a non-empty "symbol"                  -> quote
//	array whose first element has a "headline"        -> news
//	array whose first element has a non-zero "close"  -> chart
//
// Anything else is KindUnknown with a nil error. An error is returned only
// when body is not JSON or a matched shape fails to decode.
func Decode(body []byte) (Response, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Response{}, nil
	}

	switch trimmed[0] {
	case '{':
		var probe shapeProbe
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return Response{}, fmt.Errorf("decode object: %w", err)
		}
		if probe.Symbol == "" {
			return Response{}, nil
		}
		var q model.Quote
		if err := json.Unmarshal(trimmed, &q); err != nil {
			return Response{}, fmt.Errorf("decode quote: %w", err)
		}
		return Response{Kind: KindQuote, Quote: &q}, nil

	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Response{}, fmt.Errorf("decode array: %w", err)
		}
		if len(items) == 0 {
			return Response{}, nil
		}
		var probe shapeProbe
		if err := json.Unmarshal(items[0], &probe); err != nil {
			// First element is not an object.
			return Response{}, nil
		}
		switch {
		case probe.Headline != "":
			var news []iexNews
			if err := json.Unmarshal(trimmed, &news); err != nil {
				return Response{}, fmt.Errorf("decode news: %w", err)
			}
			return Response{Kind: KindNews, News: news}, nil
		case probe.Close != nil && *probe.Close != 0:
			var points []iexPoint
			if err := json.Unmarshal(trimmed, &points); err != nil {
				return Response{}, fmt.Errorf("decode chart: %w", err)
			}
			return Response{Kind: KindChart, Chart: points}, nil
		}
		return Response{}, nil
	}

	if !json.Valid(trimmed) {
		return Response{}, fmt.Errorf("decode: body is not JSON")
	}
	return Response{}, nil
}

// flexTime accepts epoch milliseconds or an RFC 3339 string.
type flexTime struct {
	time.Time
}

func (f *flexTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("parse time %q: %w", s, err)
		}
		f.Time = t.UTC()
		return nil
	}
	ms, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("parse epoch %s: %w", b, err)
	}
	f.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}
