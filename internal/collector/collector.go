package collector

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"

	"StockOverview/internal/model"
)

const defaultNewsCount = 3

// rangeSlot binds one historical range request to the field it fills. The
// daily fan-out is mapped by slot because all six answers share one shape.
type rangeSlot struct {
	Range string
	Key   string
	set   func(*model.DailyEntry, *model.Chart)
}

var dailyRanges = []rangeSlot{
	{"1m", model.KeyOneMonth, func(e *model.DailyEntry, c *model.Chart) { e.OneMonth = c }},
	{"3m", model.KeyThreeMonth, func(e *model.DailyEntry, c *model.Chart) { e.ThreeMonth = c }},
	{"6m", model.KeySixMonth, func(e *model.DailyEntry, c *model.Chart) { e.SixMonth = c }},
	{"ytd", model.KeyYearToDate, func(e *model.DailyEntry, c *model.Chart) { e.YearToDate = c }},
	{"1y", model.KeyOneYear, func(e *model.DailyEntry, c *model.Chart) { e.OneYear = c }},
	{"5y", model.KeyFiveYear, func(e *model.DailyEntry, c *model.Chart) { e.FiveYear = c }},
}

// Collector fans requests out to the Fetcher and reshapes the answers.
type Collector struct {
	Fetcher   Fetcher
	NewsCount int
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher) *Collector {
	return &Collector{Fetcher: fetcher, NewsCount: defaultNewsCount}
}

// FetchMinuteBucket fetches the quote, the latest news and the intraday
// prices. Answers are classified by shape; one that matches nothing is
// dropped. Any failed request fails the whole bucket.
func (c *Collector) FetchMinuteBucket(ctx context.Context, symbol, token string) (*model.MinuteEntry, error) {
	sym := url.PathEscape(symbol)
	n := c.NewsCount
	if n <= 0 {
		n = defaultNewsCount
	}
	paths := []string{
		fmt.Sprintf("/stock/%s/quote", sym),
		fmt.Sprintf("/stock/%s/news/last/%d", sym, n),
		fmt.Sprintf("/stock/%s/intraday-prices?chartIEXOnly=true", sym),
	}

	bodies, err := c.fanOut(ctx, token, paths)
	if err != nil {
		return nil, err
	}

	entry := &model.MinuteEntry{News: model.News{Items: []model.NewsItem{}}}
	for i, body := range bodies {
		resp, err := Decode(body)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", paths[i], err)
		}
		switch resp.Kind {
		case KindQuote:
			entry.Quote = normalizeQuote(resp.Quote)
		case KindNews:
			entry.News.Items = convertNews(resp.News)
		case KindChart:
			chart := constructChart(resp.Chart)
			chart.Show = true
			entry.Charts.OneDay = chart
			entry.Charts.Current = chart
		default:
			log.Debug().Str("symbol", symbol).Str("path", paths[i]).Msg("unrecognised response shape, ignored")
		}
	}
	return entry, nil
}

// FetchDailyBucket fetches the six historical ranges, each answer landing in
// the field of the request that asked for it.
func (c *Collector) FetchDailyBucket(ctx context.Context, symbol, token string) (*model.DailyEntry, error) {
	sym := url.PathEscape(symbol)
	paths := make([]string, len(dailyRanges))
	for i, r := range dailyRanges {
		paths[i] = fmt.Sprintf("/stock/%s/chart/%s?chartCloseOnly=true", sym, r.Range)
	}

	bodies, err := c.fanOut(ctx, token, paths)
	if err != nil {
		return nil, err
	}

	entry := &model.DailyEntry{}
	for i, slot := range dailyRanges {
		resp, err := Decode(bodies[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", paths[i], err)
		}
		if resp.Kind != KindChart {
			log.Debug().Str("symbol", symbol).Str("range", slot.Range).Str("chart", slot.Key).Msg("no chart data for range")
			continue
		}
		slot.set(entry, constructChart(resp.Chart))
	}
	return entry, nil
}

// fanOut issues every request at once and waits for all of them. Results are
// indexed like paths. The first failure in path order is returned; siblings
// run to completion and their answers are discarded.
func (c *Collector) fanOut(ctx context.Context, token string, paths []string) ([][]byte, error) {
	bodies := make([][]byte, len(paths))
	errs := make([]error, len(paths))

	var wg sync.WaitGroup
	for i, p := range paths {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			bodies[i], errs[i] = c.Fetcher.Get(ctx, token, p)
		}(i, p)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return bodies, nil
}
