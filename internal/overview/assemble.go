package overview

import (
	"github.com/rs/zerolog/log"

	"StockOverview/internal/model"
)

// Assemble merges the minute and daily buckets into one payload and picks the
// chart shown first. Either bucket may be nil.
func Assemble(minute *model.MinuteEntry, daily *model.DailyEntry, selected string) *model.Payload {
	p := &model.Payload{News: model.News{Items: []model.NewsItem{}}}

	if minute != nil {
		p.Quote = minute.Quote
		if minute.News.Items != nil {
			p.News = minute.News
		}
		p.Charts.OneDay = minute.Charts.OneDay
	}
	if daily != nil {
		p.Charts.OneMonth = daily.OneMonth
		p.Charts.ThreeMonth = daily.ThreeMonth
		p.Charts.SixMonth = daily.SixMonth
		p.Charts.YearToDate = daily.YearToDate
		p.Charts.OneYear = daily.OneYear
		p.Charts.FiveYear = daily.FiveYear
	}

	Select(&p.Charts, selected)
	return p
}

// Select makes one chart current and visible. The intraday chart wins when
// present, else the one-month chart. A selected key overrides the default;
// a key with no chart behind it is ignored.
func Select(c *model.Charts, selected string) {
	for _, ch := range []*model.Chart{c.OneDay, c.OneMonth, c.ThreeMonth, c.SixMonth, c.YearToDate, c.OneYear, c.FiveYear} {
		if ch != nil {
			ch.Show = false
		}
	}

	key := model.KeyOneMonth
	if c.OneDay != nil {
		key = model.KeyOneDay
	}

	if selected != "" && selected != key {
		if c.Lookup(selected) != nil {
			key = selected
		} else {
			log.Warn().Str("selected", selected).Str("fallback", key).Msg("selected chart not available, keeping default")
		}
	}

	c.InitialKey = key
	c.Current = c.Lookup(key)
	if c.Current != nil {
		c.Current.Show = true
	}
}
