package collector

import (
	"time"

	"github.com/shopspring/decimal"

	"StockOverview/internal/model"
)

// normalizeQuote derives the quote date and rounds the price and change
// fields to cents. Absent or zero fields are left as they came.
func normalizeQuote(q *model.Quote) *model.Quote {
	if q.LatestUpdate != 0 {
		d := time.UnixMilli(q.LatestUpdate).UTC()
		q.Date = &d
	}
	for _, f := range []*float64{
		q.LatestPrice,
		q.Change,
		q.ChangePercent,
		q.ExtendedChange,
		q.ExtendedChangePercent,
	} {
		round2(f)
	}
	return q
}

func round2(v *float64) {
	if v == nil || *v == 0 {
		return
	}
	*v, _ = decimal.NewFromFloat(*v).Round(2).Float64()
}

func convertNews(items []iexNews) []model.NewsItem {
	out := make([]model.NewsItem, 0, len(items))
	for _, it := range items {
		item := model.NewsItem{
			Title:       it.Headline,
			Description: it.Summary,
			Link:        it.URL,
			Thumbnail:   it.Image,
			Source:      it.Source,
			Lang:        it.Lang,
			HasPaywall:  it.HasPaywall,
		}
		if !it.Datetime.IsZero() {
			d := it.Datetime.Time
			item.Date = &d
		}
		out = append(out, item)
	}
	return out
}

// constructChart turns a price history into a line chart. Points without a
// label are labelled with their date as "Jan 02".
func constructChart(points []iexPoint) *model.Chart {
	labels := make([]string, 0, len(points))
	values := make([]*float64, 0, len(points))
	for _, p := range points {
		label := p.Label
		if label == "" {
			label = p.Date
			if d, err := time.Parse("2006-01-02", p.Date); err == nil {
				label = d.Format("Jan 02")
			}
		}
		labels = append(labels, label)
		values = append(values, p.Close)
	}
	return model.NewLineChart(labels, values)
}
