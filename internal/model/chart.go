package model

import "encoding/json"

// Chart keys, as used by Charts.InitialKey and the selected request argument.
const (
	KeyOneDay     = "oneDay"
	KeyOneMonth   = "oneMonth"
	KeyThreeMonth = "threeMonth"
	KeySixMonth   = "sixMonth"
	KeyYearToDate = "yearToDate"
	KeyOneYear    = "oneYear"
	KeyFiveYear   = "fiveYear"
)

// chartOptions is the fixed line-chart styling block. Kept compact so a JSON
// round trip reproduces it byte for byte.
const chartOptions = `{"legend":{"display":false},"layout":{"padding":{"left":15,"right":35,"top":5,"bottom":25}},` +
	`"scales":{"yAxes":[{"position":"left","ticks":{"beginAtZero":false,"maxTicksLimit":3,"padding":25,"fontColor":"#838b8b"},` +
	`"gridLines":{"drawBorder":false,"borderDash":[8,8]}}],` +
	`"xAxes":[{"position":"bottom","display":false},{"position":"top","ticks":{"display":true,"maxRotation":0,"maxTicksLimit":3,"padding":10,"fontColor":"#838b8b"},` +
	`"gridLines":{"display":false,"drawBorder":false}}]}}`

// Chart is one price series wrapped in the card's line template.
type Chart struct {
	Template      string             `json:"template"`
	Palette       string             `json:"palette"`
	Configuration ChartConfiguration `json:"configuration"`
	Show          bool               `json:"show"`
}

// ChartConfiguration holds the series and the styling options.
type ChartConfiguration struct {
	Data    ChartData       `json:"data"`
	Options json.RawMessage `json:"options"`
}

// ChartData is a label sequence with parallel datasets.
type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// ChartDataset holds closing prices. A nil value is a minute without trades.
type ChartDataset struct {
	Data           []*float64 `json:"data"`
	Fill           bool       `json:"fill"`
	PointRadius    int        `json:"pointRadius"`
	PointHitRadius int        `json:"pointHitRadius"`
}

// NewLineChart wraps labels and values in the fixed template.
func NewLineChart(labels []string, values []*float64) *Chart {
	return &Chart{
		Template: "line",
		Palette:  "office.Depth6",
		Configuration: ChartConfiguration{
			Data: ChartData{
				Labels: labels,
				Datasets: []ChartDataset{{
					Data:           values,
					Fill:           false,
					PointRadius:    0,
					PointHitRadius: 10,
				}},
			},
			Options: json.RawMessage(chartOptions),
		},
	}
}

// Charts is the chart section of the payload. Current points at one of the
// named charts; InitialKey names it.
type Charts struct {
	Current    *Chart `json:"current,omitempty"`
	OneDay     *Chart `json:"oneDay,omitempty"`
	OneMonth   *Chart `json:"oneMonth,omitempty"`
	ThreeMonth *Chart `json:"threeMonth,omitempty"`
	SixMonth   *Chart `json:"sixMonth,omitempty"`
	YearToDate *Chart `json:"yearToDate,omitempty"`
	OneYear    *Chart `json:"oneYear,omitempty"`
	FiveYear   *Chart `json:"fiveYear,omitempty"`
	InitialKey string `json:"initialKey,omitempty"`
}

// Lookup returns the chart stored under key, or nil.
func (c *Charts) Lookup(key string) *Chart {
	switch key {
	case KeyOneDay:
		return c.OneDay
	case KeyOneMonth:
		return c.OneMonth
	case KeyThreeMonth:
		return c.ThreeMonth
	case KeySixMonth:
		return c.SixMonth
	case KeyYearToDate:
		return c.YearToDate
	case KeyOneYear:
		return c.OneYear
	case KeyFiveYear:
		return c.FiveYear
	}
	return nil
}
