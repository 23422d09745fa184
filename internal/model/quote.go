package model

import (
	"encoding/json"
	"time"
)

// Quote is the upstream quote object with a parsed update time. Only the
// fields this service reads are typed; every upstream key, known or not, is
// kept and written back out by MarshalJSON.
//
// A typed field whose upstream value has an unexpected type is left unset and
// the raw value passes through untouched.
type Quote struct {
	Symbol                string
	CompanyName           string
	LatestPrice           *float64
	Change                *float64
	ChangePercent         *float64
	ExtendedPrice         *float64
	ExtendedChange        *float64
	ExtendedChangePercent *float64
	High                  *float64
	Low                   *float64
	Week52High            *float64
	Week52Low             *float64
	LatestUpdate          int64 // epoch milliseconds

	// Date is derived from LatestUpdate; nil when the upstream sent none.
	Date *time.Time

	fields map[string]json.RawMessage
}

// Field returns the raw upstream value stored under key.
func (q *Quote) Field(key string) (json.RawMessage, bool) {
	raw, ok := q.fields[key]
	return raw, ok
}

// rounded lists the fields normalised to cents; their typed value always wins
// over the raw one.
func (q *Quote) rounded() map[string]**float64 {
	return map[string]**float64{
		"latestPrice":           &q.LatestPrice,
		"change":                &q.Change,
		"changePercent":         &q.ChangePercent,
		"extendedChange":        &q.ExtendedChange,
		"extendedChangePercent": &q.ExtendedChangePercent,
	}
}

// passthrough lists typed fields that are written only when the upstream
// object does not already carry them.
func (q *Quote) passthrough() map[string]**float64 {
	return map[string]**float64{
		"extendedPrice": &q.ExtendedPrice,
		"high":          &q.High,
		"low":           &q.Low,
		"week52High":    &q.Week52High,
		"week52Low":     &q.Week52Low,
	}
}

func (q *Quote) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	*q = Quote{fields: fields}

	loose(fields, "symbol", &q.Symbol)
	loose(fields, "companyName", &q.CompanyName)
	for k, p := range q.rounded() {
		loose(fields, k, p)
	}
	for k, p := range q.passthrough() {
		loose(fields, k, p)
	}
	var update float64
	loose(fields, "latestUpdate", &update)
	q.LatestUpdate = int64(update)
	loose(fields, "date", &q.Date)
	return nil
}

func (q Quote) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(q.fields)+1)
	for k, v := range q.fields {
		out[k] = v
	}
	setIfAbsent := func(key string, v any) {
		if _, ok := q.fields[key]; !ok {
			out[key] = v
		}
	}

	if q.Symbol != "" {
		setIfAbsent("symbol", q.Symbol)
	}
	if q.CompanyName != "" {
		setIfAbsent("companyName", q.CompanyName)
	}
	if q.LatestUpdate != 0 {
		setIfAbsent("latestUpdate", q.LatestUpdate)
	}
	for k, p := range q.passthrough() {
		if *p != nil {
			setIfAbsent(k, *p)
		}
	}
	for k, p := range q.rounded() {
		if *p != nil {
			out[k] = *p
		}
	}
	out["date"] = q.Date
	return json.Marshal(out)
}

// loose decodes fields[key] into dst, leaving dst alone when the key is
// missing or the value does not fit.
func loose[T any](fields map[string]json.RawMessage, key string, dst *T) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err == nil {
		*dst = v
	}
}
