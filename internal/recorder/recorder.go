package recorder

import "time"

// Source tells where a bucket was resolved from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceUpstream Source = "upstream"
)

// FetchEvent records how one bucket of one request was resolved.
type FetchEvent struct {
	RequestID string
	Symbol    string
	Bucket    string // "minute" or "day"
	Key       string
	Source    Source
	Duration  time.Duration
	Err       string
}

// Recorder persists fetch history for analysis.
type Recorder interface {
	RecordFetch(evt *FetchEvent) error
	Close() error
}
