package model

import "time"

// NewsItem is one normalized news entry.
type NewsItem struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Link        string     `json:"link"`
	Date        *time.Time `json:"date"` // null when the upstream sent no timestamp
	Thumbnail   string     `json:"thumbnail"`
	Source      string     `json:"source"`
	Lang        string     `json:"lang"`
	HasPaywall  bool       `json:"hasPaywall"`
}

// News wraps the item list the way the card template expects it.
type News struct {
	Items []NewsItem `json:"items"`
}
