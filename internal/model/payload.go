package model

// MinuteEntry is what the per-minute bucket stores: everything that goes
// stale within a trading minute.
type MinuteEntry struct {
	Quote  *Quote `json:"quote"`
	News   News   `json:"news"`
	Charts Charts `json:"charts"`
}

// DailyEntry is what the per-day bucket stores: the historical ranges.
type DailyEntry struct {
	OneMonth   *Chart `json:"oneMonth"`
	ThreeMonth *Chart `json:"threeMonth"`
	SixMonth   *Chart `json:"sixMonth"`
	YearToDate *Chart `json:"yearToDate"`
	OneYear    *Chart `json:"oneYear"`
	FiveYear   *Chart `json:"fiveYear"`
}

// Payload is the response handed back to the card.
type Payload struct {
	Quote  *Quote `json:"quote"`
	News   News   `json:"news"`
	Charts Charts `json:"charts"`
}
