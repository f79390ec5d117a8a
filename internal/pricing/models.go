package pricing

import (
	"fmt"
	"time"
)

// TimestampLayout is the format of the snapshot labels in the header row.
// Single-digit day, month and hour are accepted as well.
const TimestampLayout = "2.1.2006 15:04:05"

// OfferLinkToken marks the reserved row carrying a manually authored offer URL.
const OfferLinkToken = "OFFER_LINK"

// Timestamp is one price snapshot column.
type Timestamp struct {
	Label string    `json:"label"`
	At    time.Time `json:"at"`
}

// PriceSample is the price of a term at one snapshot.
type PriceSample struct {
	Timestamp Timestamp `json:"timestamp"`
	Price     int       `json:"price"`
}

// Term is one bookable date range. PriceHistory runs from newer to older
// and never includes the current (newest) sample.
type Term struct {
	Label        string        `json:"label"`
	StartDate    time.Time     `json:"start_date"`
	EndDate      time.Time     `json:"end_date"`
	PriceHistory []PriceSample `json:"price_history"`
	CurrentPrice int           `json:"current_price"`
}

// YearGroup holds the terms starting in one calendar year, ascending.
type YearGroup struct {
	Year       int    `json:"year"`
	Terms      []Term `json:"terms"`
	IsExpanded bool   `json:"is_expanded"`
}

// Model is the normalized price history of one data file. Timestamps are
// the history columns, newest first, with the current snapshot stripped.
type Model struct {
	SourceID    string      `json:"source_id"`
	Timestamps  []Timestamp `json:"timestamps"`
	Terms       []Term      `json:"terms"`
	YearGroups  []YearGroup `json:"year_groups"`
	LastUpdated string      `json:"last_updated"`
	OfferURL    string      `json:"offer_url,omitempty"`
	SourceURL   string      `json:"source_url,omitempty"`
	Warnings    []string    `json:"warnings,omitempty"`
}

// FormatError reports price text that cannot be interpreted at all.
type FormatError struct {
	SourceID string
	Line     int
	Reason   string
	Err      error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("malformed price data %q", e.SourceID)
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d)", e.Line)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }
