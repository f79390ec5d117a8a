package pricing

import (
	"encoding/csv"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"

	"pricewatch/internal/termdate"
)

// OfferLinker resolves the offer URL for a data file identifier.
type OfferLinker interface {
	OfferURL(fileID string) (string, bool)
}

// Parser turns raw price CSV into a Model. It is safe for concurrent use.
type Parser struct {
	now       func() time.Time
	location  *time.Location
	offers    OfferLinker
	sourceURL func(fileID string) string
}

type ParserOption func(*Parser)

// WithClock sets the "now" used for past-term filtering and year expansion.
func WithClock(now func() time.Time) ParserOption {
	return func(p *Parser) { p.now = now }
}

// WithLocation sets the zone term dates and snapshot labels are read in.
func WithLocation(loc *time.Location) ParserOption {
	return func(p *Parser) { p.location = loc }
}

func WithOfferLinker(l OfferLinker) ParserOption {
	return func(p *Parser) { p.offers = l }
}

// WithSourceURL sets how the browsable URL of a data file is derived.
func WithSourceURL(f func(fileID string) string) ParserOption {
	return func(p *Parser) { p.sourceURL = f }
}

func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		now:      time.Now,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type priceRow struct {
	label  string
	start  time.Time
	end    time.Time
	prices []int // newest first; 0 = missing
}

// Parse builds the model for sourceID. Rows whose label is not a valid date
// range are skipped and reported in Model.Warnings.
func (p *Parser) Parse(raw, sourceID string) (*Model, error) {
	now := p.now().In(p.location)

	records, err := readRecords(raw)
	if err != nil {
		return nil, &FormatError{SourceID: sourceID, Reason: "unreadable CSV", Err: err}
	}
	if len(records) < 2 {
		return nil, &FormatError{SourceID: sourceID, Reason: fmt.Sprintf("need a header and at least one row, got %d line(s)", len(records))}
	}

	stamps, err := p.parseHeader(records[0])
	if err != nil {
		return nil, &FormatError{SourceID: sourceID, Line: 1, Reason: "bad timestamp header", Err: err}
	}
	order := newestFirst(stamps)

	var (
		rows      []priceRow
		warnings  []string
		offerLink string
	)
	for i, rec := range records[1:] {
		label := strings.TrimSpace(rec[0])

		if label == OfferLinkToken {
			if len(rec) > 1 {
				offerLink = strings.TrimSpace(rec[1])
			}
			continue
		}

		start, end, err := termdate.ParseRange(label, p.location)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("line %d skipped: %v", i+2, err))
			continue
		}
		if !start.After(now) {
			continue
		}

		prices := make([]int, len(order))
		for k, col := range order {
			if cell := col + 1; cell < len(rec) {
				prices[k] = parsePrice(rec[cell])
			}
		}
		// Sold out: no current price.
		if len(prices) == 0 || prices[0] <= 0 {
			continue
		}

		rows = append(rows, priceRow{label: label, start: start, end: end, prices: prices})
	}

	active := activeColumns(rows, len(order))

	model := &Model{
		SourceID:   sourceID,
		Timestamps: make([]Timestamp, 0, len(active)),
		Terms:      make([]Term, 0, len(rows)),
		Warnings:   warnings,
	}
	for _, k := range active {
		if k == 0 {
			continue
		}
		model.Timestamps = append(model.Timestamps, stamps[order[k]])
	}
	if len(active) > 0 {
		model.LastUpdated = stamps[order[active[0]]].Label
	}

	for _, row := range rows {
		term := Term{
			Label:        row.label,
			StartDate:    row.start,
			EndDate:      row.end,
			CurrentPrice: row.prices[0],
			PriceHistory: make([]PriceSample, 0, len(active)),
		}
		for _, k := range active {
			if k == 0 || row.prices[k] <= 0 {
				continue
			}
			term.PriceHistory = append(term.PriceHistory, PriceSample{Timestamp: stamps[order[k]], Price: row.prices[k]})
		}
		model.Terms = append(model.Terms, term)
	}

	sort.SliceStable(model.Terms, func(i, j int) bool {
		return model.Terms[i].StartDate.Before(model.Terms[j].StartDate)
	})
	model.YearGroups = groupByYear(model.Terms, now.Year())

	if p.offers != nil {
		if url, ok := p.offers.OfferURL(sourceID); ok {
			model.OfferURL = url
		}
	}
	if model.OfferURL == "" {
		model.OfferURL = offerLink
	}
	if p.sourceURL != nil {
		model.SourceURL = p.sourceURL(sourceID)
	}

	return model, nil
}

func readRecords(raw string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(raw, "\ufeff")))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

func (p *Parser) parseHeader(header []string) ([]Timestamp, error) {
	stamps := make([]Timestamp, 0, len(header))
	seen := make(map[int64]string, len(header))
	for _, cell := range header[1:] {
		label := strings.TrimSpace(cell)
		at, err := time.ParseInLocation(TimestampLayout, label, p.location)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", label, err)
		}
		// Columns must order strictly, so one instant may appear only once.
		if prev, ok := seen[at.UnixNano()]; ok {
			return nil, fmt.Errorf("column %q repeats the instant of column %q", label, prev)
		}
		seen[at.UnixNano()] = label
		stamps = append(stamps, Timestamp{Label: label, At: at})
	}
	return stamps, nil
}

// newestFirst returns the column permutation that orders stamps from newest
// to oldest.
func newestFirst(stamps []Timestamp) []int {
	order := make([]int, len(stamps))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return stamps[order[a]].At.After(stamps[order[b]].At)
	})
	return order
}

// activeColumns lists the (reordered) columns holding at least one price
// among the surviving rows.
func activeColumns(rows []priceRow, n int) []int {
	active := make([]int, 0, n)
	for k := 0; k < n; k++ {
		for _, row := range rows {
			if row.prices[k] > 0 {
				active = append(active, k)
				break
			}
		}
	}
	return active
}

// parsePrice reads a whole-unit price; anything else counts as missing (0).
func parsePrice(cell string) int {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0
	}
	f, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0
	}
	if f <= 0 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

func groupByYear(terms []Term, currentYear int) []YearGroup {
	var groups []YearGroup
	byYear := make(map[int]int)
	for _, term := range terms {
		year := term.StartDate.Year()
		idx, ok := byYear[year]
		if !ok {
			idx = len(groups)
			byYear[year] = idx
			groups = append(groups, YearGroup{Year: year, IsExpanded: year == currentYear})
		}
		groups[idx].Terms = append(groups[idx].Terms, term)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Year < groups[j].Year })
	if groups == nil {
		groups = []YearGroup{}
	}
	return groups
}
