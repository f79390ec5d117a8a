// Package fileid builds and parses the canonical identifiers of price data
// files, "<Country>__<Package>__<DeparturePoint>__<N>os", and maps an
// identifier back to the browsable offer URL of its package.
package fileid

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"pricewatch/internal/catalog"
	"pricewatch/internal/translit"
)

const (
	SegmentSeparator = "__"
	PartySizeSuffix  = "os"
	Extension        = ".csv"
)

var partySizeSegment = regexp.MustCompile(`^(\d+)` + PartySizeSuffix + `$`)

// Parts are the decoded segments of a file identifier. String segments are
// in their transliterated form.
type Parts struct {
	Country        string `json:"country"`
	Package        string `json:"package"`
	DeparturePoint string `json:"departure_point"`
	PartySize      int    `json:"party_size"`
}

// Build returns the identifier for one (country, package, departure point,
// party size) combination.
func Build(country, packageName, departurePoint string, partySize int) string {
	return strings.Join([]string{
		translit.Normalize(country),
		translit.Normalize(packageName),
		translit.Normalize(departurePoint),
		strconv.Itoa(partySize) + PartySizeSuffix,
	}, SegmentSeparator)
}

// FileName appends the data source's file extension.
func FileName(id string) string {
	return id + Extension
}

// Parse is the inverse of Build. A trailing ".csv" is tolerated. It reports
// false when the identifier does not have exactly four segments or the last
// one is not "<digits>os".
func Parse(id string) (Parts, bool) {
	base := strings.TrimSuffix(id, Extension)

	segments := strings.Split(base, SegmentSeparator)
	if len(segments) != 4 {
		return Parts{}, false
	}

	m := partySizeSegment.FindStringSubmatch(segments[3])
	if m == nil {
		return Parts{}, false
	}
	size, err := strconv.Atoi(m[1])
	if err != nil {
		return Parts{}, false
	}

	return Parts{
		Country:        segments[0],
		Package:        segments[1],
		DeparturePoint: segments[2],
		PartySize:      size,
	}, true
}

// Locator turns identifiers into URLs of the raw data file and of its
// human-browsable view.
type Locator struct {
	DataBaseURL   string
	BrowseBaseURL string
}

// DataURL is where the raw CSV for id is fetched from.
func (l Locator) DataURL(id string) string {
	return joinURL(l.DataBaseURL, FileName(id))
}

// BrowseURL is the web view of the same file; empty when no browse base is
// configured.
func (l Locator) BrowseURL(id string) string {
	if l.BrowseBaseURL == "" {
		return ""
	}
	return joinURL(l.BrowseBaseURL, FileName(id))
}

func joinURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(name)
}

// Combination is one concrete data file the catalog declares.
type Combination struct {
	Country        string `json:"country"`
	Package        string `json:"package"`
	DeparturePoint string `json:"departure_point"`
	PartySize      int    `json:"party_size"`
	FileID         string `json:"file_id"`
}

// Combinations expands every package into its declared departure point and
// party size combinations, in catalog order.
func Combinations(cat *catalog.Catalog) []Combination {
	if cat == nil {
		return nil
	}
	var out []Combination
	for _, p := range cat.Packages {
		for _, dep := range cat.DeparturePointsFor(p.Name) {
			for _, size := range cat.PartySizesFor(p.Name) {
				out = append(out, Combination{
					Country:        p.Country,
					Package:        p.Name,
					DeparturePoint: dep,
					PartySize:      size,
					FileID:         Build(p.Country, p.Name, dep, size),
				})
			}
		}
	}
	return out
}
