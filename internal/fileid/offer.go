package fileid

import (
	"context"
	"net/url"
	"strings"

	"pricewatch/internal/catalog"
	"pricewatch/internal/translit"
	"pricewatch/pkg/logger"
)

// MatchMode selects how a file identifier's package segment is matched back
// to a catalog package.
type MatchMode string

const (
	// MatchExact requires equal comparison keys.
	MatchExact MatchMode = "exact"
	// MatchFuzzy falls back to substring containment in either direction,
	// first match in catalog order.
	MatchFuzzy MatchMode = "fuzzy"
)

// ParseMatchMode defaults to MatchFuzzy for anything but "exact".
func ParseMatchMode(s string) MatchMode {
	if strings.EqualFold(strings.TrimSpace(s), string(MatchExact)) {
		return MatchExact
	}
	return MatchFuzzy
}

// Offer query parameters expected by the tour operator's site.
const (
	ageParamName    = "wiek"
	totalPriceParam = "czyCenaZaWszystkich=1"
	roomCountParam  = "liczbaPokoi=1"
)

// OfferResolver reconstructs offer URLs from file identifiers.
type OfferResolver struct {
	mode   MatchMode
	logger *logger.Logger
}

func NewOfferResolver(mode MatchMode, l *logger.Logger) *OfferResolver {
	if l == nil {
		l = logger.GetDefault()
	}
	if mode == "" {
		mode = MatchFuzzy
	}
	return &OfferResolver{mode: mode, logger: l}
}

// ResolveOfferURL returns the offer URL for id, or false when the catalog is
// missing, id is malformed or no package matches. It never panics.
func (r *OfferResolver) ResolveOfferURL(id string, cat *catalog.Catalog) (string, bool) {
	if cat == nil {
		return "", false
	}
	parts, ok := Parse(id)
	if !ok {
		return "", false
	}
	pkg, ok := r.findPackage(parts.Package, cat)
	if !ok {
		return "", false
	}
	return BuildOfferURL(pkg.BaseURL, parts.PartySize, cat.AgeToken), true
}

func (r *OfferResolver) findPackage(segment string, cat *catalog.Catalog) (catalog.PackageDefinition, bool) {
	want := translit.ComparisonKey(segment)
	if want == "" {
		return catalog.PackageDefinition{}, false
	}

	for _, p := range cat.Packages {
		if translit.ComparisonKey(p.Name) == want {
			return p, true
		}
	}

	if r.mode != MatchFuzzy {
		return catalog.PackageDefinition{}, false
	}

	var matches []catalog.PackageDefinition
	for _, p := range cat.Packages {
		key := translit.ComparisonKey(p.Name)
		if key == "" {
			continue
		}
		if strings.Contains(key, want) || strings.Contains(want, key) {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return catalog.PackageDefinition{}, false
	}
	if len(matches) > 1 {
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}
		r.logger.WarnWithContext(context.Background(), "Ambiguous offer package match", map[string]interface{}{
			"segment":    segment,
			"candidates": names,
			"chosen":     matches[0].Name,
		})
	}
	return matches[0], true
}

// BuildOfferURL appends one age parameter per traveller plus the fixed
// parameters to baseURL.
func BuildOfferURL(baseURL string, partySize int, ageToken string) string {
	params := make([]string, 0, partySize+2)
	params = append(params, totalPriceParam)
	age := ageParamName + "=" + url.QueryEscape(ageToken)
	for i := 0; i < partySize; i++ {
		params = append(params, age)
	}
	params = append(params, roomCountParam)
	return baseURL + "?" + strings.Join(params, "&")
}

// Linker binds a resolver to whatever catalog is current.
type Linker struct {
	resolver *OfferResolver
	catalog  func() *catalog.Catalog
}

func NewLinker(resolver *OfferResolver, current func() *catalog.Catalog) *Linker {
	return &Linker{resolver: resolver, catalog: current}
}

// OfferURL resolves id against the current catalog.
func (l *Linker) OfferURL(id string) (string, bool) {
	if l == nil || l.catalog == nil {
		return "", false
	}
	return l.resolver.ResolveOfferURL(id, l.catalog())
}
