package catalog

import "slices"

// Fallbacks applied when the catalog document omits its global sections.
const DefaultAgeToken = "1995-01-01"

var (
	DefaultDeparturePoints = []string{"Katowice"}
	DefaultPartySizes      = []int{1, 2}
)

// PackageDefinition is one travel package. A nil DeparturePoints or
// PartySizes means the package does not declare its own and the catalog
// defaults apply; an empty non-nil slice is an explicit empty declaration.
type PackageDefinition struct {
	Name            string   `json:"name"`
	Country         string   `json:"country"`
	BaseURL         string   `json:"base_url"`
	DeparturePoints []string `json:"departure_points,omitempty"`
	PartySizes      []int    `json:"party_sizes,omitempty"`
}

// Catalog is the immutable set of package definitions for a session.
// Packages keep the declaration order of the source document.
type Catalog struct {
	AgeToken               string              `json:"age_token"`
	DefaultDeparturePoints []string            `json:"default_departure_points"`
	DefaultPartySizes      []int               `json:"default_party_sizes"`
	Packages               []PackageDefinition `json:"packages"`

	index map[string]int
}

// New builds a catalog and its name index. Callers must not mutate the
// slices afterwards.
func New(ageToken string, departurePoints []string, partySizes []int, packages []PackageDefinition) *Catalog {
	c := &Catalog{
		AgeToken:               ageToken,
		DefaultDeparturePoints: departurePoints,
		DefaultPartySizes:      partySizes,
		Packages:               packages,
		index:                  make(map[string]int, len(packages)),
	}
	for i, p := range packages {
		c.index[p.Name] = i
	}
	return c
}

// Package looks up a package by its exact name.
func (c *Catalog) Package(name string) (PackageDefinition, bool) {
	if c == nil {
		return PackageDefinition{}, false
	}
	i, ok := c.index[name]
	if !ok {
		return PackageDefinition{}, false
	}
	return c.Packages[i], true
}

// Countries returns the distinct countries in declaration order.
func (c *Catalog) Countries() []string {
	if c == nil {
		return nil
	}
	countries := make([]string, 0)
	for _, p := range c.Packages {
		if !slices.Contains(countries, p.Country) {
			countries = append(countries, p.Country)
		}
	}
	return countries
}

// PackagesIn returns the names of the packages located in country.
func (c *Catalog) PackagesIn(country string) []string {
	if c == nil || country == "" {
		return nil
	}
	names := make([]string, 0)
	for _, p := range c.Packages {
		if p.Country == country {
			names = append(names, p.Name)
		}
	}
	return names
}

// DeparturePointsFor returns the package's own departure points, or the
// catalog defaults when it declares none. Unknown packages yield nil.
func (c *Catalog) DeparturePointsFor(name string) []string {
	p, ok := c.Package(name)
	if !ok {
		return nil
	}
	if p.DeparturePoints != nil {
		return slices.Clone(p.DeparturePoints)
	}
	return slices.Clone(c.DefaultDeparturePoints)
}

// PartySizesFor returns the package's own party sizes, or the catalog
// defaults when it declares none.
func (c *Catalog) PartySizesFor(name string) []int {
	p, ok := c.Package(name)
	if !ok {
		return nil
	}
	if p.PartySizes != nil {
		return slices.Clone(p.PartySizes)
	}
	return slices.Clone(c.DefaultPartySizes)
}
