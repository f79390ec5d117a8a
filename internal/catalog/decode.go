package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
)

// FormatError reports a catalog document that is not valid JSON or does not
// have the expected shape.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed catalog: %s: %v", e.Reason, e.Err)
	}
	return "malformed catalog: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// Document mirrors the sources.json layout.
type Document struct {
	GlobalConfig struct {
		AgeParam string `json:"age_param"`
	} `json:"global_config"`
	Defaults struct {
		DepartureLocations []string `json:"departure_locations" validate:"omitempty,dive,required"`
		PersonCounts       []int    `json:"person_counts" validate:"omitempty,dive,min=1"`
	} `json:"defaults"`
	Trips TripList `json:"trips" validate:"dive"`
}

// TripDocument is one entry of the "trips" object.
type TripDocument struct {
	Name               string   `json:"-"`
	Country            string   `json:"country" validate:"required"`
	BaseURL            string   `json:"base_url" validate:"required,url"`
	DepartureLocations []string `json:"departure_locations,omitempty" validate:"omitempty,dive,required"`
	PersonCounts       []int    `json:"person_counts,omitempty" validate:"omitempty,dive,min=1"`
}

// TripList decodes the "trips" object while keeping key order, which the
// offer resolver relies on when more than one package matches.
type TripList []TripDocument

func (l *TripList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*l = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("trips must be an object keyed by package name")
	}

	trips := make(TripList, 0)
	seen := make(map[string]bool)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := keyTok.(string)
		if seen[name] {
			return fmt.Errorf("duplicate trip %q", name)
		}
		seen[name] = true

		var trip TripDocument
		if err := dec.Decode(&trip); err != nil {
			return fmt.Errorf("trip %q: %w", name, err)
		}
		trip.Name = name
		trips = append(trips, trip)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*l = trips
	return nil
}

var validate = validator.New()

// Decode parses a sources.json document into a Catalog.
func Decode(data []byte) (*Catalog, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &FormatError{Reason: "invalid JSON", Err: err}
	}
	return FromDocument(&doc)
}

// FromDocument validates doc and applies the catalog-wide fallbacks.
func FromDocument(doc *Document) (*Catalog, error) {
	if err := validate.Struct(doc); err != nil {
		return nil, &FormatError{Reason: "validation failed", Err: err}
	}

	for _, trip := range doc.Trips {
		if trip.Name == "" {
			return nil, &FormatError{Reason: "trip with empty name"}
		}
	}

	ageToken := doc.GlobalConfig.AgeParam
	if ageToken == "" {
		ageToken = DefaultAgeToken
	}
	departurePoints := doc.Defaults.DepartureLocations
	if departurePoints == nil {
		departurePoints = slices.Clone(DefaultDeparturePoints)
	}
	partySizes := doc.Defaults.PersonCounts
	if partySizes == nil {
		partySizes = slices.Clone(DefaultPartySizes)
	}

	packages := make([]PackageDefinition, 0, len(doc.Trips))
	for _, trip := range doc.Trips {
		packages = append(packages, PackageDefinition{
			Name:            trip.Name,
			Country:         trip.Country,
			BaseURL:         trip.BaseURL,
			DeparturePoints: trip.DepartureLocations,
			PartySizes:      trip.PersonCounts,
		})
	}

	return New(ageToken, departurePoints, partySizes, packages), nil
}
