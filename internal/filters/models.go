package filters

import (
	"errors"
	"fmt"

	"pricewatch/internal/fileid"
)

// Level is one step of the country → package → departure point → party
// size cascade.
type Level string

const (
	LevelCountry        Level = "country"
	LevelPackage        Level = "package"
	LevelDeparturePoint Level = "departure_point"
	LevelPartySize      Level = "party_size"
)

var (
	ErrUnknownOption = errors.New("value is not an available option")
	ErrNoCatalog     = errors.New("catalog is not loaded")
)

// OptionError is returned by the setters when the value is not in the
// current option set. It matches ErrUnknownOption with errors.Is.
type OptionError struct {
	Level Level
	Value string
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("%s %q is not an available option", e.Level, e.Value)
}

func (e *OptionError) Unwrap() error { return ErrUnknownOption }

// Selection is the user's pick at each level. Empty string and zero mean
// unset.
type Selection struct {
	Country        string `json:"country,omitempty"`
	Package        string `json:"package,omitempty"`
	DeparturePoint string `json:"departure_point,omitempty"`
	PartySize      int    `json:"party_size,omitempty"`
}

// Complete reports whether every level is set.
func (s Selection) Complete() bool {
	return s.Country != "" && s.Package != "" && s.DeparturePoint != "" && s.PartySize > 0
}

// FileID is the data file identifier of a complete selection, or "".
func (s Selection) FileID() string {
	if !s.Complete() {
		return ""
	}
	return fileid.Build(s.Country, s.Package, s.DeparturePoint, s.PartySize)
}

// Options are the values each level can currently take.
type Options struct {
	Countries       []string `json:"countries"`
	Packages        []string `json:"packages"`
	DeparturePoints []string `json:"departure_points"`
	PartySizes      []int    `json:"party_sizes"`
}

// Snapshot is a consistent view of selection and options.
type Snapshot struct {
	Selection     Selection `json:"selection"`
	Options       Options   `json:"options"`
	CurrentFileID string    `json:"current_file_id,omitempty"`
	ProbePending  bool      `json:"probe_pending"`
	Generation    uint64    `json:"generation"`
}
