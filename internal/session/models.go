package session

import (
	"errors"

	"pricewatch/internal/catalog"
	"pricewatch/internal/filters"
	"pricewatch/internal/pricing"
	"pricewatch/pkg/fetch"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidFileID   = errors.New("invalid file id")
	ErrOfferNotFound   = errors.New("no offer matches the file id")
)

type PricingStatus string

const (
	PricingStatusIdle    PricingStatus = "idle"
	PricingStatusLoading PricingStatus = "loading"
	PricingStatusReady   PricingStatus = "ready"
	PricingStatusFailed  PricingStatus = "failed"
)

type ErrorKind string

const (
	ErrorKindNetwork ErrorKind = "network"
	ErrorKindFormat  ErrorKind = "format"
	ErrorKindOther   ErrorKind = "other"
)

// PricingView is the presentation form of a tracker state.
type PricingView struct {
	Status    PricingStatus  `json:"status"`
	FileID    string         `json:"file_id,omitempty"`
	Model     *pricing.Model `json:"model,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorKind ErrorKind      `json:"error_kind,omitempty"`
}

// View is everything a client needs to render one session.
type View struct {
	SessionID string           `json:"session_id"`
	Filters   filters.Snapshot `json:"filters"`
	Pricing   PricingView      `json:"pricing"`
}

func newPricingView(st pricing.State) PricingView {
	v := PricingView{FileID: st.FileID, Model: st.Model}
	switch {
	case st.Loading:
		v.Status = PricingStatusLoading
	case st.Err != nil:
		v.Status = PricingStatusFailed
		v.Error = st.Err.Error()
		v.ErrorKind = errorKindOf(st.Err)
	case st.Model != nil:
		v.Status = PricingStatusReady
	default:
		v.Status = PricingStatusIdle
	}
	return v
}

// errorKindOf tells network failures apart from malformed data.
func errorKindOf(err error) ErrorKind {
	var netErr *fetch.NetworkError
	var catErr *catalog.FormatError
	switch {
	case errors.As(err, &netErr):
		return ErrorKindNetwork
	case errors.As(err, &catErr), pricing.IsFormatError(err):
		return ErrorKindFormat
	default:
		return ErrorKindOther
	}
}
