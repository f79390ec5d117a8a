package session

// CreateSessionRequest optionally seeds a new session. Values that are not
// available in the catalog are dropped rather than rejected.
type CreateSessionRequest struct {
	Country        string `json:"country"`
	Package        string `json:"package"`
	DeparturePoint string `json:"departure_point"`
	PartySize      int    `json:"party_size" binding:"omitempty,min=1"`
}

type SetCountryRequest struct {
	Country string `json:"country" binding:"required"`
}

type SetPackageRequest struct {
	Package string `json:"package" binding:"required"`
}

type SetDeparturePointRequest struct {
	DeparturePoint string `json:"departure_point" binding:"required"`
}

type SetPartySizeRequest struct {
	PartySize int `json:"party_size" binding:"required,min=1"`
}
