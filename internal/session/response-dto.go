package session

import (
	"pricewatch/internal/catalog"
	"pricewatch/internal/fileid"
)

type CatalogResponse struct {
	Catalog      *catalog.Catalog     `json:"catalog"`
	Countries    []string             `json:"countries"`
	Combinations []fileid.Combination `json:"combinations"`
}

type ReloadResponse struct {
	CatalogResponse
	InvalidatedProbes int `json:"invalidated_probes"`
}

type OfferResponse struct {
	FileID    string       `json:"file_id"`
	Parts     fileid.Parts `json:"parts"`
	OfferURL  string       `json:"offer_url"`
	DataURL   string       `json:"data_url"`
	BrowseURL string       `json:"browse_url"`
}

func newCatalogResponse(cat *catalog.Catalog) *CatalogResponse {
	combos := fileid.Combinations(cat)
	if combos == nil {
		combos = []fileid.Combination{}
	}
	return &CatalogResponse{
		Catalog:      cat,
		Countries:    cat.Countries(),
		Combinations: combos,
	}
}
