package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"pricewatch/pkg/fetch"
	"pricewatch/pkg/logger"
)

// Fetcher is the JSON fetch capability the loader depends on.
type Fetcher interface {
	FetchJSON(ctx context.Context, url string, dest interface{}) error
}

// Loader fetches and decodes the catalog document from a fixed URL.
type Loader struct {
	fetcher Fetcher
	url     string
	logger  *logger.Logger
}

func NewLoader(fetcher Fetcher, url string, l *logger.Logger) *Loader {
	if l == nil {
		l = logger.GetDefault()
	}
	return &Loader{fetcher: fetcher, url: url, logger: l}
}

// URL returns the catalog source location.
func (l *Loader) URL() string { return l.url }

// Load fetches the catalog. Transport and status failures are returned as
// *fetch.NetworkError, bad documents as *FormatError.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	start := time.Now()

	var doc Document
	if err := l.fetcher.FetchJSON(ctx, l.url, &doc); err != nil {
		var decErr *fetch.DecodeError
		if errors.As(err, &decErr) {
			err = &FormatError{Reason: "invalid JSON", Err: decErr.Err}
		}
		l.logger.LogLoadFailed(ctx, "catalog", l.url, err)
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	cat, err := FromDocument(&doc)
	if err != nil {
		l.logger.LogLoadFailed(ctx, "catalog", l.url, err)
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	l.logger.LogCatalogLoaded(ctx, l.url, len(cat.Packages), len(cat.Countries()), time.Since(start))
	return cat, nil
}

// Holder owns the session-wide catalog. A reload swaps the whole value; a
// failed reload keeps the previous one.
type Holder struct {
	current atomic.Pointer[Catalog]
	loader  *Loader
}

func NewHolder(loader *Loader) *Holder {
	return &Holder{loader: loader}
}

// Get returns the current catalog, or nil before the first successful load.
func (h *Holder) Get() *Catalog {
	return h.current.Load()
}

// Set replaces the current catalog.
func (h *Holder) Set(c *Catalog) {
	h.current.Store(c)
}

// Reload fetches a fresh catalog and installs it on success.
func (h *Holder) Reload(ctx context.Context) (*Catalog, error) {
	if h.loader == nil {
		return nil, errors.New("catalog holder has no loader")
	}
	cat, err := h.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	h.Set(cat)
	return cat, nil
}
