package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pricewatch/internal/catalog"
	"pricewatch/internal/fileid"
	"pricewatch/internal/filters"
	"pricewatch/internal/pricing"
	"pricewatch/internal/shared/constants"
	"pricewatch/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

type Service interface {
	Create(ctx context.Context, initial filters.Selection) (*View, error)
	Get(ctx context.Context, id string) (*View, error)
	Delete(ctx context.Context, id string) error

	// Cascade transitions
	SetCountry(ctx context.Context, id, country string) (*View, error)
	SetPackage(ctx context.Context, id, pkg string) (*View, error)
	SetDeparturePoint(ctx context.Context, id, departure string) (*View, error)
	SetPartySize(ctx context.Context, id string, n int) (*View, error)
	Refetch(ctx context.Context, id string) (*View, error)

	// Catalog and data files
	Catalog(ctx context.Context) (*CatalogResponse, error)
	ReloadCatalog(ctx context.Context) (*ReloadResponse, error)
	Pricing(ctx context.Context, fileID string) (*pricing.Model, error)
	Offer(ctx context.Context, fileID string) (*OfferResponse, error)
}

// ProbeInvalidator drops cached probe results after a catalog reload.
type ProbeInvalidator interface {
	DeletePattern(ctx context.Context, pattern string) (int, error)
}

// defaultLoadTimeout bounds shared catalog and pricing loads when
// Dependencies.LoadTimeout is unset.
const defaultLoadTimeout = 30 * time.Second

// Dependencies wires a Service. Probes is optional.
type Dependencies struct {
	Catalog    *catalog.Holder
	Store      Store
	Prober     filters.Prober
	Locator    fileid.Locator
	Pricing    pricing.ModelLoader
	Offers     *fileid.OfferResolver
	Probes     ProbeInvalidator
	ProbeLimit int

	// LoadTimeout bounds a load shared by concurrent requests, since it
	// outlives the request that started it.
	LoadTimeout time.Duration
	Logger      *logger.Logger
}

type service struct {
	deps   Dependencies
	logger *logger.Logger
	group  singleflight.Group
}

func NewService(deps Dependencies) Service {
	if deps.Logger == nil {
		deps.Logger = logger.GetDefault()
	}
	if deps.LoadTimeout <= 0 {
		deps.LoadTimeout = defaultLoadTimeout
	}
	return &service{deps: deps, logger: deps.Logger}
}

// Create starts a session seeded with initial. Seed values that are not
// available are dropped together with the levels below them.
func (s *service) Create(ctx context.Context, initial filters.Selection) (*View, error) {
	cat, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}

	sess := s.newSession(uuid.NewString(), cat)
	defer sess.Close()

	if err := sess.Restore(ctx, initial); err != nil {
		return nil, err
	}
	view := sess.Sync(ctx)

	if _, err := s.deps.Store.Save(ctx, sess.ID, view.Filters.Selection, 0); err != nil {
		return nil, err
	}
	s.logger.InfoWithContext(ctx, "Session created", map[string]interface{}{
		"session_id": sess.ID,
		"file_id":    view.Filters.CurrentFileID,
	})
	return &view, nil
}

func (s *service) Get(ctx context.Context, id string) (*View, error) {
	sess, _, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	view := sess.Sync(ctx)
	return &view, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	return s.deps.Store.Delete(ctx, id)
}

func (s *service) SetCountry(ctx context.Context, id, country string) (*View, error) {
	return s.update(ctx, id, filters.LevelCountry, country, func(sess *Session) (View, error) {
		return sess.SetCountry(ctx, country)
	})
}

func (s *service) SetPackage(ctx context.Context, id, pkg string) (*View, error) {
	return s.update(ctx, id, filters.LevelPackage, pkg, func(sess *Session) (View, error) {
		return sess.SetPackage(ctx, pkg)
	})
}

func (s *service) SetDeparturePoint(ctx context.Context, id, departure string) (*View, error) {
	return s.update(ctx, id, filters.LevelDeparturePoint, departure, func(sess *Session) (View, error) {
		return sess.SetDeparturePoint(ctx, departure)
	})
}

func (s *service) SetPartySize(ctx context.Context, id string, n int) (*View, error) {
	return s.update(ctx, id, filters.LevelPartySize, fmt.Sprint(n), func(sess *Session) (View, error) {
		return sess.SetPartySize(ctx, n)
	})
}

func (s *service) Refetch(ctx context.Context, id string) (*View, error) {
	sess, _, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	view, err := sess.Refetch(ctx)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *service) Catalog(ctx context.Context) (*CatalogResponse, error) {
	cat, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	return newCatalogResponse(cat), nil
}

// ReloadCatalog replaces the catalog. Cached probe results are dropped so
// the new declarations are probed afresh.
func (s *service) ReloadCatalog(ctx context.Context) (*ReloadResponse, error) {
	cat, err := s.deps.Catalog.Reload(ctx)
	if err != nil {
		return nil, err
	}

	resp := &ReloadResponse{CatalogResponse: *newCatalogResponse(cat)}
	if s.deps.Probes != nil {
		n, err := s.deps.Probes.DeletePattern(ctx, constants.PATTERN_INVALIDATE_PROBES)
		if err != nil {
			s.logger.ErrorWithContext(ctx, "Failed to invalidate probe cache", err, nil)
		}
		resp.InvalidatedProbes = n
	}
	return resp, nil
}

// Pricing loads one data file directly. Concurrent requests for the same
// file share a single fetch.
func (s *service) Pricing(ctx context.Context, fileID string) (*pricing.Model, error) {
	if _, ok := fileid.Parse(fileID); !ok {
		return nil, ErrInvalidFileID
	}

	v, err := s.shared(ctx, "pricing:"+fileID, func(loadCtx context.Context) (interface{}, error) {
		return s.deps.Pricing.Load(loadCtx, fileID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*pricing.Model), nil
}

func (s *service) Offer(ctx context.Context, fileID string) (*OfferResponse, error) {
	parts, ok := fileid.Parse(fileID)
	if !ok {
		return nil, ErrInvalidFileID
	}
	cat, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}

	offerURL, ok := s.deps.Offers.ResolveOfferURL(fileID, cat)
	if !ok {
		return nil, ErrOfferNotFound
	}
	return &OfferResponse{
		FileID:    fileID,
		Parts:     parts,
		OfferURL:  offerURL,
		DataURL:   s.deps.Locator.DataURL(fileID),
		BrowseURL: s.deps.Locator.BrowseURL(fileID),
	}, nil
}

// catalog returns the installed catalog, loading it on first use.
func (s *service) catalog(ctx context.Context) (*catalog.Catalog, error) {
	if cat := s.deps.Catalog.Get(); cat != nil {
		return cat, nil
	}
	v, err := s.shared(ctx, "catalog", func(loadCtx context.Context) (interface{}, error) {
		if cat := s.deps.Catalog.Get(); cat != nil {
			return cat, nil
		}
		return s.deps.Catalog.Reload(loadCtx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*catalog.Catalog), nil
}

// shared runs load once for all concurrent callers of key. The load is
// detached from the caller that started it and bounded by LoadTimeout;
// each caller stops waiting when its own ctx ends.
func (s *service) shared(ctx context.Context, key string, load func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := s.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.deps.LoadTimeout)
		defer cancel()
		return load(loadCtx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// open rebuilds a stored session without loading its pricing and reports
// the revision it was rebuilt from.
func (s *service) open(ctx context.Context, id string) (*Session, uint64, error) {
	rec, err := s.deps.Store.Get(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	cat, err := s.catalog(ctx)
	if err != nil {
		return nil, 0, err
	}

	sess := s.newSession(id, cat)
	if err := sess.Restore(ctx, rec.Selection); err != nil {
		sess.Close()
		return nil, 0, err
	}
	return sess, rec.Revision, nil
}

// update applies op to the stored session and saves the outcome against the
// revision it started from. When another request saved the session in the
// meantime, the outcome is dropped and the newer session is returned.
func (s *service) update(ctx context.Context, id string, level filters.Level, value string, op func(*Session) (View, error)) (*View, error) {
	sess, revision, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	view, err := op(sess)
	if err != nil {
		return nil, err
	}

	_, err = s.deps.Store.Save(ctx, id, view.Filters.Selection, revision)
	if errors.Is(err, ErrStaleRevision) {
		return s.current(ctx, id, revision)
	}
	if err != nil {
		return nil, err
	}

	s.logger.LogSelectionChanged(ctx, id, string(level), value, view.Filters.CurrentFileID)
	return &view, nil
}

// current returns the session as another request left it after superseding
// the write based on revision.
func (s *service) current(ctx context.Context, id string, revision uint64) (*View, error) {
	sess, latest, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	s.logger.LogStaleResultDropped(ctx, "selection", revision, latest)
	view := sess.Sync(ctx)
	return &view, nil
}

func (s *service) newSession(id string, cat *catalog.Catalog) *Session {
	var opts []filters.ResolverOption
	if s.deps.ProbeLimit > 0 {
		opts = append(opts, filters.WithProbeLimit(s.deps.ProbeLimit))
	}
	resolver := filters.NewResolver(cat, s.deps.Prober, s.deps.Locator.DataURL, s.logger, opts...)
	tracker := pricing.NewTracker(s.deps.Pricing, s.logger)
	return New(id, resolver, tracker, s.logger)
}

// IsNotFound reports whether err means the session does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
