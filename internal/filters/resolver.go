// Package filters implements the cascading country → package → departure
// point → party size selection over a catalog.
//
// Options are always derived from the selection, never stored on their own.
// A level with exactly one candidate is selected automatically. Available
// party sizes are discovered by probing which data files exist; a probe is
// keyed by generation and its result is dropped once the selection above
// party size has moved on.
package filters

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"pricewatch/internal/catalog"
	"pricewatch/internal/fileid"
	"pricewatch/pkg/logger"
)

const defaultProbeLimit = 4

// Prober reports whether a data file exists at url. It never fails.
type Prober interface {
	ProbeExists(ctx context.Context, url string) bool
}

type probeKey struct {
	country   string
	pkg       string
	departure string
}

type ResolverOption func(*Resolver)

// WithProbeLimit caps the number of existence probes run at once.
func WithProbeLimit(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.probeLimit = n
		}
	}
}

// Resolver is the cascade state machine. All methods are safe for
// concurrent use; probes run without holding the lock.
type Resolver struct {
	mu         sync.Mutex
	catalog    *catalog.Catalog
	prober     Prober
	dataURL    func(fileID string) string
	logger     *logger.Logger
	probeLimit int

	sel  Selection
	opts Options

	generation  uint64
	pending     bool
	cancelProbe context.CancelFunc
	probed      probeKey
	probedSizes []int
	probeValid  bool

	nextSubID   int
	subscribers map[int]func(Snapshot)
}

// NewResolver creates a resolver over cat, which may be nil until SetCatalog
// is called. dataURL maps a file id to the URL that is probed. Only the
// country options are filled in; call Restore to run the cascade.
func NewResolver(cat *catalog.Catalog, prober Prober, dataURL func(fileID string) string, l *logger.Logger, opts ...ResolverOption) *Resolver {
	if l == nil {
		l = logger.GetDefault()
	}
	r := &Resolver{
		catalog:     cat,
		prober:      prober,
		dataURL:     dataURL,
		logger:      l,
		probeLimit:  defaultProbeLimit,
		opts:        emptyOptions(),
		subscribers: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if cat != nil {
		r.opts.Countries = nonNil(cat.Countries())
	}
	return r
}

// Snapshot returns the current selection and options.
func (r *Resolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Subscribe registers fn to receive every published snapshot. The returned
// func removes the subscription.
func (r *Resolver) Subscribe(fn func(Snapshot)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSubID
	r.nextSubID++
	r.subscribers[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subscribers, id)
	}
}

// SetCountry selects c and clears every level below it.
func (r *Resolver) SetCountry(ctx context.Context, c string) (Snapshot, error) {
	return r.apply(ctx, func() error {
		if !slices.Contains(r.opts.Countries, c) {
			return &OptionError{Level: LevelCountry, Value: c}
		}
		r.sel = Selection{Country: c}
		return nil
	})
}

// SetPackage selects p and clears departure point and party size.
func (r *Resolver) SetPackage(ctx context.Context, p string) (Snapshot, error) {
	return r.apply(ctx, func() error {
		if !slices.Contains(r.opts.Packages, p) {
			return &OptionError{Level: LevelPackage, Value: p}
		}
		r.sel = Selection{Country: r.sel.Country, Package: p}
		return nil
	})
}

// SetDeparturePoint selects d and clears party size.
func (r *Resolver) SetDeparturePoint(ctx context.Context, d string) (Snapshot, error) {
	return r.apply(ctx, func() error {
		if !slices.Contains(r.opts.DeparturePoints, d) {
			return &OptionError{Level: LevelDeparturePoint, Value: d}
		}
		r.sel = Selection{Country: r.sel.Country, Package: r.sel.Package, DeparturePoint: d}
		return nil
	})
}

// SetPartySize selects n among the probed party sizes.
func (r *Resolver) SetPartySize(ctx context.Context, n int) (Snapshot, error) {
	return r.apply(ctx, func() error {
		if !slices.Contains(r.opts.PartySizes, n) {
			return &OptionError{Level: LevelPartySize, Value: strconv.Itoa(n)}
		}
		r.sel.PartySize = n
		return nil
	})
}

// Restore replays a previously stored selection. Levels whose value is no
// longer available are cleared together with everything below them.
func (r *Resolver) Restore(ctx context.Context, sel Selection) (Snapshot, error) {
	return r.apply(ctx, func() error {
		r.sel = sel
		return nil
	})
}

// SetCatalog swaps the catalog and revalidates the current selection
// against it.
func (r *Resolver) SetCatalog(ctx context.Context, cat *catalog.Catalog) (Snapshot, error) {
	r.mu.Lock()
	r.catalog = cat
	r.probeValid = false
	if cat == nil {
		r.stopProbeLocked()
		r.sel = Selection{}
		r.opts = emptyOptions()
		snap, subs := r.publishLocked()
		r.mu.Unlock()
		notify(subs, snap)
		return snap, nil
	}
	return r.settle(ctx)
}

// apply runs mutate under the lock and then settles the cascade. The lock is
// released before returning.
func (r *Resolver) apply(ctx context.Context, mutate func() error) (Snapshot, error) {
	r.mu.Lock()
	if r.catalog == nil {
		r.mu.Unlock()
		return Snapshot{}, ErrNoCatalog
	}
	if err := mutate(); err != nil {
		snap := r.snapshotLocked()
		r.mu.Unlock()
		return snap, err
	}
	return r.settle(ctx)
}

// settle derives options for the current selection and, when departure
// point is set, discovers party sizes. Must be called with r.mu held; it
// returns with r.mu released.
func (r *Resolver) settle(ctx context.Context) (Snapshot, error) {
	r.deriveLocked()

	if r.sel.DeparturePoint == "" {
		r.stopProbeLocked()
		snap, subs := r.publishLocked()
		r.mu.Unlock()
		notify(subs, snap)
		return snap, nil
	}

	key := probeKey{country: r.sel.Country, pkg: r.sel.Package, departure: r.sel.DeparturePoint}
	if r.probeValid && !r.pending && r.probed == key {
		r.applyPartySizesLocked(r.probedSizes)
		snap, subs := r.publishLocked()
		r.mu.Unlock()
		notify(subs, snap)
		return snap, nil
	}

	r.stopProbeLocked()
	r.generation++
	gen := r.generation
	r.pending = true
	probeCtx, cancel := context.WithCancel(ctx)
	r.cancelProbe = cancel
	candidates := slices.Clone(r.catalog.DefaultPartySizes)

	snap, subs := r.publishLocked()
	r.mu.Unlock()
	notify(subs, snap)

	sizes := r.probe(probeCtx, key, candidates)
	cancel()

	r.mu.Lock()
	if gen != r.generation {
		current := r.generation
		snap := r.snapshotLocked()
		r.mu.Unlock()
		r.logger.LogStaleResultDropped(ctx, "party_size_probe", gen, current)
		return snap, nil
	}

	r.pending = false
	r.cancelProbe = nil
	if err := ctx.Err(); err != nil {
		snap := r.snapshotLocked()
		r.mu.Unlock()
		return snap, err
	}

	r.probed = key
	r.probedSizes = sizes
	r.probeValid = true
	r.applyPartySizesLocked(sizes)

	snap, subs = r.publishLocked()
	r.mu.Unlock()
	notify(subs, snap)
	return snap, nil
}

// deriveLocked rebuilds every option set above party size from scratch,
// dropping selected values that are no longer offered and auto-selecting
// single candidates on the way down.
func (r *Resolver) deriveLocked() {
	cat := r.catalog
	r.opts = emptyOptions()
	r.opts.Countries = nonNil(cat.Countries())

	if r.sel.Country != "" && !slices.Contains(r.opts.Countries, r.sel.Country) {
		r.sel = Selection{}
	}
	if r.sel.Country == "" {
		r.sel = Selection{}
		if len(r.opts.Countries) != 1 {
			return
		}
		r.sel.Country = r.opts.Countries[0]
	}

	r.opts.Packages = nonNil(cat.PackagesIn(r.sel.Country))
	if r.sel.Package != "" && !slices.Contains(r.opts.Packages, r.sel.Package) {
		r.sel = Selection{Country: r.sel.Country}
	}
	if r.sel.Package == "" {
		r.sel = Selection{Country: r.sel.Country}
		if len(r.opts.Packages) != 1 {
			return
		}
		r.sel.Package = r.opts.Packages[0]
	}

	r.opts.DeparturePoints = nonNil(cat.DeparturePointsFor(r.sel.Package))
	if r.sel.DeparturePoint != "" && !slices.Contains(r.opts.DeparturePoints, r.sel.DeparturePoint) {
		r.sel = Selection{Country: r.sel.Country, Package: r.sel.Package}
	}
	if r.sel.DeparturePoint == "" {
		r.sel.PartySize = 0
		if len(r.opts.DeparturePoints) != 1 {
			return
		}
		r.sel.DeparturePoint = r.opts.DeparturePoints[0]
	}
}

func (r *Resolver) applyPartySizesLocked(sizes []int) {
	r.opts.PartySizes = slices.Clone(sizes)
	if r.sel.PartySize != 0 && !slices.Contains(sizes, r.sel.PartySize) {
		r.sel.PartySize = 0
	}
	if r.sel.PartySize == 0 && len(sizes) == 1 {
		r.sel.PartySize = sizes[0]
	}
}

// stopProbeLocked supersedes the probe in flight, if any.
func (r *Resolver) stopProbeLocked() {
	if !r.pending {
		return
	}
	r.generation++
	r.pending = false
	if r.cancelProbe != nil {
		r.cancelProbe()
		r.cancelProbe = nil
	}
}

// probe checks each candidate size concurrently and returns the ones whose
// data file exists, in candidate order.
func (r *Resolver) probe(ctx context.Context, key probeKey, candidates []int) []int {
	found := make([]bool, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.probeLimit)
	for i, size := range candidates {
		i, size := i, size
		g.Go(func() error {
			id := fileid.Build(key.country, key.pkg, key.departure, size)
			found[i] = r.prober.ProbeExists(gctx, r.dataURL(id))
			return nil
		})
	}
	_ = g.Wait()

	sizes := make([]int, 0, len(candidates))
	for i, ok := range found {
		if ok {
			sizes = append(sizes, candidates[i])
		}
	}
	return sizes
}

func (r *Resolver) snapshotLocked() Snapshot {
	return Snapshot{
		Selection: r.sel,
		Options: Options{
			Countries:       slices.Clone(r.opts.Countries),
			Packages:        slices.Clone(r.opts.Packages),
			DeparturePoints: slices.Clone(r.opts.DeparturePoints),
			PartySizes:      slices.Clone(r.opts.PartySizes),
		},
		CurrentFileID: r.sel.FileID(),
		ProbePending:  r.pending,
		Generation:    r.generation,
	}
}

func (r *Resolver) publishLocked() (Snapshot, []func(Snapshot)) {
	subs := make([]func(Snapshot), 0, len(r.subscribers))
	for _, fn := range r.subscribers {
		subs = append(subs, fn)
	}
	return r.snapshotLocked(), subs
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}

func emptyOptions() Options {
	return Options{
		Countries:       []string{},
		Packages:        []string{},
		DeparturePoints: []string{},
		PartySizes:      []int{},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
