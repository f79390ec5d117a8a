package filters

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/catalog"
	"pricewatch/internal/fileid"
	"pricewatch/pkg/logger"
)

var testLocator = fileid.Locator{DataBaseURL: "https://data.example.test/data"}

// fakeProber answers from a set of existing file ids. Probes for URLs
// containing a gated substring block until release is called.
type fakeProber struct {
	mu       sync.Mutex
	existing map[string]bool
	gated    string
	gate     chan struct{}
	started  chan string
	calls    int
}

func newFakeProber(existing ...string) *fakeProber {
	p := &fakeProber{
		existing: make(map[string]bool),
		gate:     make(chan struct{}),
		started:  make(chan string, 64),
	}
	for _, id := range existing {
		p.existing[testLocator.DataURL(id)] = true
	}
	return p
}

func (p *fakeProber) release() { close(p.gate) }

func (p *fakeProber) ProbeExists(_ context.Context, url string) bool {
	p.mu.Lock()
	p.calls++
	gated := p.gated != "" && strings.Contains(url, p.gated)
	exists := p.existing[url]
	p.mu.Unlock()

	if gated {
		p.started <- url
		<-p.gate
	}
	return exists
}

func (p *fakeProber) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func polandCatalog(packages ...string) *catalog.Catalog {
	defs := make([]catalog.PackageDefinition, 0, len(packages)+1)
	for _, name := range packages {
		defs = append(defs, catalog.PackageDefinition{Name: name, Country: "Poland", BaseURL: "https://tours.example.test/" + strings.ToLower(name)})
	}
	defs = append(defs, catalog.PackageDefinition{
		Name:            "Crete",
		Country:         "Greece",
		BaseURL:         "https://tours.example.test/crete",
		DeparturePoints: []string{"Warszawa"},
	})
	return catalog.New(catalog.DefaultAgeToken, []string{"Katowice", "Kraków"}, []int{1, 2, 3}, defs)
}

func newTestResolver(cat *catalog.Catalog, prober Prober) *Resolver {
	return NewResolver(cat, prober, testLocator.DataURL, logger.Discard())
}

func assertCascadeConsistent(t *testing.T, s Selection) {
	t.Helper()
	if s.Country == "" {
		assert.Empty(t, s.Package)
	}
	if s.Package == "" {
		assert.Empty(t, s.DeparturePoint)
	}
	if s.DeparturePoint == "" {
		assert.Zero(t, s.PartySize)
	}
}

func TestSetCountryWithTwoPackagesSelectsNothing(t *testing.T) {
	r := newTestResolver(polandCatalog("Alpha", "Beta"), newFakeProber())

	snap, err := r.SetCountry(context.Background(), "Poland")
	require.NoError(t, err)
	assert.Equal(t, []string{"Poland", "Greece"}, snap.Options.Countries)
	assert.Equal(t, []string{"Alpha", "Beta"}, snap.Options.Packages)
	assert.Equal(t, Selection{Country: "Poland"}, snap.Selection)
	assert.Empty(t, snap.Options.DeparturePoints)
	assert.Empty(t, snap.CurrentFileID)
}

func TestSetCountryAutoSelectsSinglePackage(t *testing.T) {
	r := newTestResolver(polandCatalog("Alpha"), newFakeProber())

	snap, err := r.SetCountry(context.Background(), "Poland")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", snap.Selection.Package)
	assert.Equal(t, []string{"Katowice", "Kraków"}, snap.Options.DeparturePoints)
	assert.Empty(t, snap.Selection.DeparturePoint, "two departure points, nothing to auto-select")
}

func TestAutoSelectPropagatesThroughPartySize(t *testing.T) {
	prober := newFakeProber("Greece__Crete__Warszawa__2os")
	r := newTestResolver(polandCatalog("Alpha", "Beta"), prober)

	snap, err := r.SetCountry(context.Background(), "Greece")
	require.NoError(t, err)
	assert.Equal(t, Selection{Country: "Greece", Package: "Crete", DeparturePoint: "Warszawa", PartySize: 2}, snap.Selection)
	assert.Equal(t, []int{2}, snap.Options.PartySizes)
	assert.Equal(t, "Greece__Crete__Warszawa__2os", snap.CurrentFileID)
	assert.False(t, snap.ProbePending)
}

func TestPartySizesAreProbedDefaults(t *testing.T) {
	prober := newFakeProber(
		"Poland__Alpha__Krakow__1os",
		"Poland__Alpha__Krakow__3os",
		"Poland__Alpha__Katowice__2os",
	)
	r := newTestResolver(polandCatalog("Alpha", "Beta"), prober)
	ctx := context.Background()

	_, err := r.SetCountry(ctx, "Poland")
	require.NoError(t, err)
	_, err = r.SetPackage(ctx, "Alpha")
	require.NoError(t, err)
	snap, err := r.SetDeparturePoint(ctx, "Kraków")
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3}, snap.Options.PartySizes)
	assert.Zero(t, snap.Selection.PartySize)
	assert.Empty(t, snap.CurrentFileID)

	snap, err = r.SetPartySize(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Poland__Alpha__Krakow__3os", snap.CurrentFileID)
	assert.Equal(t, 3, prober.callCount(), "choosing a party size must not re-probe")
}

func TestUpperChangeClearsLowerLevels(t *testing.T) {
	prober := newFakeProber("Poland__Alpha__Katowice__1os", "Poland__Alpha__Katowice__2os")
	r := newTestResolver(polandCatalog("Alpha", "Beta"), prober)
	ctx := context.Background()

	_, err := r.SetCountry(ctx, "Poland")
	require.NoError(t, err)
	_, err = r.SetPackage(ctx, "Alpha")
	require.NoError(t, err)
	_, err = r.SetDeparturePoint(ctx, "Katowice")
	require.NoError(t, err)
	snap, err := r.SetPartySize(ctx, 1)
	require.NoError(t, err)
	require.True(t, snap.Selection.Complete())

	snap, err = r.SetPackage(ctx, "Beta")
	require.NoError(t, err)
	assert.Equal(t, Selection{Country: "Poland", Package: "Beta"}, snap.Selection)
	assert.Empty(t, snap.Options.PartySizes)
	assert.Empty(t, snap.CurrentFileID)

	snap, err = r.SetCountry(ctx, "Poland")
	require.NoError(t, err)
	assert.Equal(t, Selection{Country: "Poland"}, snap.Selection)
}

func TestUnknownOptionLeavesSelectionUntouched(t *testing.T) {
	r := newTestResolver(polandCatalog("Alpha", "Beta"), newFakeProber())
	ctx := context.Background()

	_, err := r.SetCountry(ctx, "Poland")
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() (Snapshot, error)
	}{
		{"country", func() (Snapshot, error) { return r.SetCountry(ctx, "Atlantis") }},
		{"package from other country", func() (Snapshot, error) { return r.SetPackage(ctx, "Crete") }},
		{"departure before package", func() (Snapshot, error) { return r.SetDeparturePoint(ctx, "Katowice") }},
		{"party size before departure", func() (Snapshot, error) { return r.SetPartySize(ctx, 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := tt.call()
			require.ErrorIs(t, err, ErrUnknownOption)
			var optErr *OptionError
			require.True(t, errors.As(err, &optErr))
			assert.Equal(t, Selection{Country: "Poland"}, snap.Selection)
		})
	}
}

func TestNoCatalog(t *testing.T) {
	r := newTestResolver(nil, newFakeProber())
	_, err := r.SetCountry(context.Background(), "Poland")
	assert.ErrorIs(t, err, ErrNoCatalog)
}

func TestRestoreDropsUnavailableLevels(t *testing.T) {
	prober := newFakeProber("Poland__Alpha__Katowice__2os", "Poland__Alpha__Katowice__3os")
	r := newTestResolver(polandCatalog("Alpha", "Beta"), prober)
	ctx := context.Background()

	snap, err := r.Restore(ctx, Selection{Country: "Poland", Package: "Alpha", DeparturePoint: "Katowice", PartySize: 3})
	require.NoError(t, err)
	assert.Equal(t, "Poland__Alpha__Katowice__3os", snap.CurrentFileID)

	snap, err = r.Restore(ctx, Selection{Country: "Poland", Package: "Alpha", DeparturePoint: "Katowice", PartySize: 1})
	require.NoError(t, err)
	assert.Equal(t, Selection{Country: "Poland", Package: "Alpha", DeparturePoint: "Katowice"}, snap.Selection)

	snap, err = r.Restore(ctx, Selection{Country: "Poland", Package: "Gone", DeparturePoint: "Katowice", PartySize: 2})
	require.NoError(t, err)
	assert.Equal(t, Selection{Country: "Poland"}, snap.Selection)

	snap, err = r.Restore(ctx, Selection{Package: "Alpha"})
	require.NoError(t, err)
	assert.Equal(t, Selection{}, snap.Selection)
}

func TestSetCatalogRevalidates(t *testing.T) {
	prober := newFakeProber("Poland__Alpha__Katowice__1os")
	r := newTestResolver(polandCatalog("Alpha", "Beta"), prober)
	ctx := context.Background()

	_, err := r.Restore(ctx, Selection{Country: "Poland", Package: "Beta"})
	require.NoError(t, err)

	snap, err := r.SetCatalog(ctx, polandCatalog("Alpha"))
	require.NoError(t, err)
	assert.Equal(t, Selection{Country: "Poland", Package: "Alpha"}, snap.Selection)

	snap, err = r.SetCatalog(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, Selection{}, snap.Selection)
	assert.Empty(t, snap.Options.Countries)
}

func TestStaleProbeResultIsDropped(t *testing.T) {
	prober := newFakeProber(
		"Poland__Alpha__Katowice__1os",
		"Poland__Alpha__Katowice__2os",
		"Poland__Alpha__Krakow__3os",
	)
	prober.gated = "Katowice"
	r := newTestResolver(polandCatalog("Alpha", "Beta"), prober)
	ctx := context.Background()

	_, err := r.Restore(ctx, Selection{Country: "Poland", Package: "Alpha"})
	require.NoError(t, err)

	done := make(chan Snapshot, 1)
	go func() {
		snap, _ := r.SetDeparturePoint(ctx, "Katowice")
		done <- snap
	}()
	<-prober.started
	pending := r.Snapshot()
	assert.True(t, pending.ProbePending)
	assert.Empty(t, pending.Options.PartySizes)

	snap, err := r.SetDeparturePoint(ctx, "Kraków")
	require.NoError(t, err)
	assert.Equal(t, "Poland__Alpha__Krakow__3os", snap.CurrentFileID)

	prober.release()
	select {
	case stale := <-done:
		assert.Equal(t, "Kraków", stale.Selection.DeparturePoint)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded probe did not return")
	}

	final := r.Snapshot()
	assert.Equal(t, []int{3}, final.Options.PartySizes)
	assert.Equal(t, Selection{Country: "Poland", Package: "Alpha", DeparturePoint: "Kraków", PartySize: 3}, final.Selection)
	assert.False(t, final.ProbePending)
}

func TestProbeHonoursCallerCancellation(t *testing.T) {
	r := newTestResolver(polandCatalog("Alpha"), newFakeProber("Poland__Alpha__Katowice__1os"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := r.Restore(ctx, Selection{Country: "Poland", Package: "Alpha", DeparturePoint: "Katowice"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, snap.ProbePending)

	// the aborted probe is not remembered
	snap, err = r.Restore(context.Background(), Selection{Country: "Poland", Package: "Alpha", DeparturePoint: "Katowice"})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Selection.PartySize)
}

func TestSubscribeSeesConsistentSnapshots(t *testing.T) {
	prober := newFakeProber("Greece__Crete__Warszawa__1os", "Greece__Crete__Warszawa__2os")
	r := newTestResolver(polandCatalog("Alpha", "Beta"), prober)

	var got []Snapshot
	unsubscribe := r.Subscribe(func(s Snapshot) { got = append(got, s) })

	_, err := r.SetCountry(context.Background(), "Greece")
	require.NoError(t, err)

	require.Len(t, got, 2, "pending snapshot then probed snapshot")
	assert.True(t, got[0].ProbePending)
	assert.Empty(t, got[0].Options.PartySizes)
	assert.Equal(t, []int{1, 2}, got[1].Options.PartySizes)
	for _, s := range got {
		assertCascadeConsistent(t, s.Selection)
	}

	unsubscribe()
	_, err = r.SetCountry(context.Background(), "Poland")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCascadeInvariantUnderRandomSequences(t *testing.T) {
	prober := newFakeProber(
		"Poland__Alpha__Katowice__1os",
		"Poland__Alpha__Krakow__2os",
		"Poland__Beta__Katowice__1os",
		"Poland__Beta__Katowice__3os",
		"Greece__Crete__Warszawa__2os",
	)
	r := newTestResolver(polandCatalog("Alpha", "Beta"), prober)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	countries := []string{"Poland", "Greece", "Atlantis"}
	packages := []string{"Alpha", "Beta", "Crete", "Gamma"}
	departures := []string{"Katowice", "Kraków", "Warszawa"}

	for i := 0; i < 500; i++ {
		var snap Snapshot
		switch rng.Intn(4) {
		case 0:
			snap, _ = r.SetCountry(ctx, countries[rng.Intn(len(countries))])
		case 1:
			snap, _ = r.SetPackage(ctx, packages[rng.Intn(len(packages))])
		case 2:
			snap, _ = r.SetDeparturePoint(ctx, departures[rng.Intn(len(departures))])
		case 3:
			snap, _ = r.SetPartySize(ctx, 1+rng.Intn(3))
		}
		assertCascadeConsistent(t, snap.Selection)
		assert.Equal(t, snap.Selection.Complete(), snap.CurrentFileID != "")
	}
}
