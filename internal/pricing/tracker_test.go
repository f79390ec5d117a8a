package pricing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/fileid"
	"pricewatch/pkg/fetch"
	"pricewatch/pkg/logger"
)

// gatedLoader blocks each load until its file id's gate is released.
type gatedLoader struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	started chan string
	calls   map[string]int
	errs    map[string]error
}

func newGatedLoader() *gatedLoader {
	return &gatedLoader{
		gates:   make(map[string]chan struct{}),
		started: make(chan string, 16),
		calls:   make(map[string]int),
		errs:    make(map[string]error),
	}
}

func (g *gatedLoader) gate(fileID string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[fileID]
	if !ok {
		ch = make(chan struct{})
		g.gates[fileID] = ch
	}
	return ch
}

func (g *gatedLoader) open(fileID string) { close(g.gate(fileID)) }

func (g *gatedLoader) Load(ctx context.Context, fileID string) (*Model, error) {
	g.mu.Lock()
	g.calls[fileID]++
	err := g.errs[fileID]
	g.mu.Unlock()

	g.started <- fileID
	select {
	case <-g.gate(fileID):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return &Model{SourceID: fileID}, nil
}

func (g *gatedLoader) callCount(fileID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[fileID]
}

func TestTrackerLoad(t *testing.T) {
	loader := newGatedLoader()
	loader.open("a")
	tr := NewTracker(loader, logger.Discard())

	st := tr.Load(context.Background(), "a")
	require.NoError(t, st.Err)
	require.NotNil(t, st.Model)
	assert.Equal(t, "a", st.Model.SourceID)
	assert.False(t, st.Loading)
	assert.Equal(t, st, tr.State())
}

func TestTrackerDiscardsSupersededResult(t *testing.T) {
	loader := newGatedLoader()
	tr := NewTracker(loader, logger.Discard())
	ctx := context.Background()

	done := make(chan State, 1)
	go func() { done <- tr.Load(ctx, "old") }()
	require.Equal(t, "old", <-loader.started)
	assert.True(t, tr.State().Loading)

	loader.open("new")
	newState := tr.Load(ctx, "new")
	<-loader.started
	require.Equal(t, "new", newState.Model.SourceID)

	loader.open("old")
	select {
	case st := <-done:
		assert.Equal(t, "new", st.FileID, "stale load must report the newer state")
	case <-time.After(2 * time.Second):
		t.Fatal("old load did not return")
	}
	assert.Equal(t, "new", tr.State().Model.SourceID)
}

func TestTrackerClearInvalidatesInFlight(t *testing.T) {
	loader := newGatedLoader()
	tr := NewTracker(loader, logger.Discard())

	done := make(chan State, 1)
	go func() { done <- tr.Load(context.Background(), "a") }()
	<-loader.started

	tr.Clear()
	loader.open("a")
	<-done

	assert.Equal(t, State{}, tr.State())
}

func TestTrackerEnsureDoesNotRetryFailures(t *testing.T) {
	loader := newGatedLoader()
	loader.errs["a"] = &fetch.NetworkError{URL: "https://example.test/a.csv", StatusCode: http.StatusNotFound}
	loader.open("a")
	tr := NewTracker(loader, logger.Discard())
	ctx := context.Background()

	st := tr.Ensure(ctx, "a")
	<-loader.started
	var netErr *fetch.NetworkError
	require.True(t, errors.As(st.Err, &netErr))

	st = tr.Ensure(ctx, "a")
	assert.Error(t, st.Err)
	assert.Equal(t, 1, loader.callCount("a"))

	st, err := tr.Refetch(ctx, "a")
	require.NoError(t, err)
	<-loader.started
	assert.Error(t, st.Err)
	assert.Equal(t, 2, loader.callCount("a"))
}

func TestTrackerEmptyFileIDClears(t *testing.T) {
	loader := newGatedLoader()
	loader.open("a")
	tr := NewTracker(loader, logger.Discard())

	tr.Load(context.Background(), "a")
	<-loader.started
	st := tr.Ensure(context.Background(), "")
	assert.Equal(t, State{}, st)
}

func TestTrackerRefetchWithoutFileID(t *testing.T) {
	tr := NewTracker(newGatedLoader(), logger.Discard())
	_, err := tr.Refetch(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoFileID)
}

func TestLoaderFetchesAndParses(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(",01.01.2099 10:00:00\n15.06.2099 - 20.06.2099,900\n"))
	}))
	defer srv.Close()

	locator := fileid.Locator{DataBaseURL: srv.URL + "/data", BrowseBaseURL: "https://browse.example.test/data"}
	client := fetch.NewClient(fetch.DefaultConfig(), srv.Client(), logger.Discard())
	l := NewLoader(client, locator, nil, logger.Discard())

	model, err := l.Load(context.Background(), "Grecja__Kreta__Katowice__2os")
	require.NoError(t, err)
	assert.Equal(t, "/data/Grecja__Kreta__Katowice__2os.csv", gotPath)
	require.Len(t, model.Terms, 1)
	assert.Equal(t, "https://browse.example.test/data/Grecja__Kreta__Katowice__2os.csv", model.SourceURL)
}

func TestLoaderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing__x__y__1os.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("just one line\n"))
	}))
	defer srv.Close()

	client := fetch.NewClient(fetch.DefaultConfig(), srv.Client(), logger.Discard())
	l := NewLoader(client, fileid.Locator{DataBaseURL: srv.URL}, nil, logger.Discard())
	ctx := context.Background()

	_, err := l.Load(ctx, "missing__x__y__1os")
	var netErr *fetch.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, http.StatusNotFound, netErr.StatusCode)

	_, err = l.Load(ctx, "short__x__y__1os")
	assert.True(t, IsFormatError(err))

	_, err = l.Load(ctx, "not-an-id")
	assert.True(t, IsFormatError(err))
}
