package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/data/ok.csv", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(",01.01.2025 10:00:00\n"))
	})
	mux.HandleFunc("/sources.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"catalog"}`))
	})
	mux.HandleFunc("/broken.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchText(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(DefaultConfig(), srv.Client(), nil)

	body, err := c.FetchText(context.Background(), srv.URL+"/data/ok.csv")
	require.NoError(t, err)
	assert.Equal(t, ",01.01.2025 10:00:00\n", body)
}

func TestFetchTextNotFound(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(DefaultConfig(), srv.Client(), nil)

	_, err := c.FetchText(context.Background(), srv.URL+"/data/missing.csv")
	require.Error(t, err)

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, http.StatusNotFound, netErr.StatusCode)
}

func TestFetchTextTransportFailure(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL + "/data/ok.csv"
	srv.Close()

	c := NewClient(DefaultConfig(), nil, nil)
	_, err := c.FetchText(context.Background(), url)

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Zero(t, netErr.StatusCode)
}

func TestFetchJSON(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(DefaultConfig(), srv.Client(), nil)

	var dest struct {
		Name string `json:"name"`
	}
	require.NoError(t, c.FetchJSON(context.Background(), srv.URL+"/sources.json", &dest))
	assert.Equal(t, "catalog", dest.Name)

	err := c.FetchJSON(context.Background(), srv.URL+"/broken.json", &dest)
	var decErr *DecodeError
	assert.True(t, errors.As(err, &decErr))
}

func TestProbeExists(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(DefaultConfig(), srv.Client(), nil)
	ctx := context.Background()

	assert.True(t, c.ProbeExists(ctx, srv.URL+"/data/ok.csv"))
	assert.False(t, c.ProbeExists(ctx, srv.URL+"/data/missing.csv"))
	assert.False(t, c.ProbeExists(ctx, "://not a url"))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.False(t, c.ProbeExists(cancelled, srv.URL+"/data/ok.csv"))
}
