package main

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/catalog"
	"pricewatch/internal/fileid"
	"pricewatch/internal/pricing"
	"pricewatch/internal/session"
	"pricewatch/pkg/logger"
)

type stubProber struct{}

func (stubProber) ProbeExists(context.Context, string) bool { return true }

type stubLoader struct{}

func (stubLoader) Load(_ context.Context, fileID string) (*pricing.Model, error) {
	return &pricing.Model{SourceID: fileID}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	holder := catalog.NewHolder(nil)
	holder.Set(catalog.New(catalog.DefaultAgeToken, []string{"Katowice"}, []int{2}, []catalog.PackageDefinition{
		{Name: "Alpha", Country: "Poland", BaseURL: "https://tours.example.test/alpha"},
	}))
	svc := session.NewService(session.Dependencies{
		Catalog: holder,
		Store:   session.NewMemoryStore(0),
		Prober:  stubProber{},
		Locator: fileid.Locator{DataBaseURL: "https://data.example.test/data"},
		Pricing: stubLoader{},
		Offers:  fileid.NewOfferResolver(fileid.MatchExact, logger.Discard()),
		Logger:  logger.Discard(),
	})

	engine := gin.New()
	session.SetupSessionRoutes(engine.Group("/api/v1"), session.NewController(svc))
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv
}

func TestRunPass(t *testing.T) {
	srv := newTestServer(t)
	suite := &CacheTestSuite{BaseURL: srv.URL + "/api/v1", Client: srv.Client()}

	require.NoError(t, suite.RunPass("cold"))
	require.NoError(t, suite.RunPass("warm"))

	report := suite.Report()
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 10, report.Calls)
	assert.Positive(t, report.Cold)
	assert.Positive(t, report.Warm)
}

func TestRunPass_ServerDown(t *testing.T) {
	srv := newTestServer(t)
	suite := &CacheTestSuite{BaseURL: srv.URL + "/missing", Client: srv.Client()}

	assert.Error(t, suite.RunPass("cold"))
	assert.Equal(t, 1, suite.Report().Failed)
}
