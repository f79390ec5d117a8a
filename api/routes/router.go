// api/routes/router.go
package routes

import (
	"context"
	"net/http"
	"time"

	"pricewatch/docs"
	"pricewatch/internal/catalog"
	"pricewatch/internal/fileid"
	"pricewatch/internal/filters"
	"pricewatch/internal/pricing"
	"pricewatch/internal/session"
	"pricewatch/internal/shared/config"
	"pricewatch/internal/shared/database"
	"pricewatch/pkg/cache"
	"pricewatch/pkg/fetch"
	"pricewatch/pkg/logger"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const serviceName = "pricewatch"

// Router holds all route dependencies
type Router struct {
	config *config.Config
	db     *database.DB
	logger *logger.Logger
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, l *logger.Logger) *Router {
	if l == nil {
		l = logger.GetDefault()
	}
	return &Router{
		config: cfg,
		db:     db,
		logger: l,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// API documentation
	docs.SwaggerInfo.BasePath = r.config.GetAPIBasePath()
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupSessionRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		// Perform health checks
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   serviceName,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   serviceName,
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"redis":       r.db.GetRedisClient() != nil,
			"timestamp":   time.Now(),
		})
	})
}

// setupSessionRoutes configures the session, catalog and data file routes
func (r *Router) setupSessionRoutes(rg *gin.RouterGroup) {
	sessionService := r.buildSessionService()
	sessionController := session.NewController(sessionService)

	session.SetupSessionRoutes(rg, sessionController)
}

// buildSessionService wires the data source, catalog, pricing and session
// storage. Redis-backed pieces fall back to in-process ones when Redis is
// disabled.
func (r *Router) buildSessionService() session.Service {
	src := r.config.Source

	fetchCfg := fetch.DefaultConfig()
	fetchCfg.Timeout = src.HTTPTimeout
	fetchCfg.UserAgent = src.UserAgent
	client := fetch.NewClient(fetchCfg, nil, r.logger)

	holder := catalog.NewHolder(catalog.NewLoader(client, src.CatalogURL, r.logger))
	if src.StartupLoad {
		ctx, cancel := context.WithTimeout(context.Background(), src.HTTPTimeout)
		if _, err := holder.Reload(ctx); err != nil {
			// The first request retries the load.
			r.logger.Warn("Initial catalog load failed", "url", src.CatalogURL, "error", err)
		}
		cancel()
	}

	locator := fileid.Locator{DataBaseURL: src.DataBaseURL, BrowseBaseURL: src.BrowseBaseURL}
	offers := fileid.NewOfferResolver(fileid.ParseMatchMode(src.OfferMatchMode), r.logger)

	parser := pricing.NewParser(
		pricing.WithLocation(r.config.Location()),
		pricing.WithOfferLinker(fileid.NewLinker(offers, holder.Get)),
		pricing.WithSourceURL(locator.BrowseURL),
	)
	pricingLoader := pricing.NewLoader(client, locator, parser, r.logger)

	deps := session.Dependencies{
		Catalog:     holder,
		Prober:      client,
		Locator:     locator,
		Pricing:     pricingLoader,
		Offers:      offers,
		ProbeLimit:  src.ProbeLimit,
		LoadTimeout: src.HTTPTimeout,
		Logger:      r.logger,
	}

	if rdb := r.db.GetRedisClient(); rdb != nil {
		cacheService := cache.NewService(rdb)
		deps.Store = session.NewRedisStore(cacheService, r.config.Redis.SessionTTL)
		deps.Prober = filters.NewCachedProber(client, cacheService, r.config.Redis.ProbeTTL, r.logger)
		deps.Probes = cacheService
	} else {
		deps.Store = session.NewMemoryStore(r.config.Redis.SessionTTL)
	}

	return session.NewService(deps)
}
