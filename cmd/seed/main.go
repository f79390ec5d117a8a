package main

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"pricewatch/internal/catalog"
	"pricewatch/internal/fileid"
	"pricewatch/internal/filters"
	"pricewatch/internal/session"
	"pricewatch/internal/shared/config"
	"pricewatch/internal/shared/constants"
	"pricewatch/internal/shared/database"
	"pricewatch/pkg/cache"
	"pricewatch/pkg/fetch"
	"pricewatch/pkg/logger"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// Seeder fills the probe cache with the existence of every data file the
// catalog declares, so the first sessions after a deploy do not wait on
// the data source.
type Seeder struct {
	prober  filters.Prober
	cleaner session.ProbeInvalidator
	locator fileid.Locator
	limit   int
}

// SeedReport summarizes one seeding run.
type SeedReport struct {
	Combinations int           `json:"combinations"`
	Existing     int           `json:"existing"`
	Missing      int           `json:"missing"`
	Cleaned      int           `json:"cleaned"`
	Duration     time.Duration `json:"duration"`
}

func main() {
	fmt.Println("🌱 Starting pricewatch probe cache seeder...")

	_ = godotenv.Load()
	cfg := config.Load()
	appLogger := logger.NewWithWriter(log.Writer(), cfg.LogLevel)

	if !cfg.Redis.Enabled {
		log.Fatal("Redis is disabled, nothing to seed")
	}
	db, err := database.InitDB(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer db.Close()

	fetchCfg := fetch.DefaultConfig()
	fetchCfg.Timeout = cfg.Source.HTTPTimeout
	fetchCfg.UserAgent = cfg.Source.UserAgent
	client := fetch.NewClient(fetchCfg, nil, appLogger)
	cacheService := cache.NewService(db.GetRedisClient())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cat, err := catalog.NewLoader(client, cfg.Source.CatalogURL, appLogger).Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	seeder := &Seeder{
		prober:  filters.NewCachedProber(client, cacheService, cfg.Redis.ProbeTTL, appLogger),
		cleaner: cacheService,
		locator: fileid.Locator{DataBaseURL: cfg.Source.DataBaseURL, BrowseBaseURL: cfg.Source.BrowseBaseURL},
		limit:   cfg.Source.ProbeLimit,
	}

	report, err := seeder.SeedAll(ctx, cat)
	if err != nil {
		log.Fatalf("Failed to seed probe cache: %v", err)
	}

	fmt.Printf("🧹 Cleaned %d stale probe entries\n", report.Cleaned)
	fmt.Printf("✅ Probed %d combinations in %v: %d present, %d missing\n",
		report.Combinations, report.Duration.Round(time.Millisecond), report.Existing, report.Missing)
	fmt.Println("\n🎉 Seeding completed!")
}

// SeedAll drops cached probe results and probes every combination of cat.
func (s *Seeder) SeedAll(ctx context.Context, cat *catalog.Catalog) (*SeedReport, error) {
	start := time.Now()
	report := &SeedReport{}

	if s.cleaner != nil {
		n, err := s.cleaner.DeletePattern(ctx, constants.PATTERN_INVALIDATE_PROBES)
		if err != nil {
			return nil, fmt.Errorf("clean probe cache: %w", err)
		}
		report.Cleaned = n
	}

	combos := fileid.Combinations(cat)
	report.Combinations = len(combos)

	var existing atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	if s.limit > 0 {
		g.SetLimit(s.limit)
	}
	for _, combo := range combos {
		url := s.locator.DataURL(combo.FileID)
		g.Go(func() error {
			if s.prober.ProbeExists(gctx, url) {
				existing.Add(1)
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Existing = int(existing.Load())
	report.Missing = report.Combinations - report.Existing
	report.Duration = time.Since(start)
	return report, nil
}
