package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/kessler/kesslergo/internal/api"
	"github.com/kessler/kesslergo/internal/auth"
	"github.com/kessler/kesslergo/internal/correction"
	"github.com/kessler/kesslergo/internal/fleet"
	"github.com/kessler/kesslergo/internal/metrics"
	"github.com/kessler/kesslergo/internal/propagation"
	"github.com/kessler/kesslergo/internal/tle"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: loadLogLevel(),
	}))

	addr := os.Getenv("KESSLER_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	store := tle.NewStore()
	fetcher := tle.NewFetcher(loadFetcherConfig(logger), logger)

	cacheDir := os.Getenv("KESSLER_TLE_CACHE_DIR")
	if cacheDir == "" {
		cacheDir = "/tmp/kesslergo/tle"
	}
	tleCache := tle.NewCache(cacheDir, 5)

	// Attempt to load cached element sets on startup.
	data, ts, err := tleCache.LoadLatest()
	if err != nil {
		logger.Info("no element-set cache found, starting empty", "error", err)
	} else {
		sets, err := tle.Parse(bytes.NewReader(data), logger)
		if err != nil {
			logger.Warn("failed to parse cached element sets", "error", err)
		} else if len(sets) > 0 {
			store.Set(&tle.Dataset{
				Source:     "cache",
				FetchedAt:  ts,
				EpochRange: tle.Range(sets),
				Sets:       sets,
			})
			metrics.SetTLEDatasetSize(len(sets))
			logger.Info("loaded element sets from cache", "count", len(sets), "cached_at", ts.Format(time.RFC3339))
		}
	}

	driver := propagation.NewDriver(logger)
	pool := propagation.NewPool(loadWorkers(logger), driver, logger)

	corrections, err := correction.NewProvider(os.Getenv("KESSLER_MODEL_CHECKPOINT"), logger)
	if err != nil {
		logger.Error("invalid correction checkpoint", "error", err)
		os.Exit(1)
	}

	var fleetCfg *fleet.Config
	if path := os.Getenv("KESSLER_FLEET_CONFIG"); path != "" {
		fleetCfg, err = fleet.Load(path)
		if err != nil {
			logger.Error("invalid fleet configuration", "error", err)
			os.Exit(1)
		}
		logger.Info("fleet loaded", "assets", len(fleetCfg.Assets))
	}

	srv := api.NewServer(api.Config{
		Addr:            addr,
		Auth:            authCfg,
		CORSAllowOrigin: os.Getenv("KESSLER_CORS_ORIGIN"),
		TrustProxy:      os.Getenv("KESSLER_TRUST_PROXY") == "true",
	}, api.Deps{
		Logger:      logger,
		Store:       store,
		Fetcher:     fetcher,
		Driver:      driver,
		Pool:        pool,
		Corrections: corrections,
		Fleet:       fleetCfg,
	})

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Fetch element sets for fleet assets not covered by the cache.
	if fleetCfg != nil && os.Getenv("KESSLER_ENABLE_TLE_FETCH") != "false" {
		go refreshFleetElementSets(ctx, logger, fetcher, store, tleCache, fleetCfg)
	}

	// Background goroutine to update the dataset age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				age := store.AgeSeconds()
				if age >= 0 {
					metrics.SetTLEDatasetAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server", "addr", addr, "auth_enabled", authCfg.Enabled, "correction_available", corrections.Available())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// refreshFleetElementSets fetches element sets for fleet assets missing
// from the store and persists the merged dataset to the disk cache.
func refreshFleetElementSets(ctx context.Context, logger *slog.Logger, fetcher *tle.Fetcher, store *tle.Store, cache *tle.Cache, fleetCfg *fleet.Config) {
	var fetched []tle.ElementSet
	for _, a := range fleetCfg.Assets {
		if _, ok := store.Lookup(a.NoradID); ok {
			continue
		}
		fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		set, err := fetcher.FetchByNorad(fetchCtx, a.NoradID)
		cancel()
		if err != nil {
			logger.Warn("failed to fetch element set for fleet asset", "name", a.Name, "norad_id", a.NoradID, "error", err)
			continue
		}
		set.Name = a.Name
		fetched = append(fetched, set)
	}
	if len(fetched) == 0 {
		return
	}

	store.Lock()
	defer store.Unlock()

	sets := fetched
	if ds := store.Get(); ds != nil {
		sets = append(append([]tle.ElementSet{}, ds.Sets...), fetched...)
	}
	store.Set(&tle.Dataset{
		Source:     "fetch",
		FetchedAt:  time.Now(),
		EpochRange: tle.Range(sets),
		Sets:       sets,
	})
	metrics.SetTLEDatasetSize(len(sets))
	logger.Info("fetched element sets for fleet", "fetched", len(fetched), "total", len(sets))

	var buf bytes.Buffer
	for _, s := range sets {
		buf.WriteString(s.Name + "\n" + s.Line1 + "\n" + s.Line2 + "\n")
	}
	if err := cache.Write(buf.Bytes(), time.Now()); err != nil {
		logger.Warn("failed to write element-set cache", "error", err)
	}
}

func loadLogLevel() slog.Level {
	switch strings.ToLower(os.Getenv("KESSLER_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("KESSLER_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("KESSLER_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("KESSLER_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("KESSLER_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadWorkers(logger *slog.Logger) int {
	workers := runtime.NumCPU()
	if v := os.Getenv("KESSLER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid KESSLER_WORKERS value, using default", "value", v, "default", workers)
		} else {
			workers = n
		}
	}
	return workers
}

func loadFetcherConfig(logger *slog.Logger) tle.FetcherConfig {
	cfg := tle.FetcherConfig{
		NASAAPIKey:    os.Getenv("KESSLER_NASA_API_KEY"),
		AllowFallback: true,
	}

	if v := os.Getenv("KESSLER_NASA_BASE_URL"); v != "" {
		cfg.NASABaseURL = v
	}
	if v := os.Getenv("KESSLER_CELESTRAK_URL"); v != "" {
		cfg.CelesTrakURL = v
	}
	if v := os.Getenv("KESSLER_TLE_FALLBACK"); v != "" {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid KESSLER_TLE_FALLBACK value, defaulting to true", "value", v)
		} else {
			cfg.AllowFallback = allow
		}
	}

	logger.Info("element-set source config",
		"nasa_base_url", cfg.NASABaseURL,
		"celestrak_url", cfg.CelesTrakURL,
		"fallback_enabled", cfg.AllowFallback,
	)

	return cfg
}
