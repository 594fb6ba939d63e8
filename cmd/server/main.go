package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/couchcryptid/pukaar-service/internal/adapter/fallback"
	httpadapter "github.com/couchcryptid/pukaar-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/pukaar-service/internal/adapter/kafka"
	"github.com/couchcryptid/pukaar-service/internal/adapter/overpass"
	"github.com/couchcryptid/pukaar-service/internal/adapter/sqlite"
	"github.com/couchcryptid/pukaar-service/internal/config"
	"github.com/couchcryptid/pukaar-service/internal/discovery"
	"github.com/couchcryptid/pukaar-service/internal/observability"
	"github.com/couchcryptid/pukaar-service/internal/offline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(cfg.FavoritesDB)
	if err != nil {
		logger.Error("failed to open favorites store", "error", err)
		os.Exit(1)
	}
	defer store.Close() //nolint:errcheck
	if err := store.Migrate(ctx); err != nil {
		logger.Error("failed to migrate favorites store", "error", err)
		os.Exit(1)
	}

	// Offline cache layer; all outbound traffic goes through it.
	cacheStore, err := newCacheStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to create offline cache store", "error", err)
		os.Exit(1)
	}
	origin, layerCfg, err := offlineConfig(cfg)
	if err != nil {
		logger.Error("invalid offline cache config", "error", err)
		os.Exit(1)
	}
	layer := offline.NewLayer(layerCfg, cacheStore, http.DefaultTransport, metrics, logger)

	geodata := overpass.NewClient(overpass.Options{
		BaseURL:   cfg.OverpassURL,
		Timeout:   cfg.OverpassTimeout,
		RadiusM:   cfg.SearchRadiusM,
		Rate:      cfg.OverpassRate,
		Transport: layer,
	}, metrics, logger)
	dataset := fallback.NewSource(cfg.FallbackPath, &http.Client{Timeout: cfg.OverpassTimeout, Transport: layer})

	var sinks []discovery.Sink
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		sinks = append(sinks, publisher)
		logger.Info("discovery batch publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	finder := discovery.NewFinder(discovery.Config{
		DefaultReference: cfg.DefaultReference,
		LocationTimeout:  cfg.LocationTimeout,
		RatingMode:       cfg.RatingMode,
	}, geodata, dataset, metrics, logger, sinks...)

	deps := httpadapter.Dependencies{
		Sessions:     discovery.NewRegistry(finder, discovery.DefaultMaxSessions),
		Favorites:    store,
		Ready:        readiness{store: store, layer: layer},
		Metrics:      metrics,
		CORSOrigins:  cfg.CORSOrigins,
		WriteTimeout: writeTimeout(cfg),
	}
	if origin != nil {
		deps.Shell = layer.Handler(origin)
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, deps, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Populate the offline cache.
	go func() {
		if err := layer.Start(ctx); err != nil {
			logger.Error("offline cache install failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func newCacheStore(ctx context.Context, cfg *config.Config) (offline.Store, error) {
	if cfg.OfflineS3Endpoint == "" {
		return offline.NewMemoryStore(cfg.OfflineCacheEntries), nil
	}
	return offline.NewS3Store(ctx, offline.S3Options{
		Endpoint:  cfg.OfflineS3Endpoint,
		AccessKey: cfg.OfflineS3AccessKey,
		SecretKey: cfg.OfflineS3SecretKey,
		Bucket:    cfg.OfflineS3Bucket,
		UseSSL:    cfg.OfflineS3UseSSL,
	})
}

// offlineConfig builds the layer configuration. Without an origin there is
// no shell to precache, and the layer only wraps outbound traffic.
func offlineConfig(cfg *config.Config) (*url.URL, offline.Config, error) {
	m := offline.DefaultManifest()
	if cfg.OfflineManifest != "" {
		var err error
		if m, err = offline.LoadManifest(cfg.OfflineManifest); err != nil {
			return nil, offline.Config{}, err
		}
	}

	var (
		origin   *url.URL
		layerCfg offline.Config
	)
	if cfg.OfflineOrigin == "" {
		layerCfg = offline.Config{
			Version:           cfg.OfflineVersion,
			NetworkFirstHosts: m.NetworkFirst.Hosts,
			NetworkFirstPaths: m.NetworkFirst.Paths,
			StrictInstall:     cfg.OfflineStrictInstall,
		}
	} else {
		var err error
		origin, err = url.Parse(cfg.OfflineOrigin)
		if err != nil || origin.Scheme == "" || origin.Host == "" {
			return nil, offline.Config{}, fmt.Errorf("invalid OFFLINE_ORIGIN %q", cfg.OfflineOrigin)
		}
		if !strings.HasSuffix(origin.Path, "/") {
			origin.Path += "/"
		}
		if layerCfg, err = m.Config(origin, cfg.OfflineVersion, cfg.OfflineStrictInstall); err != nil {
			return nil, offline.Config{}, err
		}
	}

	if err := addNetworkFirstRoutes(cfg, &layerCfg); err != nil {
		return nil, offline.Config{}, err
	}
	return origin, layerCfg, nil
}

// addNetworkFirstRoutes routes the configured geodata host and a remote
// fallback dataset network-first, whatever the manifest lists.
func addNetworkFirstRoutes(cfg *config.Config, layerCfg *offline.Config) error {
	u, err := url.Parse(cfg.OverpassURL)
	if err != nil || u.Hostname() == "" {
		return fmt.Errorf("invalid OVERPASS_URL %q", cfg.OverpassURL)
	}
	layerCfg.NetworkFirstHosts = appendMissing(layerCfg.NetworkFirstHosts, strings.ToLower(u.Hostname()))

	if strings.HasPrefix(cfg.FallbackPath, "http://") || strings.HasPrefix(cfg.FallbackPath, "https://") {
		f, err := url.Parse(cfg.FallbackPath)
		if err != nil || f.Path == "" || f.Path == "/" {
			return fmt.Errorf("invalid FALLBACK_PATH %q", cfg.FallbackPath)
		}
		layerCfg.NetworkFirstPaths = appendMissing(layerCfg.NetworkFirstPaths, f.Path)
	}
	return nil
}

func appendMissing(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(slices.Clone(list), v)
}

// writeTimeout covers the worst fetch cycle: the location timeout, a failed
// Overpass query and a remote fallback load on the same client timeout, plus
// slack for ranking and encoding.
func writeTimeout(cfg *config.Config) time.Duration {
	return cfg.LocationTimeout + 2*cfg.OverpassTimeout + 10*time.Second
}

// readiness reports ready once the store answers and the offline cache has
// been installed and activated.
type readiness struct {
	store *sqlite.Store
	layer *offline.Layer
}

func (r readiness) CheckReadiness(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("favorites store: %w", err)
	}
	if !r.layer.Ready() {
		return errors.New("offline cache not installed")
	}
	return nil
}
