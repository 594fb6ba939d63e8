package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/pukaar-service/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	// Discovery configuration.
	OverpassURL      string
	OverpassTimeout  time.Duration
	OverpassRate     float64
	SearchRadiusM    int
	LocationTimeout  time.Duration
	DefaultReference domain.Point
	FallbackPath     string
	RatingMode       domain.RatingMode

	// Favorites and preferences store.
	FavoritesDB string

	// Offline cache layer configuration.
	OfflineVersion       string
	OfflineManifest      string
	OfflineOrigin        string
	OfflineStrictInstall bool
	OfflineCacheEntries  int

	// Optional S3-compatible backing store for the offline cache.
	OfflineS3Endpoint  string
	OfflineS3AccessKey string
	OfflineS3SecretKey string
	OfflineS3Bucket    string
	OfflineS3UseSSL    bool

	// Discovery batch publishing; disabled when no brokers are set.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	overpassTimeout, err := parseDuration("OVERPASS_TIMEOUT", "35s")
	if err != nil {
		return nil, err
	}
	locationTimeout, err := parseDuration("LOCATION_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	overpassRate, err := parsePositiveFloat("OVERPASS_RATE", 1)
	if err != nil {
		return nil, err
	}
	radius, err := parsePositiveInt("SEARCH_RADIUS_M", 7000)
	if err != nil {
		return nil, err
	}
	cacheEntries, err := parsePositiveInt("OFFLINE_CACHE_ENTRIES", 500)
	if err != nil {
		return nil, err
	}
	defaultRef, err := parseReference()
	if err != nil {
		return nil, err
	}
	ratingMode, err := domain.ParseRatingMode(sharedcfg.EnvOrDefault("RATING_MODE", string(domain.RatingNone)))
	if err != nil {
		return nil, fmt.Errorf("invalid RATING_MODE: %w", err)
	}

	var brokers []string
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		CORSOrigins:     splitList(sharedcfg.EnvOrDefault("CORS_ORIGINS", "*")),

		OverpassURL:      sharedcfg.EnvOrDefault("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		OverpassTimeout:  overpassTimeout,
		OverpassRate:     overpassRate,
		SearchRadiusM:    radius,
		LocationTimeout:  locationTimeout,
		DefaultReference: defaultRef,
		FallbackPath:     sharedcfg.EnvOrDefault("FALLBACK_PATH", "json/data.json"),
		RatingMode:       ratingMode,

		FavoritesDB: sharedcfg.EnvOrDefault("FAVORITES_DB", "pukaar.db"),

		OfflineVersion:       sharedcfg.EnvOrDefault("OFFLINE_VERSION", "v3"),
		OfflineManifest:      os.Getenv("OFFLINE_MANIFEST"),
		OfflineOrigin:        os.Getenv("OFFLINE_ORIGIN"),
		OfflineStrictInstall: os.Getenv("OFFLINE_STRICT_INSTALL") == "true",
		OfflineCacheEntries:  cacheEntries,

		OfflineS3Endpoint:  os.Getenv("OFFLINE_S3_ENDPOINT"),
		OfflineS3AccessKey: os.Getenv("OFFLINE_S3_ACCESS_KEY"),
		OfflineS3SecretKey: os.Getenv("OFFLINE_S3_SECRET_KEY"),
		OfflineS3Bucket:    sharedcfg.EnvOrDefault("OFFLINE_S3_BUCKET", "pukaar-offline"),
		OfflineS3UseSSL:    os.Getenv("OFFLINE_S3_USE_SSL") == "true",

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "service-discoveries"),
		KafkaEnabled: len(brokers) > 0,
	}

	if cfg.OverpassURL == "" {
		return nil, errors.New("OVERPASS_URL is required")
	}
	if cfg.FallbackPath == "" {
		return nil, errors.New("FALLBACK_PATH is required")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.OfflineS3Endpoint != "" && (cfg.OfflineS3AccessKey == "" || cfg.OfflineS3SecretKey == "") {
		return nil, errors.New("OFFLINE_S3_ENDPOINT requires OFFLINE_S3_ACCESS_KEY and OFFLINE_S3_SECRET_KEY")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive number", key)
	}
	return v, nil
}

func parseReference() (domain.Point, error) {
	p := domain.DefaultReference
	if s := os.Getenv("DEFAULT_LAT"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < -90 || v > 90 {
			return domain.Point{}, errors.New("invalid DEFAULT_LAT")
		}
		p.Lat = v
	}
	if s := os.Getenv("DEFAULT_LNG"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < -180 || v > 180 {
			return domain.Point{}, errors.New("invalid DEFAULT_LNG")
		}
		p.Lng = v
	}
	return p, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
