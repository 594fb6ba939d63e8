// Package discovery runs the fetch cycle that turns a location into a ranked
// list of nearby services: resolve the reference point, query the live
// source, fall back to the static dataset, normalize, annotate and rank.
package discovery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/pukaar-service/internal/domain"
	"github.com/couchcryptid/pukaar-service/internal/observability"
)

// ErrBusy is returned when a fetch is requested while one is in flight. The
// request is dropped, not queued.
var ErrBusy = errors.New("fetch in progress")

// Config holds the cycle settings shared by every session.
type Config struct {
	DefaultReference domain.Point
	LocationTimeout  time.Duration
	RatingMode       domain.RatingMode
}

// Finder holds the collaborators of the fetch cycle. Per-client state lives
// in a Session.
type Finder struct {
	cfg      Config
	geodata  GeodataSource
	fallback FallbackSource
	sinks    []Sink
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewFinder creates a Finder. Sinks receive each completed batch in order.
func NewFinder(cfg Config, geodata GeodataSource, fallback FallbackSource, metrics *observability.Metrics, logger *slog.Logger, sinks ...Sink) *Finder {
	if cfg.LocationTimeout <= 0 {
		cfg.LocationTimeout = 10 * time.Second
	}
	if cfg.RatingMode == "" {
		cfg.RatingMode = domain.RatingNone
	}
	return &Finder{
		cfg:      cfg,
		geodata:  geodata,
		fallback: fallback,
		sinks:    sinks,
		metrics:  metrics,
		logger:   logger,
	}
}

// resolveLocation asks the locator for the device position within the
// location timeout. Any failure yields the default reference point.
func (f *Finder) resolveLocation(ctx context.Context, loc Locator) (domain.Point, domain.ReferenceSource, Notice) {
	if loc == nil {
		loc = NoLocator
	}
	lctx, cancel := context.WithTimeout(ctx, f.cfg.LocationTimeout)
	defer cancel()

	p, err := loc.Locate(lctx)
	if err == nil && !validPoint(p) {
		err = ErrLocationUnavailable
	}
	if err == nil {
		return p, domain.ReferenceDevice, Notice{Level: LevelSuccess, Message: MsgLocationDetected}
	}

	err = classifyLocationError(err)
	f.metrics.LocationFallback.Inc()
	f.logger.Info("using default reference point", "reason", err)
	return f.cfg.DefaultReference, domain.ReferenceDefault, Notice{Level: LevelWarning, Message: MsgFallbackLocation}
}

// acquire queries the live source and applies the fallback chain. The
// returned records are normalized but not yet annotated.
func (f *Finder) acquire(ctx context.Context, ref domain.Point, setState func(State)) ([]domain.ServiceRecord, domain.DataSource, domain.Outcome) {
	setState(StateQueryingRemote)
	elements, err := f.geodata.FetchNearby(ctx, ref)

	outcome := domain.OutcomeRemoteOK
	switch {
	case err != nil:
		f.logger.Warn("overpass query failed, using fallback dataset", "error", err)
		outcome = domain.OutcomeRemoteError
	case len(elements) == 0:
		f.logger.Info("overpass returned no elements, using fallback dataset",
			"lat", ref.Lat, "lng", ref.Lng)
		outcome = domain.OutcomeRemoteEmpty
	}

	if outcome == domain.OutcomeRemoteOK {
		setState(StateNormalizing)
		return domain.NormalizeAll(elements), domain.SourceRemote, outcome
	}

	setState(StateFallingBack)
	elements, err = f.fallback.Load(ctx)
	if err != nil {
		f.logger.Error("fallback dataset failed", "error", err)
		return nil, domain.SourceNone, domain.OutcomeFallbackError
	}
	return domain.NormalizeAll(elements), domain.SourceFallback, outcome
}

// publish hands the batch to every sink. Sink failures are logged only.
func (f *Finder) publish(ctx context.Context, batch domain.Batch) {
	for _, s := range f.sinks {
		if err := s.PublishBatch(ctx, batch); err != nil {
			f.logger.Error("publish batch failed", "batch_id", batch.ID, "error", err)
		}
	}
}
