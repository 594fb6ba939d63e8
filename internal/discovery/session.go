package discovery

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/pukaar-service/internal/domain"
	"github.com/couchcryptid/pukaar-service/internal/markers"
	"github.com/google/uuid"
)

// Request starts a fetch cycle.
type Request struct {
	// Locator resolves the device position; nil means unsupported.
	Locator Locator
	Query   domain.Query
}

// Result is what a cycle or a rerank hands to the UI.
type Result struct {
	BatchID         string                 `json:"batch_id"`
	Records         []domain.ServiceRecord `json:"records"`
	Total           int                    `json:"total"`
	Reference       domain.Point           `json:"reference"`
	ReferenceSource domain.ReferenceSource `json:"reference_source"`
	Source          domain.DataSource      `json:"source"`
	Outcome         domain.Outcome         `json:"outcome"`
	Notices         []Notice               `json:"notices"`
	Markers         int                    `json:"markers"`
	FetchedAt       time.Time              `json:"fetched_at"`
}

// Session is one client's discovery state: the busy guard, the last batch
// and the map markers. Handlers may call it concurrently.
type Session struct {
	finder  *Finder
	busy    atomic.Bool
	state   atomic.Int32
	markers *markers.Layer

	mu   sync.RWMutex
	last domain.Batch // annotated and rating-filled, unfiltered
}

// NewSession creates an idle session.
func (f *Finder) NewSession() *Session {
	return &Session{finder: f, markers: markers.NewLayer()}
}

// State reports the stage of the current or last cycle.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Busy reports whether a cycle is in flight.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Markers returns the session's map-marker layer.
func (s *Session) Markers() *markers.Layer {
	return s.markers
}

// FindNearby runs one fetch cycle. When a cycle is already running it
// returns ErrBusy without doing anything. Data failures never surface as
// errors: they become the Outcome and Notices of the result.
func (s *Session) FindNearby(ctx context.Context, req Request) (Result, error) {
	f := s.finder
	if !s.busy.CompareAndSwap(false, true) {
		f.metrics.FetchBusy.Inc()
		return Result{}, ErrBusy
	}
	defer s.busy.Store(false)

	start := time.Now()

	s.setState(StateResolvingLocation)
	ref, refSource, locNotice := f.resolveLocation(ctx, req.Locator)
	notices := []Notice{locNotice}

	records, source, outcome := f.acquire(ctx, ref, s.setState)
	if outcome == domain.OutcomeFallbackError {
		notices = append(notices, Notice{Level: LevelError, Message: MsgNoData})
	}

	s.setState(StateRanking)
	domain.AnnotateDistances(records, ref)
	domain.FillRatings(records, f.cfg.RatingMode)

	batch := domain.Batch{
		ID:              uuid.NewString(),
		Reference:       ref,
		ReferenceSource: refSource,
		Source:          source,
		Outcome:         outcome,
		Records:         records,
		FetchedAt:       domain.Now().UTC(),
	}
	s.mu.Lock()
	s.last = batch
	s.mu.Unlock()

	ranked := domain.Rank(records, req.Query)
	placed := s.markers.Replace(ranked)

	published := batch
	published.Records = domain.Rank(records, domain.Query{Sort: req.Query.Sort})
	f.publish(ctx, published)

	s.setState(StateDone)
	f.metrics.FetchCycles.WithLabelValues(string(outcome)).Inc()
	f.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	f.metrics.BatchRecords.Observe(float64(len(records)))
	f.logger.Info("fetch cycle completed",
		"batch_id", batch.ID,
		"outcome", outcome,
		"source", source,
		"reference_source", refSource,
		"records", len(records),
		"duration", time.Since(start),
	)

	return Result{
		BatchID:         batch.ID,
		Records:         ranked,
		Total:           len(records),
		Reference:       ref,
		ReferenceSource: refSource,
		Source:          source,
		Outcome:         outcome,
		Notices:         notices,
		Markers:         placed,
		FetchedAt:       batch.FetchedAt,
	}, nil
}

// Rerank filters and sorts the last batch without refetching and refreshes
// the markers to match. Before the first cycle it returns an empty result.
func (s *Session) Rerank(q domain.Query) Result {
	s.mu.RLock()
	batch := s.last
	s.mu.RUnlock()

	ranked := domain.Rank(batch.Records, q)
	placed := s.markers.Replace(ranked)
	return Result{
		BatchID:         batch.ID,
		Records:         ranked,
		Total:           len(batch.Records),
		Reference:       batch.Reference,
		ReferenceSource: batch.ReferenceSource,
		Source:          batch.Source,
		Outcome:         batch.Outcome,
		Notices:         []Notice{},
		Markers:         placed,
		FetchedAt:       batch.FetchedAt,
	}
}

// Last returns a copy of the last batch and whether one exists.
func (s *Session) Last() (domain.Batch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := s.last
	b.Records = append([]domain.ServiceRecord(nil), s.last.Records...)
	return b, s.last.ID != ""
}
