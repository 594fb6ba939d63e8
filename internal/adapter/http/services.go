package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/pukaar-service/internal/discovery"
	"github.com/couchcryptid/pukaar-service/internal/domain"
	"github.com/couchcryptid/pukaar-service/internal/markers"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const (
	defaultNearest = 5
	maxNearest     = 100
)

// recordView is a ServiceRecord as rendered to clients: display-rounded
// distance, the number to dial, a directions link and the favorite flag.
type recordView struct {
	domain.ServiceRecord
	DistanceKm *float64 `json:"distance_km,omitempty"`
	CallNumber string   `json:"call_number"`
	MapURL     string   `json:"map_url"`
	Favorite   bool     `json:"favorite"`
}

type resultView struct {
	BatchID         string                 `json:"batch_id,omitempty"`
	State           discovery.State        `json:"state"`
	Records         []recordView           `json:"records"`
	Total           int                    `json:"total"`
	Reference       domain.Point           `json:"reference"`
	ReferenceSource domain.ReferenceSource `json:"reference_source,omitempty"`
	Source          domain.DataSource      `json:"source,omitempty"`
	Outcome         domain.Outcome         `json:"outcome,omitempty"`
	Notices         []discovery.Notice     `json:"notices"`
	Markers         int                    `json:"markers"`
	FetchedAt       *time.Time             `json:"fetched_at,omitempty"`
}

func (s *Server) handleFindNearby(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	locator, err := parseLocator(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := s.session(r)
	res, err := sess.FindNearby(r.Context(), discovery.Request{Locator: locator, Query: q})
	if errors.Is(err, discovery.ErrBusy) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("find nearby failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.render(r.Context(), sess, res))
}

func (s *Server) handleRerank(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess := s.session(r)
	sharedobs.WriteJSON(w, http.StatusOK, s.render(r.Context(), sess, sess.Rerank(q)))
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	layer := s.session(r).Markers()

	if bbox := r.URL.Query().Get("bbox"); bbox != "" {
		b, err := parseBBox(bbox)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		found, err := layer.SearchBox(b)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeMarkers(w, found)
		return
	}

	p, ok, err := parsePoint(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "bbox or lat and lng required")
		return
	}
	k := defaultNearest
	if v := r.URL.Query().Get("k"); v != "" {
		k, err = strconv.Atoi(v)
		if err != nil || k <= 0 || k > maxNearest {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("k must be between 1 and %d", maxNearest))
			return
		}
	}
	writeMarkers(w, layer.Nearest(p, k))
}

func writeMarkers(w http.ResponseWriter, found []markers.Marker) {
	if found == nil {
		found = []markers.Marker{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"markers": found})
}

// render decorates a result for the client. A favorites lookup failure only
// loses the favorite flags.
func (s *Server) render(ctx context.Context, sess *discovery.Session, res discovery.Result) resultView {
	saved := map[string]bool{}
	if s.deps.Favorites != nil {
		favs, err := s.deps.Favorites.List(ctx)
		if err != nil {
			s.logger.Warn("favorites lookup failed", "error", err)
		}
		for _, f := range favs {
			saved[f.IdentityKey] = true
		}
	}

	views := make([]recordView, len(res.Records))
	for i, rec := range res.Records {
		v := recordView{
			ServiceRecord: rec,
			CallNumber:    rec.CallNumber(),
			MapURL:        rec.MapURL(),
			Favorite:      saved[rec.IdentityKey],
		}
		if rec.DistanceKm != nil {
			d := domain.RoundKm(*rec.DistanceKm)
			v.DistanceKm = &d
		}
		views[i] = v
	}

	notices := res.Notices
	if notices == nil {
		notices = []discovery.Notice{}
	}
	out := resultView{
		BatchID:         res.BatchID,
		State:           sess.State(),
		Records:         views,
		Total:           res.Total,
		Reference:       res.Reference,
		ReferenceSource: res.ReferenceSource,
		Source:          res.Source,
		Outcome:         res.Outcome,
		Notices:         notices,
		Markers:         res.Markers,
	}
	if !res.FetchedAt.IsZero() {
		t := res.FetchedAt
		out.FetchedAt = &t
	}
	return out
}

func parseQuery(r *http.Request) (domain.Query, error) {
	v := r.URL.Query()
	category, err := domain.ParseCategory(v.Get("category"))
	if err != nil {
		return domain.Query{}, err
	}
	sort, err := domain.ParseSortMode(v.Get("sort"))
	if err != nil {
		return domain.Query{}, err
	}
	return domain.Query{Category: category, Text: v.Get("q"), Sort: sort}, nil
}

// parseLocator turns client-supplied coordinates into a Locator. Without
// coordinates the client has no position source.
func parseLocator(r *http.Request) (discovery.Locator, error) {
	p, ok, err := parsePoint(r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return discovery.NoLocator, nil
	}
	return discovery.FixedLocator(p), nil
}

func parsePoint(r *http.Request) (domain.Point, bool, error) {
	v := r.URL.Query()
	latStr, lngStr := v.Get("lat"), v.Get("lng")
	if latStr == "" && lngStr == "" {
		return domain.Point{}, false, nil
	}
	if latStr == "" || lngStr == "" {
		return domain.Point{}, false, errors.New("lat and lng must be given together")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return domain.Point{}, false, fmt.Errorf("invalid lat %q", latStr)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return domain.Point{}, false, fmt.Errorf("invalid lng %q", lngStr)
	}
	return domain.Point{Lat: lat, Lng: lng}, true, nil
}

// parseBBox reads "minLat,minLng,maxLat,maxLng".
func parseBBox(s string) (domain.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.Bounds{}, errors.New("bbox must be minLat,minLng,maxLat,maxLng")
	}
	var vals [4]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return domain.Bounds{}, fmt.Errorf("invalid bbox value %q", part)
		}
		vals[i] = v
	}
	return domain.Bounds{MinLat: vals[0], MinLon: vals[1], MaxLat: vals[2], MaxLon: vals[3]}, nil
}
