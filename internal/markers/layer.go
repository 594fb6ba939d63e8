// Package markers keeps the map-marker layer for the current batch in an
// R-tree so the map can ask for what is inside the viewport or closest to a
// point.
package markers

import (
	"fmt"
	"slices"
	"sync"

	"github.com/couchcryptid/pukaar-service/internal/domain"
	"github.com/dhconnelly/rtreego"
)

const (
	dimensions  = 2
	minChildren = 25
	maxChildren = 50
	// tolerance is the side of the degenerate rectangle around a point, in degrees.
	tolerance = 1e-6
)

// Colour is the pin colour of a marker on the map.
type Colour string

const (
	ColourRed    Colour = "red"
	ColourGreen  Colour = "green"
	ColourPurple Colour = "purple"
	ColourOrange Colour = "orange"
	ColourBlue   Colour = "blue"
)

// ColourFor returns the pin colour for a category.
func ColourFor(c domain.Category) Colour {
	switch c {
	case domain.CategoryHospital:
		return ColourRed
	case domain.CategoryClinic:
		return ColourGreen
	case domain.CategoryPharmacy:
		return ColourPurple
	case domain.CategoryFoodbank:
		return ColourOrange
	default:
		return ColourBlue
	}
}

// Marker is one pin on the map.
type Marker struct {
	IdentityKey string          `json:"identity_key"`
	Name        string          `json:"name"`
	Category    domain.Category `json:"category"`
	Colour      Colour          `json:"colour"`
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
	Phone       string          `json:"phone"`
	MapURL      string          `json:"map_url"`
}

func newMarker(r domain.ServiceRecord) *Marker {
	return &Marker{
		IdentityKey: r.IdentityKey,
		Name:        r.Name,
		Category:    r.Category,
		Colour:      ColourFor(r.Category),
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Phone:       r.CallNumber(),
		MapURL:      r.MapURL(),
	}
}

type spatialMarker struct {
	*Marker
	rect *rtreego.Rect
}

func (s *spatialMarker) Bounds() *rtreego.Rect {
	return s.rect
}

// Layer is a thread-safe marker index. Replace swaps the whole layer, so the
// map never shows pins from two different batches.
type Layer struct {
	mu    sync.RWMutex
	tree  *rtreego.Rtree
	count int
}

// NewLayer creates an empty layer.
func NewLayer() *Layer {
	return &Layer{tree: rtreego.NewTree(dimensions, minChildren, maxChildren)}
}

// Replace clears the layer and adds one marker per mappable record. Records
// with zero coordinates are skipped. It returns the number of markers placed.
func (l *Layer) Replace(records []domain.ServiceRecord) int {
	tree := rtreego.NewTree(dimensions, minChildren, maxChildren)
	n := 0
	for _, r := range records {
		if !r.Mappable() {
			continue
		}
		tree.Insert(&spatialMarker{
			Marker: newMarker(r),
			rect:   rtreego.Point{r.Latitude, r.Longitude}.ToRect(tolerance),
		})
		n++
	}

	l.mu.Lock()
	l.tree = tree
	l.count = n
	l.mu.Unlock()
	return n
}

// Len returns the number of markers in the layer.
func (l *Layer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// SearchBox returns the markers inside the bounding box, ordered by identity
// key so repeated calls are stable.
func (l *Layer) SearchBox(b domain.Bounds) ([]Marker, error) {
	if b.MaxLat < b.MinLat || b.MaxLon < b.MinLon {
		return nil, fmt.Errorf("invalid bounding box %v", b)
	}
	// rtreego rejects zero-length sides.
	rect, err := rtreego.NewRect(
		rtreego.Point{b.MinLat, b.MinLon},
		[]float64{max(b.MaxLat-b.MinLat, tolerance), max(b.MaxLon-b.MinLon, tolerance)},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid bounding box: %w", err)
	}

	l.mu.RLock()
	results := l.tree.SearchIntersect(rect)
	l.mu.RUnlock()

	out := make([]Marker, 0, len(results))
	for _, res := range results {
		m, ok := res.(*spatialMarker)
		if !ok {
			continue
		}
		if m.Latitude >= b.MinLat && m.Latitude <= b.MaxLat &&
			m.Longitude >= b.MinLon && m.Longitude <= b.MaxLon {
			out = append(out, *m.Marker)
		}
	}
	slices.SortFunc(out, func(a, b Marker) int {
		switch {
		case a.IdentityKey < b.IdentityKey:
			return -1
		case a.IdentityKey > b.IdentityKey:
			return 1
		default:
			return 0
		}
	})
	return out, nil
}

// Nearest returns up to n markers closest to p by great-circle distance.
func (l *Layer) Nearest(p domain.Point, n int) []Marker {
	if n <= 0 {
		return nil
	}

	l.mu.RLock()
	if l.count == 0 {
		l.mu.RUnlock()
		return nil
	}
	// Over-fetch: the tree ranks by planar degrees, which drifts from
	// great-circle order away from the equator.
	results := l.tree.NearestNeighbors(min(n*2, l.count), rtreego.Point{p.Lat, p.Lng})
	l.mu.RUnlock()

	out := make([]Marker, 0, len(results))
	for _, res := range results {
		m, ok := res.(*spatialMarker)
		if !ok || m == nil {
			continue
		}
		out = append(out, *m.Marker)
	}
	slices.SortStableFunc(out, func(a, b Marker) int {
		da := domain.DistanceKm(p.Lat, p.Lng, a.Latitude, a.Longitude)
		db := domain.DistanceKm(p.Lat, p.Lng, b.Latitude, b.Longitude)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		default:
			return 0
		}
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
