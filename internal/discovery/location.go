package discovery

import (
	"context"
	"errors"
	"math"

	"github.com/couchcryptid/pukaar-service/internal/domain"
)

// Location errors. Each one resolves to the default reference point.
var (
	ErrLocationDenied      = errors.New("location permission denied")
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrLocationTimeout     = errors.New("location request timed out")
	ErrLocationUnsupported = errors.New("location not supported")
)

// Locator resolves the device position.
type Locator interface {
	Locate(ctx context.Context) (domain.Point, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (domain.Point, error)

func (f LocatorFunc) Locate(ctx context.Context) (domain.Point, error) {
	return f(ctx)
}

// FixedLocator always reports p, e.g. coordinates supplied by a client.
func FixedLocator(p domain.Point) Locator {
	return LocatorFunc(func(context.Context) (domain.Point, error) { return p, nil })
}

// NoLocator reports that no position source exists.
var NoLocator Locator = LocatorFunc(func(context.Context) (domain.Point, error) {
	return domain.Point{}, ErrLocationUnsupported
})

// classifyLocationError maps a locator failure onto the location error set.
func classifyLocationError(err error) error {
	switch {
	case errors.Is(err, ErrLocationDenied),
		errors.Is(err, ErrLocationUnavailable),
		errors.Is(err, ErrLocationTimeout),
		errors.Is(err, ErrLocationUnsupported):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return ErrLocationTimeout
	default:
		return errors.Join(ErrLocationUnavailable, err)
	}
}

func validPoint(p domain.Point) bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
