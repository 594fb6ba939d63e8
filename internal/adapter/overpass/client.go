package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/pukaar-service/internal/domain"
	"github.com/couchcryptid/pukaar-service/internal/observability"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Overpass API interpreter endpoint.
const DefaultBaseURL = "https://overpass-api.de/api/interpreter"

const userAgent = "pukaar-service/1.0 (+https://github.com/couchcryptid/pukaar-service)"

// Client fetches nearby service elements from the Overpass API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	radiusM    int
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	RadiusM int
	// Rate is the sustained request rate in requests per second. The public
	// instance asks for light usage.
	Rate float64
	// Transport overrides the HTTP transport, e.g. with the offline cache layer.
	Transport http.RoundTripper
}

// NewClient creates an Overpass client.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Rate <= 0 {
		opts.Rate = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		baseURL: opts.BaseURL,
		radiusM: opts.RadiusM,
		limiter: rate.NewLimiter(rate.Limit(opts.Rate), 1),
		metrics: metrics,
		logger:  logger,
	}
}

// FetchNearby queries every service category around p. An empty slice with a
// nil error means Overpass answered but found nothing.
func (c *Client) FetchNearby(ctx context.Context, p domain.Point) ([]domain.RawElement, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("overpass rate limit: %w", err)
	}

	params := url.Values{"data": {BuildQuery(p, c.radiusM)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	elements, err := c.do(req)
	c.metrics.OverpassDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.OverpassRequests.WithLabelValues("error").Inc()
		return nil, err
	case len(elements) == 0:
		c.metrics.OverpassRequests.WithLabelValues("empty").Inc()
	default:
		c.metrics.OverpassRequests.WithLabelValues("success").Inc()
	}

	c.logger.Debug("overpass query completed", "lat", p.Lat, "lng", p.Lng, "elements", len(elements))
	return elements, nil
}

func (c *Client) do(req *http.Request) ([]domain.RawElement, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("overpass API error: status %d: %s", resp.StatusCode, body)
	}

	var overpassResp response
	if err := json.NewDecoder(resp.Body).Decode(&overpassResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	elements := make([]domain.RawElement, 0, len(overpassResp.Elements))
	for _, el := range overpassResp.Elements {
		elements = append(elements, el.toRaw())
	}
	return elements, nil
}

// Overpass API response types.

type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *latLon           `json:"center"`
	Bounds *domain.Bounds    `json:"bounds"`
	Tags   map[string]string `json:"tags"`
}

type latLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (e element) toRaw() domain.RawElement {
	raw := domain.RawElement{
		Kind:   e.Type,
		Lat:    e.Lat,
		Lon:    e.Lon,
		Bounds: e.Bounds,
		Tags:   e.Tags,
	}
	if e.ID != 0 {
		raw.ID = e.Type + "/" + strconv.FormatInt(e.ID, 10)
	}
	if e.Center != nil {
		raw.Center = &domain.Point{Lat: e.Center.Lat, Lng: e.Center.Lon}
	}
	return raw
}
