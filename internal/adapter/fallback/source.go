// Package fallback loads the bundled static dataset used when the live
// geodata source fails or returns nothing.
package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/couchcryptid/pukaar-service/internal/domain"
)

// Source reads the static dataset from a file path or an http(s) URL.
type Source struct {
	location   string
	httpClient *http.Client
}

// NewSource creates a source for location. When location is a URL it is
// fetched with client, which is typically routed through the offline cache
// layer so a previously fetched copy survives network loss.
func NewSource(location string, client *http.Client) *Source {
	if client == nil {
		client = http.DefaultClient
	}
	return &Source{location: location, httpClient: client}
}

func (s *Source) isRemote() bool {
	return strings.HasPrefix(s.location, "http://") || strings.HasPrefix(s.location, "https://")
}

// Load returns every dataset item as a raw element.
func (s *Source) Load(ctx context.Context) ([]domain.RawElement, error) {
	var (
		data []byte
		err  error
	)
	if s.isRemote() {
		data, err = s.fetch(ctx)
	} else {
		data, err = os.ReadFile(s.location)
	}
	if err != nil {
		return nil, fmt.Errorf("load fallback dataset %s: %w", s.location, err)
	}
	return Parse(data)
}

func (s *Source) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.location, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// item is one dataset entry. The id may be a number or a string.
type item struct {
	ID       flexibleID `json:"id"`
	Name     string     `json:"name"`
	Type     string     `json:"type"`
	Category string     `json:"category,omitempty"`
	Address  string     `json:"address,omitempty"`
	Phone    string     `json:"phone,omitempty"`
	Lat      *float64   `json:"lat"`
	Lng      *float64   `json:"lng"`
	Rating   *float64   `json:"rating,omitempty"`
}

type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a number or string: %w", err)
	}
	*f = flexibleID(n.String())
	return nil
}

// Parse decodes a dataset document (a JSON array of items).
func Parse(data []byte) ([]domain.RawElement, error) {
	var items []item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode fallback dataset: %w", err)
	}
	out := make([]domain.RawElement, 0, len(items))
	for _, it := range items {
		out = append(out, it.toRaw())
	}
	return out, nil
}

func (it item) toRaw() domain.RawElement {
	kind := it.Type
	if kind == "" {
		kind = it.Category
	}
	tags := map[string]string{}
	setTag(tags, "name", it.Name)
	setTag(tags, "type", kind)
	setTag(tags, "addr:full", it.Address)
	setTag(tags, "phone", it.Phone)
	return domain.RawElement{
		ID:     string(it.ID),
		Kind:   "static",
		Lat:    it.Lat,
		Lon:    it.Lng,
		Tags:   tags,
		Rating: it.Rating,
	}
}

func setTag(tags map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		tags[key] = v
	}
}

// Encode renders records in the dataset format, e.g. to refresh the bundled
// dataset from a live fetch. Placeholder ratings are not written.
func Encode(records []domain.ServiceRecord) ([]byte, error) {
	items := make([]item, 0, len(records))
	for _, r := range records {
		lat, lng := r.Latitude, r.Longitude
		it := item{
			ID:      flexibleID(r.ID),
			Name:    r.Name,
			Type:    string(r.Category),
			Address: r.Address,
			Phone:   r.Phone,
			Lat:     &lat,
			Lng:     &lng,
		}
		if r.Rating != nil && !r.RatingPlaceholder {
			v := *r.Rating
			it.Rating = &v
		}
		items = append(items, it)
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode fallback dataset: %w", err)
	}
	return append(data, '\n'), nil
}
