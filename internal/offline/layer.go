// Package offline is the request-intercepting cache that keeps the app usable
// without a network. It serves volatile data network-first, static assets
// cache-first, and falls back to an offline page for failed navigations.
//
// The layer is an http.RoundTripper, so any outbound client (the Overpass
// client, the fallback loader) can be routed through it, and Handler exposes
// it as a caching proxy for the web shell.
package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/couchcryptid/pukaar-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// CachePrefix prefixes every cache generation name.
const CachePrefix = "pukaar-cache-"

// installConcurrency bounds parallel asset fetches during Install.
const installConcurrency = 4

// maxBodyBytes caps a single cached response body. Larger responses are
// passed through uncached.
const maxBodyBytes = 10 << 20

// Config describes one cache generation.
type Config struct {
	Version string
	// Manifest lists absolute URLs precached by Install.
	Manifest []string
	// OfflinePage is the absolute URL served when a navigation cannot be satisfied.
	OfflinePage string
	// NetworkFirstHosts are hostnames routed network-first, subdomains included.
	NetworkFirstHosts []string
	// NetworkFirstPaths are path suffixes routed network-first.
	NetworkFirstPaths []string
	// StrictInstall aborts Install on the first failed asset and discards the
	// generation. The default is best-effort.
	StrictInstall bool
}

// Layer is the offline cache layer.
type Layer struct {
	cfg     Config
	store   Store
	next    http.RoundTripper
	clock   clockwork.Clock
	maxBody int64
	metrics *observability.Metrics
	logger  *slog.Logger
	ready   atomic.Bool
}

// NewLayer creates a layer over store. next performs real network requests;
// nil means http.DefaultTransport.
func NewLayer(cfg Config, store Store, next http.RoundTripper, metrics *observability.Metrics, logger *slog.Logger) *Layer {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Layer{
		cfg:     cfg,
		store:   store,
		next:    next,
		clock:   clockwork.NewRealClock(),
		maxBody: maxBodyBytes,
		metrics: metrics,
		logger:  logger,
	}
}

// CacheName is the name of the current generation.
func (l *Layer) CacheName() string {
	return CachePrefix + l.cfg.Version
}

// Ready reports whether Install and Activate have both completed.
func (l *Layer) Ready() bool {
	return l.ready.Load()
}

// Start runs Install then Activate and marks the layer ready.
func (l *Layer) Start(ctx context.Context) error {
	if err := l.Install(ctx); err != nil {
		return err
	}
	if err := l.Activate(ctx); err != nil {
		return err
	}
	l.ready.Store(true)
	return nil
}

// Install precaches the manifest into the current generation. In best-effort
// mode failed or non-OK assets are logged and skipped. In strict mode the
// first failure aborts the install and the partial generation is deleted.
func (l *Layer) Install(ctx context.Context) error {
	manifest := l.manifest()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(installConcurrency)

	var cached atomic.Int64
	for _, u := range manifest {
		g.Go(func() error {
			err := l.precache(gctx, u)
			if err == nil {
				cached.Add(1)
				l.metrics.InstallAssets.WithLabelValues("cached").Inc()
				return nil
			}
			l.metrics.InstallAssets.WithLabelValues("skipped").Inc()
			if l.cfg.StrictInstall {
				return fmt.Errorf("precache %s: %w", u, err)
			}
			l.logger.Warn("skipped asset during install", "url", u, "error", err)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if delErr := l.store.Delete(context.WithoutCancel(ctx), l.CacheName()); delErr != nil {
			l.logger.Error("discard partial cache", "cache", l.CacheName(), "error", delErr)
		}
		return fmt.Errorf("install %s: %w", l.CacheName(), err)
	}

	l.logger.Info("offline cache installed", "cache", l.CacheName(), "cached", cached.Load(), "assets", len(manifest))
	return nil
}

// manifest returns the configured assets plus the offline page, deduplicated.
func (l *Layer) manifest() []string {
	seen := make(map[string]struct{}, len(l.cfg.Manifest)+1)
	out := make([]string, 0, len(l.cfg.Manifest)+1)
	for _, u := range append(slices.Clone(l.cfg.Manifest), l.cfg.OfflinePage) {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func (l *Layer) precache(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := l.next.RoundTrip(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !isOK(resp.StatusCode) {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	body, fits, err := l.readBody(resp.Body)
	if err != nil {
		return err
	}
	if !fits {
		return fmt.Errorf("body exceeds %d bytes", l.maxBody)
	}
	return l.store.Put(ctx, l.CacheName(), cacheKey(req), l.newEntry(resp, body))
}

// Activate deletes every cache generation except the current one.
func (l *Layer) Activate(ctx context.Context) error {
	names, err := l.store.Names(ctx)
	if err != nil {
		return fmt.Errorf("list caches: %w", err)
	}

	current := l.CacheName()
	var errs []error
	for _, name := range names {
		if name == current {
			continue
		}
		if err := l.store.Delete(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", name, err))
			continue
		}
		l.logger.Info("deleted stale cache", "cache", name)
	}
	return errors.Join(errs...)
}

// readBody buffers up to maxBody bytes of r. fits is false when r holds
// more; the buffered prefix is returned either way and the rest stays unread.
func (l *Layer) readBody(r io.Reader) (body []byte, fits bool, err error) {
	body, err = io.ReadAll(io.LimitReader(r, l.maxBody+1))
	if err != nil {
		return nil, false, fmt.Errorf("read body: %w", err)
	}
	return body, int64(len(body)) <= l.maxBody, nil
}

func (l *Layer) newEntry(resp *http.Response, body []byte) Entry {
	header := resp.Header.Clone()
	header.Del("Set-Cookie")
	return Entry{
		Status:   resp.StatusCode,
		Header:   header,
		Body:     body,
		StoredAt: l.clock.Now().UTC(),
	}
}

func isOK(status int) bool {
	return status >= 200 && status < 300
}

// cacheKey is the request URL without its fragment.
func cacheKey(req *http.Request) string {
	u := *req.URL
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

func isNavigation(req *http.Request) bool {
	if req.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}
