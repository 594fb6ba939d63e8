package offline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// ErrOffline is returned when neither the network nor the cache can answer.
var ErrOffline = errors.New("offline: no network response and no cached copy")

const (
	strategyNetworkFirst = "network_first"
	strategyCacheFirst   = "cache_first"
)

// RoundTrip routes a request through the layer. Non-GET requests go straight
// to the network and are never cached.
func (l *Layer) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return l.next.RoundTrip(req)
	}
	switch {
	case l.isVolatile(req):
		return l.networkFirst(req, false)
	case isNavigation(req):
		return l.networkFirst(req, true)
	default:
		return l.cacheFirst(req)
	}
}

func (l *Layer) isVolatile(req *http.Request) bool {
	host := strings.ToLower(req.URL.Hostname())
	for _, h := range l.cfg.NetworkFirstHosts {
		if matchHost(host, strings.ToLower(h)) {
			return true
		}
	}
	for _, p := range l.cfg.NetworkFirstPaths {
		if p != "" && strings.HasSuffix(req.URL.Path, p) {
			return true
		}
	}
	return false
}

// matchHost reports whether host is want or one of its subdomains.
func matchHost(host, want string) bool {
	if want == "" {
		return false
	}
	return host == want || strings.HasSuffix(host, "."+want)
}

// networkFirst tries the network and stores OK responses. Only when the
// network fails is the cached copy served, or the offline page for navigations.
func (l *Layer) networkFirst(req *http.Request, navigation bool) (*http.Response, error) {
	resp, netErr := l.fetchAndStore(req)
	if netErr == nil {
		l.metrics.CacheLookups.WithLabelValues(strategyNetworkFirst, "network").Inc()
		return resp, nil
	}

	if cached, ok := l.lookup(req, cacheKey(req)); ok {
		l.metrics.CacheLookups.WithLabelValues(strategyNetworkFirst, "hit").Inc()
		return cached, nil
	}
	if navigation {
		if page, ok := l.offlinePage(req); ok {
			l.metrics.CacheLookups.WithLabelValues(strategyNetworkFirst, "offline_page").Inc()
			return page, nil
		}
	}

	l.metrics.CacheLookups.WithLabelValues(strategyNetworkFirst, "miss").Inc()
	l.logger.Warn("network-first failed", "url", req.URL.String(), "error", netErr)
	return nil, fmt.Errorf("%w: %w", ErrOffline, netErr)
}

// cacheFirst serves the cached copy when present, otherwise fetches and
// stores. Navigations never land here, so a miss has no offline page.
func (l *Layer) cacheFirst(req *http.Request) (*http.Response, error) {
	if cached, ok := l.lookup(req, cacheKey(req)); ok {
		l.metrics.CacheLookups.WithLabelValues(strategyCacheFirst, "hit").Inc()
		return cached, nil
	}

	resp, netErr := l.fetchAndStore(req)
	if netErr == nil {
		l.metrics.CacheLookups.WithLabelValues(strategyCacheFirst, "network").Inc()
		return resp, nil
	}

	l.metrics.CacheLookups.WithLabelValues(strategyCacheFirst, "miss").Inc()
	l.logger.Warn("cache-first failed", "url", req.URL.String(), "error", netErr)
	return nil, fmt.Errorf("%w: %w", ErrOffline, netErr)
}

// fetchAndStore performs the network request. OK responses are buffered,
// stored and replayed to the caller. Other responses, and bodies over the
// size cap, pass through unstored.
func (l *Layer) fetchAndStore(req *http.Request) (*http.Response, error) {
	resp, err := l.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if !isOK(resp.StatusCode) {
		return resp, nil
	}

	body, fits, err := l.readBody(resp.Body)
	if err != nil {
		resp.Body.Close() //nolint:errcheck
		return nil, err
	}
	if !fits {
		l.logger.Warn("response too large to cache", "url", req.URL.String(), "limit_bytes", l.maxBody)
		resp.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(body), resp.Body), Closer: resp.Body}
		return resp, nil
	}
	resp.Body.Close() //nolint:errcheck

	if err := l.store.Put(req.Context(), l.CacheName(), cacheKey(req), l.newEntry(resp, body)); err != nil {
		l.logger.Warn("cache put failed", "url", req.URL.String(), "error", err)
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}

// readCloser replays a buffered prefix ahead of the unread body and closes
// the original body.
type readCloser struct {
	io.Reader
	io.Closer
}

func (l *Layer) lookup(req *http.Request, key string) (*http.Response, bool) {
	entry, err := l.store.Get(req.Context(), l.CacheName(), key)
	if err != nil {
		if !errors.Is(err, ErrNotCached) {
			l.logger.Warn("cache lookup failed", "url", key, "error", err)
		}
		return nil, false
	}
	return entry.response(req), true
}

func (l *Layer) offlinePage(req *http.Request) (*http.Response, bool) {
	if l.cfg.OfflinePage == "" {
		return nil, false
	}
	return l.lookup(req, l.cfg.OfflinePage)
}

// response rebuilds an http.Response from a stored entry.
func (e Entry) response(req *http.Request) *http.Response {
	header := e.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set("X-Cache", "HIT")
	header.Set("Content-Length", strconv.Itoa(len(e.Body)))
	return &http.Response{
		Status:        strconv.Itoa(e.Status) + " " + http.StatusText(e.Status),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}
