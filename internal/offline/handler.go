package offline

import (
	"io"
	"net/http"
	"net/url"
	"strings"
)

// forwardedHeaders are copied from the incoming request to the origin request.
var forwardedHeaders = []string{"Accept", "Accept-Language", "Sec-Fetch-Mode", "User-Agent"}

// Handler serves the web shell from origin through the layer. Requests that
// neither the network nor the cache can answer get 504 Gateway Timeout.
func (l *Layer) Handler(origin *url.URL) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Resolve relative to origin so a shell mounted under a path prefix
		// produces the same URLs as the resolved manifest.
		rel := &url.URL{Path: strings.TrimPrefix(r.URL.Path, "/"), RawQuery: r.URL.RawQuery}
		target := origin.ResolveReference(rel)

		out, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), nil)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		for _, h := range forwardedHeaders {
			if v := r.Header.Get(h); v != "" {
				out.Header.Set(h, v)
			}
		}

		resp, err := l.RoundTrip(out)
		if err != nil {
			http.Error(w, "offline", http.StatusGatewayTimeout)
			return
		}
		defer resp.Body.Close()

		for k, vs := range resp.Header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		w.WriteHeader(resp.StatusCode)
		if r.Method != http.MethodHead {
			_, _ = io.Copy(w, resp.Body)
		}
	})
}
