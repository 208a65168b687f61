package proxy

import (
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"steamboard-api/pkg/apierror"
)

// PathPrefix is the local mount point rewritten away before forwarding.
const PathPrefix = "/api/steam"

// New returns a transparent reverse proxy to the Steam Web API. It rewrites
// the path prefix and the origin headers, forwards everything else as-is and
// answers 502 with a JSON error body when the upstream is unreachable.
func New(target string) (http.Handler, error) {
	upstream, err := url.Parse(target)
	if err != nil {
		return nil, err
	}

	p := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, PathPrefix)
			if pr.Out.URL.Path == "" {
				pr.Out.URL.Path = "/"
			}
			pr.Out.Host = upstream.Host
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Printf("[SteamProxy] Upstream request failed: %s %s: %v", r.Method, r.URL.Path, err)

			apiErr := apierror.BadGateway("Steam API is unreachable")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(apiErr.StatusCode)
			w.Write(apiErr.ToJSON())
		},
	}

	return p, nil
}
