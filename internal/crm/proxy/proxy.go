// Package proxy forwards a local path prefix to the CRM public API.
package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// New returns a handler that strips prefix and forwards the remainder of the
// path, with its query, to target. The outbound Host is the target's host.
func New(prefix, target string, logger *zap.Logger) (http.Handler, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("proxy target must be an absolute URL (got %q)", target)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	rp := &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(u)
			r.Out.Host = u.Host
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Warn("crm proxy upstream error", zap.String("path", r.URL.Path), zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"upstream unavailable"}`))
		},
	}
	return http.StripPrefix(strings.TrimRight(prefix, "/"), rp), nil
}
