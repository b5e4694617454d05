package routing

import (
	"context"
	"net/http"
	"strings"
)

// RequestInfo is the ambient request shape URL building falls back to.
// ScriptRoot is the mount prefix the app is served under.
type RequestInfo struct {
	Scheme     string
	Host       string
	ScriptRoot string
}

type requestInfoKey struct{}

func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

func RequestInfoFromContext(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info, ok
}

// InfoFromRequest derives scheme and host from r and nests mount under any
// script root already on the request context.
func InfoFromRequest(r *http.Request, mount string) RequestInfo {
	info, _ := RequestInfoFromContext(r.Context())
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); fwd != "" {
		scheme = strings.ToLower(fwd)
	}
	info.Scheme = scheme
	info.Host = r.Host
	info.ScriptRoot = joinRoot(info.ScriptRoot, mount)
	return info
}

func joinRoot(root, mount string) string {
	root = strings.TrimRight(root, "/")
	mount = strings.TrimRight(mount, "/")
	if mount == "" {
		return root
	}
	if !strings.HasPrefix(mount, "/") {
		mount = "/" + mount
	}
	return root + mount
}
