package routing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// Resolver maps a named endpoint and its values to a URL.
type Resolver interface {
	URLFor(ctx context.Context, endpoint string, values Values) (string, error)
}

type segmentKind int

const (
	segLiteral segmentKind = iota
	segParam
	segWildcard
)

type segment struct {
	kind segmentKind
	text string
}

// Route is one (method, pattern) binding of an endpoint. Patterns use gin
// syntax: ":name" for one segment, "*name" for the remaining path.
type Route struct {
	Endpoint string `json:"endpoint"`
	Method   string `json:"method"`
	Pattern  string `json:"pattern"`

	segments []segment
	params   []string
}

// Table is the local endpoint table of one app. Routes for an endpoint are
// tried in registration order.
type Table struct {
	mu     sync.RWMutex
	routes map[string][]Route
}

var _ Resolver = (*Table)(nil)

func NewTable() *Table {
	return &Table{routes: make(map[string][]Route)}
}

// Add binds endpoint to (method, pattern). Re-adding an identical binding is
// a no-op; an endpoint may carry several patterns, tried in order.
func (t *Table) Add(method, pattern, endpoint string) error {
	method = strings.ToUpper(strings.TrimSpace(method))
	endpoint = strings.TrimSpace(endpoint)
	if method == "" || endpoint == "" {
		return fmt.Errorf("%w: method and endpoint are required", ErrInvalidRoute)
	}
	route, err := parseRoute(method, pattern, endpoint)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.routes[endpoint] {
		if existing.Method == method && existing.Pattern == route.Pattern {
			return nil
		}
	}
	t.routes[endpoint] = append(t.routes[endpoint], route)
	return nil
}

// Endpoints lists bound endpoint names in sorted order.
func (t *Table) Endpoints() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.routes))
	for name := range t.routes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Routes returns the bindings of endpoint.
func (t *Table) Routes(endpoint string) []Route {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Route(nil), t.routes[endpoint]...)
}

func (t *Table) URLFor(ctx context.Context, endpoint string, values Values) (string, error) {
	o, rest := Split(values)
	return t.Build(ctx, endpoint, rest, o)
}

// Build is URLFor with the reserved keys already split off.
func (t *Table) Build(ctx context.Context, endpoint string, values Values, o Overrides) (string, error) {
	routes := t.Routes(endpoint)
	method := o.Method()
	if len(routes) == 0 {
		return "", &BuildError{Endpoint: endpoint, Values: values, Method: method, Reason: "unknown endpoint"}
	}

	reason := "no route accepts the given values"
	for _, route := range routes {
		if method != "" && !route.accepts(method) {
			reason = "method not allowed"
			continue
		}
		path, query, ok := route.fill(values)
		if !ok {
			reason = "missing path parameters"
			continue
		}
		return assemble(ctx, path, query, o), nil
	}
	return "", &BuildError{Endpoint: endpoint, Values: values, Method: method, Reason: reason}
}

func (r Route) accepts(method string) bool {
	if r.Method == method {
		return true
	}
	return method == http.MethodHead && r.Method == http.MethodGet
}

func (r Route) fill(values Values) (string, Values, bool) {
	var b strings.Builder
	used := make(map[string]bool, len(r.params))
	for _, seg := range r.segments {
		switch seg.kind {
		case segLiteral:
			b.WriteString(seg.text)
		case segParam:
			v, ok := values[seg.text]
			if !ok || v == "" {
				return "", nil, false
			}
			b.WriteString(url.PathEscape(v))
			used[seg.text] = true
		case segWildcard:
			v, ok := values[seg.text]
			if !ok {
				return "", nil, false
			}
			parts := strings.Split(strings.TrimPrefix(v, "/"), "/")
			for i, p := range parts {
				parts[i] = url.PathEscape(p)
			}
			b.WriteString(strings.Join(parts, "/"))
			used[seg.text] = true
		}
	}
	query := make(Values, len(values))
	for k, v := range values {
		if !used[k] {
			query[k] = v
		}
	}
	return b.String(), query, true
}

func assemble(ctx context.Context, path string, query Values, o Overrides) string {
	info, _ := RequestInfoFromContext(ctx)
	out := joinRoot(info.ScriptRoot, "") + path
	if out == "" {
		out = "/"
	}
	if q := encodeQuery(query); q != "" {
		out += "?" + q
	}
	if anchor := o.Anchor(); anchor != "" {
		frag := url.URL{Fragment: anchor}
		out += "#" + frag.EscapedFragment()
	}
	if !o.External() {
		return out
	}
	scheme := o.Scheme()
	if scheme == "" {
		scheme = info.Scheme
	}
	if scheme == "" {
		scheme = "http"
	}
	host := info.Host
	if host == "" {
		host = "localhost"
	}
	return scheme + "://" + host + out
}

func parseRoute(method, pattern, endpoint string) (Route, error) {
	pattern = strings.TrimSpace(pattern)
	if !strings.HasPrefix(pattern, "/") {
		return Route{}, fmt.Errorf("%w: pattern %q must start with /", ErrInvalidRoute, pattern)
	}
	route := Route{Endpoint: endpoint, Method: method, Pattern: pattern}
	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			route.segments = append(route.segments, segment{kind: segLiteral, text: literal.String()})
			literal.Reset()
		}
	}
	parts := strings.Split(pattern[1:], "/")
	for i, part := range parts {
		literal.WriteByte('/')
		switch {
		case strings.HasPrefix(part, ":"):
			name := part[1:]
			if name == "" {
				return Route{}, fmt.Errorf("%w: empty parameter in %q", ErrInvalidRoute, pattern)
			}
			flush()
			route.segments = append(route.segments, segment{kind: segParam, text: name})
			route.params = append(route.params, name)
		case strings.HasPrefix(part, "*"):
			name := part[1:]
			if name == "" || i != len(parts)-1 {
				return Route{}, fmt.Errorf("%w: wildcard must be last and named in %q", ErrInvalidRoute, pattern)
			}
			flush()
			route.segments = append(route.segments, segment{kind: segWildcard, text: name})
			route.params = append(route.params, name)
		default:
			literal.WriteString(part)
		}
	}
	flush()
	return route, nil
}
