package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/partyline/internal/node"
	"github.com/danmuck/partyline/internal/partyline"
	"github.com/danmuck/partyline/internal/routing"
	"github.com/rs/zerolog/log"
)

const defaultInvitePath = "/__invite__/"

var (
	ErrInvalidPrefix  = errors.New("dispatch: invalid mount prefix")
	ErrDuplicateMount = errors.New("dispatch: prefix already mounted")
	ErrNilNode        = errors.New("dispatch: node is nil")
)

type mount struct {
	prefix string
	node   node.Node
}

// Dispatcher mounts apps at path prefixes and routes each request to the
// longest matching one. Every request context it hands down carries the
// dispatcher's bus and the request info of the mount.
type Dispatcher struct {
	bus        *partyline.Bus
	root       node.Node
	invitePath string
	invites    []string
	host       string

	mu     sync.RWMutex
	mounts []mount
}

type Option func(*Dispatcher)

// WithBus shares an existing bus instead of creating one.
func WithBus(b *partyline.Bus) Option {
	return func(d *Dispatcher) {
		if b != nil {
			d.bus = b
		}
	}
}

// WithInvitePath sets the per-app invitation path used when no explicit
// invite list is given.
func WithInvitePath(path string) Option {
	return func(d *Dispatcher) {
		if strings.TrimSpace(path) != "" {
			d.invitePath = path
		}
	}
}

// WithInvites replaces invite-every-mount with an explicit list of full
// invitation paths, visited in order.
func WithInvites(paths ...string) Option {
	return func(d *Dispatcher) {
		d.invites = append([]string{}, paths...)
	}
}

// WithHost sets the Host header of synthetic invitation requests.
func WithHost(host string) Option {
	return func(d *Dispatcher) {
		if strings.TrimSpace(host) != "" {
			d.host = host
		}
	}
}

// New builds a dispatcher serving root for every path no mount claims.
// root may be nil.
func New(root node.Node, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		bus:        partyline.NewBus(),
		root:       root,
		invitePath: defaultInvitePath,
		host:       "localhost",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Bus() *partyline.Bus {
	return d.bus
}

// Mount serves n under prefix, e.g. "/one".
func (d *Dispatcher) Mount(prefix string, n node.Node) error {
	if n == nil {
		return ErrNilNode
	}
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" || !strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range d.mounts {
		if m.prefix == prefix {
			return fmt.Errorf("%w: %s", ErrDuplicateMount, prefix)
		}
	}
	d.mounts = append(d.mounts, mount{prefix: prefix, node: n})
	log.Info().Str("prefix", prefix).Str("node", n.NodeID()).Str("kind", n.Kind()).Msg("dispatch_mounted")
	return nil
}

// Nodes returns mounted nodes keyed by prefix, the root under "".
func (d *Dispatcher) Nodes() map[string]node.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]node.Node, len(d.mounts)+1)
	if d.root != nil {
		out[""] = d.root
	}
	for _, m := range d.mounts {
		out[m.prefix] = m.node
	}
	return out
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target, prefix, rest := d.match(r.URL.Path)
	if target == nil {
		http.NotFound(w, r)
		return
	}

	ctx := partyline.NewContext(r.Context(), d.bus)
	ctx = routing.WithRequestInfo(ctx, routing.InfoFromRequest(r, prefix))
	inner := r.Clone(ctx)
	inner.URL.Path = rest
	inner.URL.RawPath = ""
	target.HTTPRouter().ServeHTTP(w, inner)
}

func (d *Dispatcher) match(path string) (node.Node, string, string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var best *mount
	for i := range d.mounts {
		m := &d.mounts[i]
		if path != m.prefix && !strings.HasPrefix(path, m.prefix+"/") {
			continue
		}
		if best == nil || len(m.prefix) > len(best.prefix) {
			best = m
		}
	}
	if best == nil {
		return d.root, "", path
	}
	rest := strings.TrimPrefix(path, best.prefix)
	if rest == "" {
		rest = "/"
	}
	return best.node, best.prefix, rest
}

// InviteResult is the outcome of one invitation request.
type InviteResult struct {
	Path   string `json:"path"`
	Status int    `json:"status"`
	Joined bool   `json:"joined"`
}

// Invite sends one invitation to every invite path through the dispatcher
// itself, synchronously and in order, so the join order is the invite order.
// Unreachable or non-participating apps are skipped.
func (d *Dispatcher) Invite(ctx context.Context) []InviteResult {
	paths := d.invitePaths()
	results := make([]InviteResult, 0, len(paths))
	for _, path := range paths {
		res := InviteResult{Path: path}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+d.host+path, nil)
		if err != nil {
			log.Debug().Str("path", path).Err(err).Msg("invite_ignored")
			results = append(results, res)
			continue
		}
		rec := newRecorder()
		d.ServeHTTP(rec, req)
		res.Status = rec.Status()
		res.Joined = rec.Status() == http.StatusOK
		if !res.Joined {
			log.Debug().Str("path", path).Int("status", res.Status).Msg("invite_ignored")
		}
		results = append(results, res)
	}
	log.Info().
		Str("bus", d.bus.ID().String()).
		Int("invited", len(paths)).
		Int("members", d.bus.Len()).
		Msg("invites_sent")
	return results
}

func (d *Dispatcher) invitePaths() []string {
	if d.invites != nil {
		return append([]string{}, d.invites...)
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	paths := make([]string, 0, len(d.mounts)+1)
	if d.root != nil {
		paths = append(paths, d.invitePath)
	}
	for _, m := range d.mounts {
		paths = append(paths, m.prefix+d.invitePath)
	}
	return paths
}

// ListenAndServe serves the dispatcher on addr until ctx is done.
func (d *Dispatcher) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           d,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
