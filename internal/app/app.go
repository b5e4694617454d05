package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/danmuck/partyline/internal/node"
	"github.com/danmuck/partyline/internal/observability"
	"github.com/danmuck/partyline/internal/routing"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var ErrNoRoutes = errors.New("app: no local route table")

// App is one independently owned sub-application: a gin engine plus the
// named-endpoint table URL building runs against.
type App struct {
	ID       string         `json:"id"`
	Appeared time.Time      `json:"appeared"`
	Routes   *routing.Table `json:"-"`

	router *gin.Engine

	mu       sync.RWMutex
	resolver routing.Resolver
}

var _ node.Node = (*App)(nil)

func Appear(id string, corsOrigins []string) *App {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(observability.AppLogger(id)))
	r.Use(observability.RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	return Attach(id, r, routing.NewTable())
}

// Attach wraps an existing engine. routes may be nil for apps that build no
// URLs; such apps cannot join a party.
func Attach(id string, router *gin.Engine, routes *routing.Table) *App {
	return &App{
		ID:       id,
		Appeared: time.Now(),
		Routes:   routes,
		router:   router,
	}
}

func (a *App) NodeID() string {
	return a.ID
}

func (a *App) Kind() string {
	return "app"
}

func (a *App) HTTPRouter() *gin.Engine {
	return a.router
}

// Handle registers handlers on the engine and binds endpoint in the local
// table so URLFor can rebuild the path.
func (a *App) Handle(method, pattern, endpoint string, handlers ...gin.HandlerFunc) error {
	if a.Routes == nil {
		return ErrNoRoutes
	}
	if err := a.Routes.Add(method, pattern, endpoint); err != nil {
		return err
	}
	a.router.Handle(method, pattern, handlers...)
	return nil
}

// GET is Handle for GET routes; it panics on a bad binding like gin does.
func (a *App) GET(pattern, endpoint string, handlers ...gin.HandlerFunc) {
	if err := a.Handle(http.MethodGet, pattern, endpoint, handlers...); err != nil {
		panic(err)
	}
}

func (a *App) POST(pattern, endpoint string, handlers ...gin.HandlerFunc) {
	if err := a.Handle(http.MethodPost, pattern, endpoint, handlers...); err != nil {
		panic(err)
	}
}

// Resolver is what URLFor goes through: the local table, or whatever has
// been composed over it with Intercept.
func (a *App) Resolver() routing.Resolver {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.resolver != nil {
		return a.resolver
	}
	if a.Routes == nil {
		return nil
	}
	return a.Routes
}

// Intercept composes wrap over the current resolver.
func (a *App) Intercept(wrap func(next routing.Resolver) routing.Resolver) error {
	next := a.Resolver()
	if next == nil {
		return ErrNoRoutes
	}
	wrapped := wrap(next)
	a.mu.Lock()
	a.resolver = wrapped
	a.mu.Unlock()
	return nil
}

func (a *App) URLFor(ctx context.Context, endpoint string, values routing.Values) (string, error) {
	r := a.Resolver()
	if r == nil {
		return "", &routing.BuildError{Endpoint: endpoint, Values: values, Reason: "app has no route table"}
	}
	return r.URLFor(ctx, endpoint, values)
}

// RegisterRoutes adds the health endpoints every app carries, named
// "<id>:health" and "<id>:ready" so other apps can link to them.
func (a *App) RegisterRoutes() {
	a.GET("/health", a.ID+":health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(a.Appeared).String(),
			"app":     a.ID,
			"version": "0.0.1",
		})
	})

	a.GET("/ready", a.ID+":ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":   true,
			"uptime":  time.Since(a.Appeared).String(),
			"app":     a.ID,
			"version": "0.0.1",
		})
	})
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
