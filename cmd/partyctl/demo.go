package main

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/danmuck/partyline/internal/app"
	"github.com/danmuck/partyline/internal/config"
	"github.com/danmuck/partyline/internal/dispatch"
	"github.com/danmuck/partyline/internal/party"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// indexEndpoint names an app's index page. The root app owns the bare
// "index" endpoint.
func indexEndpoint(cfg config.AppConfig) string {
	if config.NormalizePrefix(cfg.Prefix) == "" {
		return "index"
	}
	return cfg.ID + ":index"
}

// buildDemo mounts one app per config entry behind a dispatcher. Every app
// serves an index page linking to every other app's index; only party apps
// can build those links.
func buildDemo(cfg serviceConfig) (*dispatch.Dispatcher, error) {
	p, err := party.New(cfg.Party.InvitePath)
	if err != nil {
		return nil, err
	}

	var root *app.App
	type mounted struct {
		prefix string
		app    *app.App
	}
	var mounts []mounted
	var invites []string

	for _, appCfg := range cfg.Party.Apps {
		a := app.Appear(appCfg.ID, cfg.Party.CorsOrigins)
		a.RegisterRoutes()
		prefix := config.NormalizePrefix(appCfg.Prefix)
		if appCfg.Party {
			a.GET("/", indexEndpoint(appCfg), indexPage(a, appCfg, cfg.Party.Apps))
			if _, err := p.Init(a); err != nil {
				return nil, fmt.Errorf("init %s: %w", appCfg.ID, err)
			}
			invites = append(invites, prefix+p.InvitePath())
		} else {
			a.GET("/", indexEndpoint(appCfg), func(c *gin.Context) {
				c.String(http.StatusOK, "I do not participate in parties.")
			})
		}
		if prefix == "" {
			root = a
			if cfg.Metrics {
				a.GET(cfg.MetricsPath, "metrics", gin.WrapH(promhttp.Handler()))
			}
			continue
		}
		mounts = append(mounts, mounted{prefix: prefix, app: a})
	}

	opts := []dispatch.Option{
		dispatch.WithInvitePath(p.InvitePath()),
		dispatch.WithInvites(invites...),
		dispatch.WithHost(cfg.Party.Host),
	}
	var d *dispatch.Dispatcher
	if root != nil {
		d = dispatch.New(root, opts...)
	} else {
		d = dispatch.New(nil, opts...)
	}
	for _, m := range mounts {
		if err := d.Mount(m.prefix, m.app); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func indexPage(self *app.App, selfCfg config.AppConfig, apps []config.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var b strings.Builder
		b.WriteString("<html>\n<head>\n  <title>Demo: Cross-application URL building.</title>\n</head>\n<body>\n")
		fmt.Fprintf(&b, "  <p>You are in application %s.</p>\n  <ul>\n", html.EscapeString(self.ID))
		for _, other := range apps {
			if other.ID == selfCfg.ID {
				continue
			}
			url, err := self.URLFor(c.Request.Context(), indexEndpoint(other), nil)
			if err != nil {
				fmt.Fprintf(&b, "    <li>%s is not at the party</li>\n", html.EscapeString(other.ID))
				continue
			}
			fmt.Fprintf(&b, "    <li><a href=\"%s\">Go to application %s</a></li>\n",
				html.EscapeString(url), html.EscapeString(other.ID))
		}
		b.WriteString("  </ul>\n</body>\n</html>\n")
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(b.String()))
	}
}
