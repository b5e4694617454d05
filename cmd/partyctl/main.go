package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/partyline/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	observability.InitLogger("partyctl")
	configPath := flag.String("config", "cmd/partyctl/config.toml", "partyctl config path (defaults apply when missing)")
	flag.Parse()

	cfg := defaultServiceConfig()
	if _, err := os.Stat(*configPath); err == nil {
		loaded, err := loadServiceConfig(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load partyctl config")
		}
		cfg = loaded
		log.Info().Str("path", *configPath).Msg("loaded partyctl config")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	d, err := buildDemo(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build party")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inviteCtx, cancel := context.WithTimeout(ctx, cfg.InviteTimeout)
	for _, res := range d.Invite(inviteCtx) {
		log.Info().Str("path", res.Path).Int("status", res.Status).Bool("joined", res.Joined).Msg("invite_result")
	}
	cancel()

	log.Info().Str("name", cfg.Party.Name).Str("addr", cfg.Party.Addr).Int("members", d.Bus().Len()).Msg("party started")
	if err := d.ListenAndServe(ctx, cfg.Party.Addr); err != nil {
		log.Fatal().Err(err).Msg("party stopped")
	}
}
