package main

import (
	"flag"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/partyline/internal/config"
	"github.com/danmuck/partyline/internal/observability"
	"github.com/rs/zerolog/log"
)

func main() {
	observability.InitLogger("configgen")
	kind := flag.String("kind", "party", "config kind: party|overrides")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing party config file")
	input := flag.String("input", "cmd/partyctl/party.toml", "party config path for validation")
	defaults := flag.Bool("defaults", false, "print the built-in party config as TOML")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *defaults {
		if err := toml.NewEncoder(os.Stdout).Encode(config.DefaultPartyConfig()); err != nil {
			log.Fatal().Err(err).Msg("encode defaults")
		}
		return
	}

	if *validate {
		cfg, err := config.LoadPartyConfig(*input)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid party config")
		}
		log.Info().Str("path", *input).Str("name", cfg.Name).Int("apps", len(cfg.Apps)).Msg("validated party config")
		return
	}

	target := *output
	if target == "" {
		switch *kind {
		case "party":
			target = "cmd/partyctl/party.toml"
		case "overrides":
			target = "cmd/partyctl/config.toml"
		default:
			log.Fatal().Str("kind", *kind).Msg("unknown kind")
		}
	}

	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal().Err(err).Msg("write template")
	}
	log.Info().Str("kind", *kind).Str("path", target).Msg("wrote config template")
}
