package observability

import (
	"github.com/danmuck/partyline/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger applies the runtime logging profile and tags the global logger
// with the process name.
func InitLogger(process string) zerolog.Logger {
	logging.ConfigureRuntime()
	logger := log.Logger.With().Str("process", process).Logger()
	log.Logger = logger
	return logger
}

// AppLogger derives a child logger for one mounted app.
func AppLogger(app string) zerolog.Logger {
	return log.Logger.With().Str("app", app).Logger()
}
