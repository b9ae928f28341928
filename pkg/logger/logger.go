package logger

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the zerolog global logger with JSON output to
// stdout. Operational logging is separate from the event log: the event log
// records the traffic the generator emits, this logger records the
// generator's own state.
func InitLogger(logLevel string) {
	log.Logger = log.Output(os.Stdout).With().Timestamp().Logger()

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msgf("Logger initialized with level: %s", zerolog.GlobalLevel().String())
}
