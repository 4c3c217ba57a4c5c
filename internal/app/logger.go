package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-task-tracker/internal/config"
)

// newDefaultLogger is used until the config has been read.
func newDefaultLogger() zerolog.Logger {
	zerolog.TimestampFieldName = "timestamp"

	return zerolog.New(os.Stdout).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Caller().
		Int("pid", os.Getpid()).
		Logger()
}

func newApplicationLogger(logger zerolog.Logger, cfg *config.Config) (zerolog.Logger, error) {
	w := io.Writer(os.Stdout)
	level := zerolog.InfoLevel
	switch cfg.Env {
	case config.EnvDev:
		level = zerolog.DebugLevel
	case config.EnvProd:
		level = zerolog.InfoLevel
	case config.EnvLocal:
		level = zerolog.TraceLevel

		consoleWriter := zerolog.NewConsoleWriter()
		consoleWriter.TimeFormat = time.DateTime
		consoleWriter.Out = os.Stdout
		w = consoleWriter
	default:
		return logger, fmt.Errorf("unknown env: %s", cfg.Env)
	}

	if cfg.LogLevel != "" {
		parsed, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return logger, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		level = parsed
	}
	logger = logger.Output(w).Level(level)
	logger.Info().
		Str("level", level.String()).
		Msg("initialized application logger")
	return logger, nil
}
