package app

import (
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-task-tracker/internal/config"
)

func readConfig(logger zerolog.Logger, reader config.Reader) (*config.Config, error) {
	cfg, err := reader.Read()
	if err != nil {
		logger.Error().
			Err(err).
			Msg("failed to read env")
		return nil, err
	}
	logger.Info().
		Str("env", cfg.Env).
		Str("storage_driver", cfg.Storage.Driver).
		Msg("read env")
	return cfg, nil
}
