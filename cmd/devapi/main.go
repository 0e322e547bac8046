package main

import (
	"fmt"
	"os"

	"github.com/calendrier-dev/calendrier/internal/config"
	"github.com/calendrier-dev/calendrier/internal/devapi"
	"github.com/calendrier-dev/calendrier/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	srv, err := devapi.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create dev API")
	}
	defer srv.Close()

	log.Warn().Msg("Starting the local dev API, do not expose it")

	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Dev API failed to start")
	}
}
