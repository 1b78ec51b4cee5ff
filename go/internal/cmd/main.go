package main

import (
	"os"

	"github.com/mcdev12/scrumdinger/go/internal/cli"
	"github.com/mcdev12/scrumdinger/go/internal/config"
	"github.com/mcdev12/scrumdinger/go/internal/output"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load environment (and .env, if any) before anything logs
	cfg := config.NewConfigFromEnv()
	cfg.SetupLogging()

	deps, err := setupDependencies(&cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize scrumdinger")
		output.NewFormatter(os.Stderr).Error(err.Error())
		os.Exit(1)
	}

	if err := cli.NewRootCmd(deps).Execute(); err != nil {
		output.NewFormatter(os.Stderr).Error(err.Error())
		os.Exit(1)
	}
}
