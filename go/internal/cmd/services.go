package main

import (
	"fmt"

	"github.com/mcdev12/scrumdinger/go/internal/cli"
	"github.com/mcdev12/scrumdinger/go/internal/config"
	"github.com/rs/zerolog/log"
)

func setupDependencies(cfg *config.Config) (*cli.Dependencies, error) {
	// Config → scrum definitions → CLI dependencies
	scrums, err := config.LoadScrums(cfg.ScrumsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load scrums: %w", err)
	}

	source := cfg.ScrumsFile
	if source == "" {
		source = "sample data"
	}
	log.Debug().
		Str("source", source).
		Int("scrums", len(scrums)).
		Int("tick_hz", cfg.TickHz).
		Msg("loaded scrums")

	return &cli.Dependencies{
		Config: cfg,
		Scrums: scrums,
	}, nil
}
