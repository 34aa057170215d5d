package main

import (
	"log/slog"
	"os"

	"github.com/tesserahq/trustgate/internal/config"
	"github.com/tesserahq/trustgate/internal/server"
)

func main() {
	env := config.LoadEnv()

	cfg, err := config.Load(env.ConfigPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	env.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := server.Start(cfg); err != nil {
		os.Exit(1)
	}
}
