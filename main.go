package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/mrlokans/gallery/internal/cli"
	"github.com/mrlokans/gallery/internal/config"
	"github.com/mrlokans/gallery/internal/entrypoint"
	"github.com/mrlokans/gallery/internal/logger"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	// A missing .env is fine; the environment may already be populated
	_ = godotenv.Load()

	cfg := config.NewConfig()
	entrypoint.SetupLogger(cfg.Log)
	defer logger.Sync()

	root := cli.NewRootCommand(cfg, fmt.Sprintf("%s (%s)", Version, Commit))
	if err := root.Run(context.Background(), os.Args); err != nil {
		logger.WithError(err).Error("command failed")
		logger.Sync()
		os.Exit(1)
	}
}
