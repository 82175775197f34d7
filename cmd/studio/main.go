package main

import (
	"log/slog"
	"os"

	"studio_site/internal/config"

	"github.com/spf13/cobra"
)

const (
	envLocal = "local"
	envProd  = "prod"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "studio",
		Short:        "Game studio site backend",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "Path to the YAML config")

	load := func() (*config.Config, *slog.Logger) {
		cfg := config.MustLoad(configPath)
		return cfg, setupLogger(cfg.Env)
	}

	root.AddCommand(serveCmd(load))
	root.AddCommand(dbproxyCmd(load))
	root.AddCommand(seedCmd(load))
	root.AddCommand(exportCmd(load))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type loader func() (*config.Config, *slog.Logger)

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}
	return log
}
