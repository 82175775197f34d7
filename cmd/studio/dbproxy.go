package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"studio_site/internal/config"
	"studio_site/internal/controllers"
	"studio_site/internal/metrics"
	"studio_site/internal/routes"
	"studio_site/internal/session"
	"studio_site/internal/storage/mariadb"
	redisx "studio_site/internal/storage/redis"

	"github.com/spf13/cobra"
)

func dbproxyCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "dbproxy",
		Short: "Serve the /db endpoint over the Redis document key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := load()

			store, err := openRedis(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					log.Error("failed to close redis", slog.String("error", err.Error()))
				}
			}()

			var journal controllers.WriteJournal
			if cfg.Database.Enabled {
				journalDB, err := mariadb.New(cfg.Database)
				if err != nil {
					return fmt.Errorf("journal: %w", err)
				}
				defer func() {
					if err := journalDB.Close(); err != nil {
						log.Error("failed to close database", slog.String("error", err.Error()))
					}
				}()

				if err := journalDB.Migrate(); err != nil {
					return fmt.Errorf("journal migration: %w", err)
				}

				journal = journalDB
				log.Info("write journal init")
			}

			// Only the allow-list is consulted here.
			allow := session.NewManager(cfg.Admin.Emails, nil, log)

			rec := metrics.NewRecorder(metricsNamespace + "_db")
			db := controllers.NewDBController(store, journal, allow, log)

			server := &http.Server{
				Addr:         cfg.DBProxy.Address,
				Handler:      routes.SetupDBRouter(log, db, rec, cfg.Cors),
				ReadTimeout:  cfg.Timeout,
				WriteTimeout: cfg.Timeout,
				IdleTimeout:  cfg.IdleTimeout,
			}

			return run(log, server)
		},
	}
}

func openRedis(ctx context.Context, cfg *config.Config, log *slog.Logger) (*redisx.DocumentStore, error) {
	store := redisx.New(redisx.Config{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
		Key:      cfg.Redis.Key,
	}, log)

	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
	}

	log.Info("redis init", slog.String("addr", cfg.Redis.Addr), slog.String("key", cfg.Redis.Key))

	return store, nil
}
