package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studio_site/internal/clients/backend"
	"studio_site/internal/content"
	"studio_site/internal/controllers"
	"studio_site/internal/importer"
	"studio_site/internal/metrics"
	"studio_site/internal/middleware"
	"studio_site/internal/routes"
	"studio_site/internal/services"
	"studio_site/internal/session"
	"studio_site/internal/storage/local"

	"github.com/spf13/cobra"
)

const metricsNamespace = "studio"

func serveCmd(load loader) *cobra.Command {
	var skipSync bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the site API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := load()
			fmt.Println(cfg)

			log.Info("starting server", slog.String("env", cfg.Env))

			kv, err := local.New(cfg.LocalStore.Path)
			if err != nil {
				return fmt.Errorf("local store: %w", err)
			}

			sessions := session.NewManager(cfg.Admin.Emails, kv, log)
			if err := sessions.Restore(); err != nil {
				log.Warn("failed to restore admin sessions", slog.String("error", err.Error()))
			}

			seed, err := content.DefaultDocument()
			if err != nil {
				return fmt.Errorf("bundled content: %w", err)
			}

			rec := metrics.NewRecorder(metricsNamespace)
			remote := backend.New(cfg.Backend.URL, cfg.Backend.Timeout, log)

			store := content.NewStore(seed, kv, remote, log, rec)
			if err := store.Load(); err != nil {
				log.Warn("failed to load local document", slog.String("error", err.Error()))
			}

			if !skipSync && cfg.Backend.URL != "" {
				ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Backend.Timeout)
				store.Sync(ctx)
				cancel()
			}

			log.Info("content init", slog.Bool("synced", store.Status().Synced))

			svc := services.NewContentService(store, log, rec)

			r := routes.SetupRouter(log, routes.Controllers{
				Content: controllers.NewContentController(svc, log),
				Admin:   controllers.NewAdminController(svc, sessions, importer.New(cfg.Backend.Timeout, log), log),
				Auth:    middleware.NewAdminMiddleware(sessions),
			}, rec, cfg.Cors)

			log.Info("routes init")

			server := &http.Server{
				Addr:         cfg.Address,
				Handler:      r,
				ReadTimeout:  cfg.Timeout,
				WriteTimeout: cfg.Timeout,
				IdleTimeout:  cfg.IdleTimeout,
			}

			err = run(log, server)

			store.Flush()
			log.Info("pending pushes flushed")

			return err
		},
	}
	cmd.Flags().BoolVar(&skipSync, "offline", false, "Skip the startup fetch from the backend")

	return cmd
}

// run serves until SIGINT or SIGTERM, then shuts the server down gracefully.
func run(log *slog.Logger, server *http.Server) error {
	serverErrors := make(chan error, 1)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	go func() {
		log.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		log.Error("server error", slog.String("error", err.Error()))
		return err

	case sig := <-shutdown:
		log.Info("shutting down", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown error", slog.String("error", err.Error()))
			if err := server.Close(); err != nil {
				log.Error("force shutdown error", slog.String("error", err.Error()))
			}
		}
	}

	log.Info("server stopped")

	return nil
}
