package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"studio_site/internal/content"
	"studio_site/internal/models"
	"studio_site/internal/storage"

	"github.com/spf13/cobra"
)

func seedCmd(load loader) *cobra.Command {
	var (
		from  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the bundled (or a given) document to the Redis key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := load()

			doc, err := seedDocument(from)
			if err != nil {
				return err
			}

			data, err := json.Marshal(doc)
			if err != nil {
				return fmt.Errorf("encoding document: %w", err)
			}

			store, err := openRedis(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			if !force {
				_, err := store.Load(cmd.Context())
				if err == nil {
					return fmt.Errorf("key %s already holds a document, use --force to overwrite", cfg.Redis.Key)
				}
				if !errors.Is(err, storage.ErrNotFound) {
					return err
				}
			}

			if err := store.Save(cmd.Context(), data); err != nil {
				return err
			}

			log.Info("document seeded",
				slog.String("key", cfg.Redis.Key),
				slog.Int("games", len(doc.Games)),
				slog.Int("bytes", len(data)))

			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "JSON file to seed from instead of the bundled content")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing document")

	return cmd
}

func seedDocument(path string) (*models.Document, error) {
	if path == "" {
		doc, err := content.DefaultDocument()
		if err != nil {
			return nil, fmt.Errorf("bundled content: %w", err)
		}
		return &doc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	doc, err := models.ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}

func exportCmd(load loader) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the document stored under the Redis key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := load()
			// stdout carries the document.
			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))

			store, err := openRedis(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			data, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}

			var pretty bytes.Buffer
			if err := json.Indent(&pretty, data, "", "  "); err != nil {
				return fmt.Errorf("stored document is not JSON: %w", err)
			}
			pretty.WriteByte('\n')

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			if _, err := pretty.WriteTo(w); err != nil {
				return fmt.Errorf("writing document: %w", err)
			}

			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to a file instead of stdout")

	return cmd
}
