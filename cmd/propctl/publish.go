package main

import (
	"context"
	"io"

	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/vango-dev/prop/internal/config"
	"github.com/vango-dev/prop/internal/errors"
	"github.com/vango-dev/prop/pkg/prop"
	"github.com/vango-dev/prop/pkg/redissource"
)

func publishCmd(a *app) *cobra.Command {
	var (
		file    string
		format  string
		addr    string
		channel string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a document stream to Redis",
		Long: `Decode a stream of JSON or YAML documents and publish every
distinct document as JSON on a Redis channel. A propctl serve
configured with the same channel broadcasts them to its clients.

Examples:
  propctl publish --redis localhost:6379 --channel prop < states.ndjson
  propctl publish --file states.yaml --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			if cmd.Flags().Changed("file") {
				cfg.Watch.File = file
			}
			if cmd.Flags().Changed("format") {
				cfg.Watch.Format = format
			}
			if cmd.Flags().Changed("redis") {
				cfg.Redis.Addr = addr
			}
			if cmd.Flags().Changed("channel") {
				cfg.Redis.Channel = channel
			}
			if cfg.Redis.Addr == "" {
				return errors.New("E102").
					WithDetail("publish needs a Redis address.").
					WithSuggestion("Pass --redis or set redis.addr in " + config.ConfigFileName)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			in, err := openInput(cfg.Watch.File, cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer in.Close()

			client := backend.NewClient(&backend.Options{Addr: cfg.Redis.Addr})
			defer client.Close()

			n, err := runPublish(cmd.Context(), a, &cfg, client, in)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Published %d documents to %s", n, cfg.Redis.Channel)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Document stream to read (default stdin)")
	cmd.Flags().StringVar(&format, "format", "", "Stream format: json or yaml (default from config)")
	cmd.Flags().StringVar(&addr, "redis", "", "Redis address (default from config)")
	cmd.Flags().StringVar(&channel, "channel", "", "Redis channel (default from config)")

	return cmd
}

// runPublish mirrors the documents of in to the configured channel. Repeated
// documents are published once. It returns the number of documents sent.
func runPublish(ctx context.Context, a *app, cfg *config.Config, client backend.UniversalClient, in io.Reader) (int, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return 0, errors.New("E031").
			WithDetail("Redis at " + cfg.Redis.Addr + " is not reachable.").
			Wrap(err)
	}

	doc := prop.Pending[map[string]any](prop.WithLogger(a.logger), prop.WithName("document"))
	defer doc.End()
	distinct := prop.Uniq(doc)

	sent := 0
	distinct.Subscribe(func(c prop.Cell[map[string]any]) {
		if c.HasValue() && c.Err() == nil {
			sent++
		}
	})
	sub := redissource.Publish(ctx, client, cfg.Redis.Channel, distinct, redissource.WithLogger(a.logger))
	defer sub.Cancel()

	err := readDocuments(ctx, in, cfg.Watch.Format,
		doc.Next,
		func(err error) {
			a.logger.Warn("skipping document", "error", err)
		},
	)
	return sent, err
}
