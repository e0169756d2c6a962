package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/prop/internal/config"
	"github.com/vango-dev/prop/internal/errors"
	"github.com/vango-dev/prop/internal/telemetry"
	"github.com/vango-dev/prop/pkg/prop"
	"github.com/vango-dev/prop/pkg/propmetrics"
	"github.com/vango-dev/prop/pkg/proptrace"
	"github.com/vango-dev/prop/pkg/redissource"
	"github.com/vango-dev/prop/pkg/wsbridge"
)

const shutdownTimeout = 5 * time.Second

func serveCmd(a *app) *cobra.Command {
	var (
		addr     string
		readOnly bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a prop to WebSocket clients",
		Long: `Serve a shared prop over WebSocket.

Clients connected to the WebSocket route receive the current value
and every change as JSON frames. Values they send are stored and
broadcast to everyone. When redis is configured, JSON messages on
the channel are fed into the prop as well.

Routes:
  /ws       WebSocket (serve.path)
  /metrics  Prometheus metrics (metrics.path, when enabled)
  /healthz  Liveness

Examples:
  propctl serve
  propctl serve --addr 127.0.0.1:9000 --read-only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			if cmd.Flags().Changed("addr") {
				cfg.Serve.Addr = addr
			}
			if cmd.Flags().Changed("read-only") {
				cfg.Serve.ReadOnly = readOnly
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd, &cfg, a.logger)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Ignore values sent by clients")

	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Trace, telemetry.WithServiceVersion(version))
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("trace shutdown failed", "error", err)
		}
	}()

	s, err := newServer(ctx, cfg, logger, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer s.close()

	srv := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return errors.New("E203").WithDetail("Listening on " + cfg.Serve.Addr + " failed.").Wrap(err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "clients", s.hub.Clients())
		// Ending the state closes every WebSocket client first.
		s.close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	success(cmd.OutOrStdout(), "Serving on %s", cfg.Serve.Addr)
	info(cmd.OutOrStdout(), "WebSocket: %s", cfg.Serve.Path)
	if cfg.Metrics.Enabled {
		info(cmd.OutOrStdout(), "Metrics:   %s", cfg.Metrics.Path)
	}

	return g.Wait()
}

// server holds the shared state prop and everything that observes it.
type server struct {
	state  *prop.Prop[any]
	hub    *wsbridge.Hub
	router chi.Router
	redis  backend.UniversalClient
}

// newServer wires the state prop to the hub, metrics, tracing and the
// optional Redis feed. registry receives the metrics; it is served on the
// metrics route when enabled.
func newServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, registry *prometheus.Registry) (*server, error) {
	state := prop.Pending[any](prop.WithLogger(logger), prop.WithName("state"))

	s := &server{
		state: state,
		hub: wsbridge.NewHub(state,
			wsbridge.WithLogger(logger),
			wsbridge.WithWriteTimeout(cfg.Serve.WriteTimeout),
			wsbridge.WithReadOnly(cfg.Serve.ReadOnly),
			wsbridge.WithCheckOrigin(originChecker(cfg.Serve.AllowedOrigins)),
		),
	}

	if cfg.Metrics.Enabled {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		propmetrics.NewCollector(
			propmetrics.WithNamespace(cfg.Metrics.Namespace),
			propmetrics.WithRegistry(registry),
		).Observe(state)
	}

	if cfg.Trace.Enabled {
		proptrace.Trace(state, proptrace.WithContext(ctx))
	}

	if cfg.Redis.Addr != "" {
		s.redis = backend.NewClient(&backend.Options{Addr: cfg.Redis.Addr})
		feed, err := redissource.SubscribeJSON[any](ctx, s.redis, cfg.Redis.Channel,
			redissource.WithLogger(logger),
			redissource.WithPropOptions(prop.WithName("redis:"+cfg.Redis.Channel)),
		)
		if err != nil {
			s.close()
			return nil, err
		}
		state.OnEnd(feed.End)
		state.Merge(feed)
		logger.Info("redis feed attached", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.health)
	r.Handle(cfg.Serve.Path, s.hub)
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	}
	s.router = r

	return s, nil
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.hub.Clients(),
		"pending": s.state.Pending(),
	}); err != nil {
		slog.Error("health response encode failed", "error", err)
	}
}

// close ends the state prop and releases the Redis client. Safe to call
// more than once.
func (s *server) close() {
	s.state.End()
	if s.redis != nil {
		s.redis.Close()
	}
}

// originChecker builds the upgrader origin check. No origins keeps the
// same-origin default; "*" allows any origin.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	if slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
