// Package redissource bridges props and Redis pub/sub channels.
package redissource

import (
	"context"
	"encoding/json"
	"log/slog"

	backend "github.com/redis/go-redis/v9"

	properrors "github.com/vango-dev/prop/internal/errors"
	"github.com/vango-dev/prop/pkg/prop"
)

// Option configures Subscribe and Publish.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	propOpts []prop.Option
	replay   bool
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithPropOptions passes options to the prop created by Subscribe.
func WithPropOptions(opts ...prop.Option) Option {
	return func(c *config) {
		c.propOpts = append(c.propOpts, opts...)
	}
}

// WithReplay makes Publish send the prop's current value right away.
func WithReplay(replay bool) Option {
	return func(c *config) {
		c.replay = replay
	}
}

func newConfig(opts []Option) *config {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Subscribe returns a pending prop receiving the payload of every message
// published to channel. It returns once Redis confirmed the subscription.
// Ending the prop, or cancelling ctx, closes the subscription.
func Subscribe(ctx context.Context, client backend.UniversalClient, channel string, opts ...Option) (*prop.Prop[string], error) {
	cfg := newConfig(opts)

	ps := client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, properrors.New("E030").
			WithDetail("Subscribing to channel " + channel + " was not confirmed.").
			Wrap(err)
	}

	p := prop.Pending[string](cfg.propOpts...)
	p.OnEnd(func() {
		if err := ps.Close(); err != nil {
			cfg.logger.Debug("redis subscription close failed", "channel", channel, "error", err)
		}
	})

	msgs := ps.Channel()
	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				p.Next(msg.Payload)
			case <-ctx.Done():
				p.End()
				return
			}
		}
	}()

	cfg.logger.Debug("redis subscription started", "prop", p.ID(), "channel", channel)
	return p, nil
}

// SubscribeJSON is Subscribe with every payload decoded as JSON into T.
// Payloads that fail to decode are stored as errors.
func SubscribeJSON[T any](ctx context.Context, client backend.UniversalClient, channel string, opts ...Option) (*prop.Prop[T], error) {
	raw, err := Subscribe(ctx, client, channel, opts...)
	if err != nil {
		return nil, err
	}
	decoded := prop.Map(raw, func(c prop.Cell[string]) (T, error) {
		var v T
		s, err := c.Unwrap()
		if err != nil {
			return v, err
		}
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return v, properrors.New("E032").WithDetail("Payload on " + channel + " is not valid JSON.").Wrap(err)
		}
		return v, nil
	})
	decoded.OnEnd(raw.End)
	return decoded, nil
}

// Publish sends every later error-free value of p to channel. Strings and
// byte slices are sent as is, everything else as JSON. Failures are logged
// and do not stop the mirror. Cancel the returned subscription to stop.
func Publish[T any](ctx context.Context, client backend.UniversalClient, channel string, p *prop.Prop[T], opts ...Option) *prop.Subscription {
	cfg := newConfig(opts)
	return p.Subscribe(func(c prop.Cell[T]) {
		if c.Err() != nil || !c.HasValue() {
			return
		}
		payload, err := encode(c.Value())
		if err != nil {
			cfg.logger.Warn("prop value not publishable", "prop", p.ID(), "channel", channel,
				"error", properrors.New("E032").Wrap(err))
			return
		}
		if err := client.Publish(ctx, channel, payload).Err(); err != nil {
			cfg.logger.Warn("redis publish failed", "prop", p.ID(), "channel", channel,
				"error", properrors.New("E031").Wrap(err))
		}
	}, prop.NotifyImmediately(cfg.replay))
}

func encode(v any) (any, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}
