package prop

import "log/slog"

// Option configures a prop at construction.
type Option func(*options)

type options struct {
	name   string
	logger *slog.Logger
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithName labels the prop in logs, metrics and traces.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// SubscribeOption configures a single subscription.
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	immediate    bool
	immediateSet bool
}

// NotifyImmediately controls whether the subscriber receives the current cell
// before Subscribe returns. The default is to do so when the prop has been
// initialized. A pending prop never notifies immediately.
func NotifyImmediately(notify bool) SubscribeOption {
	return func(c *subscribeConfig) {
		c.immediate = notify
		c.immediateSet = true
	}
}
