package repository

import (
	"time"

	"github.com/okian/classroom/pkg/logger"
)

// Default store settings.
const (
	defaultNamespace  = "classroom"
	defaultMaxRetries = 5
	defaultHistoryTTL = 72 * time.Hour
)

// Option applies a configuration option to a store.
type Option func(*options)

type options struct {
	namespace  string
	maxRetries int
	historyTTL time.Duration
	logger     logger.Logger
}

func newOptions(opts []Option) options {
	o := options{
		namespace:  defaultNamespace,
		maxRetries: defaultMaxRetries,
		historyTTL: defaultHistoryTTL,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithNamespace prefixes every redis key.
func WithNamespace(ns string) Option {
	return func(o *options) {
		if ns != "" {
			o.namespace = ns
		}
	}
}

// WithMaxRetries bounds optimistic transaction retries.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRetries = n
		}
	}
}

// WithHistoryTTL sets the expiry of per-day history keys. Zero disables it.
func WithHistoryTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl >= 0 {
			o.historyTTL = ttl
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
