package worker

import (
	"github.com/okian/classroom/pkg/logger"
)

// Option applies a configuration option to an AuditWorker.
type Option func(*AuditWorker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *AuditWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *AuditWorker) {
		if l != nil {
			w.logger = l
		}
	}
}
