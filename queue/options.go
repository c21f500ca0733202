package queue

import (
	"time"

	"go.uber.org/zap"
)

// DefaultMaxConcurrent bounds simultaneous model calls.
const DefaultMaxConcurrent = 3

// Options configures a Queue.
type Options struct {
	MaxConcurrent int
	// MaxPending caps the backlog; zero means unbounded.
	MaxPending int
	// TaskTimeout bounds each running task; zero means none.
	TaskTimeout time.Duration
	Logger      *zap.Logger
}

type Option func(*Options)

func defaultOptions() Options {
	return Options{MaxConcurrent: DefaultMaxConcurrent, Logger: zap.NewNop()}
}

// WithMaxConcurrent sets how many tasks may run at once. Non-positive values
// keep the default.
func WithMaxConcurrent(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxConcurrent = n
		}
	}
}

// WithMaxPending caps how many tasks may wait for a slot before Submit
// returns ErrQueueFull.
func WithMaxPending(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.MaxPending = n
		}
	}
}

// WithTaskTimeout bounds how long a running task may take.
func WithTaskTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d >= 0 {
			o.TaskTimeout = d
		}
	}
}

// WithLogger sets the logger that records failed tasks.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}
