package advisor

import (
	"time"

	"go.uber.org/zap"
)

const (
	DefaultFreshness    = 24 * time.Hour
	DefaultAlertTimeout = 30 * time.Second
)

// Options configures a Service.
type Options struct {
	Freshness    time.Duration
	AlertTimeout time.Duration
	Snapshotter  Snapshotter
	Logger       *zap.Logger
	Now          func() time.Time
}

type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Freshness:    DefaultFreshness,
		AlertTimeout: DefaultAlertTimeout,
		Logger:       zap.NewNop(),
		Now:          time.Now,
	}
}

// WithFreshness bounds how old a stored result may be and still be reused.
func WithFreshness(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Freshness = d
		}
	}
}

func WithAlertTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.AlertTimeout = d
		}
	}
}

// WithSnapshotter enables page snapshots for roast prompts.
func WithSnapshotter(s Snapshotter) Option {
	return func(o *Options) { o.Snapshotter = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}
