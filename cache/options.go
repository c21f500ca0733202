package cache

import "time"

// Options configures a TTL cache.
type Options struct {
	TTL time.Duration
	Now func() time.Time
}

type Option func(*Options)

func defaultOptions() Options {
	return Options{TTL: DefaultTTL, Now: time.Now}
}

// WithTTL sets how long entries stay live after Set.
func WithTTL(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.TTL = d
		}
	}
}

// WithClock injects the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}
