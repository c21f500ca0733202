// Package notify delivers lead alerts to the agency over Telegram, WhatsApp
// and email. Delivery is best effort: failures are logged, never returned to
// the visitor who triggered them.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned by a channel whose credentials are missing.
var ErrNotConfigured = errors.New("notify: channel not configured")

// Message is one alert. Text channels use Text; email uses Subject and HTML.
type Message struct {
	Text    string
	Subject string
	HTML    string
	ReplyTo string
}

// Channel is a single delivery route.
type Channel interface {
	Name() string
	Send(ctx context.Context, m Message) error
}

// breaker stops calling a channel that keeps failing and probes it again
// after a cool-down.
type breaker struct {
	Channel
	cb *gobreaker.CircuitBreaker
}

func withBreaker(ch Channel, cooldown time.Duration, log *zap.Logger) *breaker {
	return &breaker{
		Channel: ch,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    ch.Name(),
			Timeout: cooldown,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrNotConfigured) || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("notify: channel state changed",
					zap.String("channel", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
	}
}

func (b *breaker) Send(ctx context.Context, m Message) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.Channel.Send(ctx, m)
	})
	return err
}
