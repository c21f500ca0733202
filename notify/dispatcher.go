package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/adeilh/digitally/leads"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Options configures a Dispatcher.
type Options struct {
	Telegram Channel
	WhatsApp Channel
	Email    Channel
	// Cooldown is how long a failing channel is skipped before it is
	// tried again.
	Cooldown time.Duration
	Logger   *zap.Logger
}

type Option func(*Options)

func defaultOptions() Options {
	return Options{Cooldown: time.Minute}
}

func WithTelegram(ch Channel) Option { return func(o *Options) { o.Telegram = ch } }

func WithWhatsApp(ch Channel) Option { return func(o *Options) { o.WhatsApp = ch } }

func WithEmail(ch Channel) Option { return func(o *Options) { o.Email = ch } }

func WithCooldown(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Cooldown = d
		}
	}
}

func WithLogger(l *zap.Logger) Option { return func(o *Options) { o.Logger = l } }

// Dispatcher turns captured leads into alerts. Contact leads go to every
// channel; roast and qualify leads only to Telegram.
type Dispatcher struct {
	telegram Channel
	whatsapp Channel
	email    Channel
	log      *zap.Logger
}

var _ leads.Alerter = (*Dispatcher)(nil)

func NewDispatcher(opts ...Option) *Dispatcher {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{log: log}
	if o.Telegram != nil {
		d.telegram = withBreaker(o.Telegram, o.Cooldown, log)
	}
	if o.WhatsApp != nil {
		d.whatsapp = withBreaker(o.WhatsApp, o.Cooldown, log)
	}
	if o.Email != nil {
		d.email = withBreaker(o.Email, o.Cooldown, log)
	}
	return d
}

// LeadCaptured sends the alerts for lead. It returns once every channel has
// been tried.
func (d *Dispatcher) LeadCaptured(ctx context.Context, lead leads.Lead) {
	switch lead.Type {
	case leads.TypeContact:
		if html, err := contactHTML(lead); err != nil {
			d.log.Error("notify: render contact email", zap.Error(err))
		} else {
			d.send(ctx, d.email, Message{
				Subject: fmt.Sprintf("🔥 New Lead: %s - %s", lead.Name, or(lead.Service, "General Inquiry")),
				HTML:    html,
				ReplyTo: lead.Email,
			})
		}
		text := Message{Text: contactText(lead)}
		d.send(ctx, d.telegram, text)
		d.send(ctx, d.whatsapp, text)
	case leads.TypeRoast:
		d.send(ctx, d.telegram, Message{Text: roastText(lead)})
	case leads.TypeQualify:
		d.send(ctx, d.telegram, Message{Text: qualifyText(lead)})
	default:
		d.log.Debug("notify: no alert for lead type", zap.String("type", string(lead.Type)))
	}
}

func (d *Dispatcher) send(ctx context.Context, ch Channel, m Message) {
	if ch == nil {
		return
	}
	err := ch.Send(ctx, m)
	switch {
	case err == nil:
		d.log.Info("notify: alert sent", zap.String("channel", ch.Name()))
	case errors.Is(err, ErrNotConfigured):
		d.log.Warn("notify: credentials missing, skipping", zap.String("channel", ch.Name()))
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		d.log.Warn("notify: channel paused after failures", zap.String("channel", ch.Name()))
	default:
		d.log.Error("notify: alert failed", zap.String("channel", ch.Name()), zap.Error(err))
	}
}

func contactText(l leads.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔥 *New Lead from Digitally!*\n\n*Name:* %s\n*Email:* %s\n*Service:* %s\n*Budget:* %s\n\n*Message:* %s",
		l.Name, l.Email, or(l.Service, "General Inquiry"), or(l.Budget, "Not specified"), l.Message)
	if loc := l.Location; loc != nil {
		lat := strconv.FormatFloat(loc.Lat, 'f', -1, 64)
		lng := strconv.FormatFloat(loc.Lng, 'f', -1, 64)
		fmt.Fprintf(&b, "\n\n📍 *Location:* [%s, %s](https://www.google.com/maps?q=%s,%s)", lat, lng, lat, lng)
	}
	return b.String()
}

func roastText(l leads.Lead) string {
	var d struct {
		Score    json.Number `json:"score"`
		Verdict  string      `json:"verdict"`
		Headline string      `json:"headline"`
	}
	_ = json.Unmarshal(l.Details, &d)
	return fmt.Sprintf("🔥 *New Website Roast!*\n\n*URL:* %s\n*Score:* %s\n*Verdict:* %s\n\n*Outcome:* %s",
		strings.TrimPrefix(l.Message, "URL: "), d.Score, d.Verdict, d.Headline)
}

func qualifyText(l leads.Lead) string {
	var d struct {
		PotentialROI string `json:"potentialROI"`
	}
	_ = json.Unmarshal(l.Details, &d)
	return fmt.Sprintf("🎯 *New Qualified Lead!*\n\n*Type:* %s\n*Budget:* %s\n*Challenge:* %s\n*ROI Prediction:* %s",
		l.Service, l.Budget, strings.TrimPrefix(l.Message, "Challenge: "), d.PotentialROI)
}

var contactTmpl = template.Must(template.New("contact").Funcs(template.FuncMap{
	"lines": func(s string) []string { return strings.Split(s, "\n") },
}).Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #ddd; border-radius: 10px;">
<h2 style="color: #3B82F6;">New Project Inquiry</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Service Interest:</strong> {{.Service}}</p>
<p><strong>Budget Range:</strong> {{.Budget}}</p>
<hr style="border: 0; border-top: 1px solid #eee; margin: 20px 0;">
<h3 style="color: #333;">Message:</h3>
<p style="background-color: #f9f9f9; padding: 15px; border-radius: 5px; color: #555;">{{range $i, $l := lines .Message}}{{if $i}}<br>{{end}}{{$l}}{{end}}</p>
<hr style="border: 0; border-top: 1px solid #eee; margin: 20px 0;">
<p style="font-size: 12px; color: #888;">This email was sent from your Digitally Agency contact form.</p>
</div>
`))

func contactHTML(l leads.Lead) (string, error) {
	var b bytes.Buffer
	err := contactTmpl.Execute(&b, map[string]string{
		"Name":    l.Name,
		"Email":   l.Email,
		"Service": or(l.Service, "Not specified"),
		"Budget":  or(l.Budget, "Not specified"),
		"Message": l.Message,
	})
	return b.String(), err
}

func or(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
