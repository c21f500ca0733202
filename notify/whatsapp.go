package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adeilh/digitally/httpx"
)

// placeholderPhone is the sample number shipped in example env files.
const placeholderPhone = "91XXXXXXXXXX"

// WhatsApp sends messages to the agency's own number through CallMeBot.
type WhatsApp struct {
	client *httpx.Client
	phone  string
	apiKey string
}

func NewWhatsApp(baseURL, phone, apiKey string) *WhatsApp {
	if baseURL == "" {
		baseURL = "https://api.callmebot.com"
	}
	phone = strings.TrimSpace(phone)
	if phone == placeholderPhone {
		phone = ""
	}
	return &WhatsApp{
		client: httpx.NewClient(httpx.WithBaseURL(strings.TrimRight(baseURL, "/")), httpx.WithClientTimeout(10*time.Second)),
		phone:  phone,
		apiKey: strings.TrimSpace(apiKey),
	}
}

func (w *WhatsApp) Name() string { return "whatsapp" }

func (w *WhatsApp) Send(ctx context.Context, m Message) error {
	if w.phone == "" || w.apiKey == "" {
		return ErrNotConfigured
	}
	query := map[string]string{
		"phone":  w.phone,
		"text":   m.Text,
		"apikey": w.apiKey,
	}
	if _, err := w.client.Get(ctx, "/whatsapp.php", nil, httpx.WithQuery(query)); err != nil {
		return fmt.Errorf("notify: whatsapp: %w", err)
	}
	return nil
}
