package llm

import (
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL       = "https://openrouter.ai/api/v1"
	DefaultModel         = "mistralai/mixtral-8x7b-instruct"
	DefaultTimeout       = 50 * time.Second
	DefaultTestKeyPrefix = "sk-or-v1-test"
)

// MockPayload is served when no usable credentials are configured.
const MockPayload = `{"score":85,"headline":"Mock Roast: Looks Good!","roast":"This is a mock response because the API key is missing or invalid. Configure a real key to get genuine feedback.","quickWins":["Add a real API key","Check the server logs","Retry the request"],"verdict":"Solid"}`

// UnavailablePayload is served when the provider rejects the call for
// authentication, billing or rate limit reasons.
const UnavailablePayload = `{"score":70,"headline":"AI Service Temporarily Unavailable","roast":"Our AI is currently taking a nap (Rate Limit or Quota Exceeded). Please try again later.","quickWins":["Check OpenRouter Credits","Retry in 1 minute"],"verdict":"Decent"}`

// Options configures a Gateway.
type Options struct {
	APIKey        string
	BaseURL       string
	Model         string
	Referer       string
	Title         string
	Timeout       time.Duration
	TestKeyPrefix string
	Logger        *zap.Logger
}

type Option func(*Options)

func defaultOptions() Options {
	return Options{
		BaseURL:       DefaultBaseURL,
		Model:         DefaultModel,
		Referer:       "https://digitally.vercel.app",
		Title:         "Digitally",
		Timeout:       DefaultTimeout,
		TestKeyPrefix: DefaultTestKeyPrefix,
		Logger:        zap.NewNop(),
	}
}

func WithAPIKey(key string) Option {
	return func(o *Options) { o.APIKey = key }
}

func WithBaseURL(url string) Option {
	return func(o *Options) {
		if url != "" {
			o.BaseURL = url
		}
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		if model != "" {
			o.Model = model
		}
	}
}

// WithAttribution sets the HTTP-Referer and X-Title headers sent upstream.
func WithAttribution(referer, title string) Option {
	return func(o *Options) {
		if referer != "" {
			o.Referer = referer
		}
		if title != "" {
			o.Title = title
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

// WithTestKeyPrefix marks keys with this prefix as placeholders. An empty
// prefix disables the check.
func WithTestKeyPrefix(prefix string) Option {
	return func(o *Options) { o.TestKeyPrefix = prefix }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

type callOptions struct {
	plainText   bool
	model       string
	mock        string
	unavailable string
}

// CallOption adjusts a single Call.
type CallOption func(*callOptions)

// PlainText drops the JSON response_format constraint.
func PlainText() CallOption {
	return func(o *callOptions) { o.plainText = true }
}

// WithCallModel overrides the model for one call.
func WithCallModel(model string) CallOption {
	return func(o *callOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithMockContent overrides the content returned without credentials.
func WithMockContent(content string) CallOption {
	return func(o *callOptions) { o.mock = content }
}

// WithUnavailableContent overrides the soft payload returned on 401/402/429.
func WithUnavailableContent(content string) CallOption {
	return func(o *callOptions) { o.unavailable = content }
}
