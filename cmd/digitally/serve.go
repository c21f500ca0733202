package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/adeilh/digitally/advisor"
	"github.com/adeilh/digitally/api"
	"github.com/adeilh/digitally/auth"
	"github.com/adeilh/digitally/cache"
	"github.com/adeilh/digitally/config"
	"github.com/adeilh/digitally/db/sql/postgres"
	"github.com/adeilh/digitally/httpx"
	"github.com/adeilh/digitally/leads"
	"github.com/adeilh/digitally/llm"
	"github.com/adeilh/digitally/logging"
	"github.com/adeilh/digitally/notify"
	"github.com/adeilh/digitally/payments"
	"github.com/adeilh/digitally/queue"
	"github.com/adeilh/digitally/resumes"
	"github.com/adeilh/digitally/store/memory"
	"github.com/adeilh/digitally/users"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// gzipMinLength is the smallest response body worth compressing.
const gzipMinLength = 1024

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer logging.Sync(log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

type stores struct {
	leads   leads.Store
	users   users.Store
	resumes resumes.Store
}

// openStores connects to PostgreSQL, or keeps records in memory when no
// DSN is configured.
func openStores(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (stores, func(), error) {
	if cfg.DSN == "" {
		log.Warn("no database configured, records are kept in memory and lost on restart")
		return stores{leads: memory.NewLeads(), users: memory.NewUsers(), resumes: memory.NewResumes()}, func() {}, nil
	}
	db, err := postgres.Open(ctx,
		postgres.WithDSN(cfg.DSN),
		postgres.WithPool(cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime),
		postgres.WithAutoMigrate(cfg.AutoMigrate),
	)
	if err != nil {
		return stores{}, nil, err
	}
	pg := postgres.NewStores(db)
	return stores{leads: pg.Leads, users: pg.Users, resumes: pg.Resumes}, func() { _ = db.Close() }, nil
}

// signingSecret returns the configured JWT secret. Development runs without
// one get a random secret, so tokens do not survive a restart.
func signingSecret(cfg config.AuthConfig, log *zap.Logger) ([]byte, error) {
	if cfg.JWTSecret != "" {
		return []byte(cfg.JWTSecret), nil
	}
	secret := make([]byte, auth.MinSecretLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate jwt secret: %w", err)
	}
	log.Warn("JWT_SECRET not set, using a random secret for this process")
	return secret, nil
}

func newDispatcher(cfg config.NotifyConfig, log *zap.Logger) *notify.Dispatcher {
	return notify.NewDispatcher(
		notify.WithTelegram(notify.NewTelegram(cfg.Telegram.BaseURL, cfg.Telegram.BotToken, cfg.Telegram.ChatID)),
		notify.WithWhatsApp(notify.NewWhatsApp(cfg.WhatsApp.BaseURL, cfg.WhatsApp.Phone, cfg.WhatsApp.APIKey)),
		notify.WithEmail(notify.NewEmail(cfg.Email.Host, cfg.Email.Port, cfg.Email.User, cfg.Email.Password, cfg.Email.To)),
		notify.WithCooldown(cfg.Cooldown),
		notify.WithLogger(log),
	)
}

func serverOptions(cfg config.ServerConfig, log *zap.Logger) []httpx.ServerOption {
	mws := []httpx.MiddlewareFunc{
		httpx.RequestID(),
		httpx.SecureHeaders(),
		httpx.Gzip(gzipMinLength),
		httpx.BodyLimit(cfg.BodyLimit),
	}
	if st, err := os.Stat(cfg.PublicDir); err == nil && st.IsDir() {
		mws = append(mws, httpx.SPA(cfg.PublicDir, "/api", "/health"))
	} else {
		log.Info("no static site directory, serving the API only", zap.String("dir", cfg.PublicDir))
	}

	var cors *middleware.CORSConfig
	if len(cfg.CORSOrigins) > 0 {
		c := httpx.DefaultCORSConfig
		c.AllowOrigins = cfg.CORSOrigins
		cors = &c
	}
	return []httpx.ServerOption{
		httpx.WithAddress(cfg.Address),
		httpx.WithTimeouts(cfg.ReadTimeout, cfg.WriteTimeout),
		httpx.WithLogger(log),
		httpx.WithCORS(cors),
		httpx.AppendMiddlewares(mws...),
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st, closeStores, err := openStores(ctx, cfg.Database, log.Named("store"))
	if err != nil {
		return err
	}
	defer closeStores()

	q := queue.New(
		queue.WithMaxConcurrent(cfg.AI.MaxConcurrent),
		queue.WithMaxPending(cfg.AI.MaxPending),
		queue.WithTaskTimeout(cfg.AI.TaskTimeout),
		queue.WithLogger(log.Named("queue")),
	)
	aiCache := cache.New[json.RawMessage](cache.WithTTL(cfg.AI.CacheTTL))
	janitorEvery := cfg.AI.JanitorInterval
	if janitorEvery <= 0 {
		janitorEvery = cfg.AI.CacheTTL
	}
	janitor := aiCache.StartJanitor(ctx, janitorEvery)

	gw := llm.NewGateway(
		llm.WithAPIKey(cfg.AI.APIKey),
		llm.WithBaseURL(cfg.AI.BaseURL),
		llm.WithModel(cfg.AI.Model),
		llm.WithAttribution(cfg.AI.Referer, cfg.AI.Title),
		llm.WithTimeout(cfg.AI.Timeout),
		llm.WithLogger(log.Named("llm")),
	)
	if gw.Mock() {
		log.Warn("OPENROUTER_API_KEY not set, AI tools serve mock payloads")
	}

	dispatcher := newDispatcher(cfg.Notify, log.Named("notify"))

	secret, err := signingSecret(cfg.Auth, log)
	if err != nil {
		return err
	}
	// only admin sessions are ever revoked
	signer, err := auth.NewSigner(secret, auth.WithRevokeFor(cfg.Auth.AdminTokenTTL))
	if err != nil {
		return err
	}
	tokens := auth.NewTokens(signer, cfg.Auth.TokenTTL, cfg.Auth.AdminTokenTTL)
	accounts := users.NewService(st.users, tokens)
	admin, err := auth.NewAdmin(cfg.Auth.AdminUser, cfg.Auth.AdminPassword, cfg.Auth.AdminPasswordHash, tokens)
	if err != nil {
		return err
	}

	advisorOpts := []advisor.Option{
		advisor.WithFreshness(cfg.AI.Freshness),
		advisor.WithAlertTimeout(cfg.Notify.AlertTimeout),
		advisor.WithLogger(log.Named("advisor")),
	}
	if cfg.AI.SiteSnapshot {
		advisorOpts = append(advisorOpts, advisor.WithSnapshotter(advisor.NewPageSnapshotter(false)))
	}
	adv := advisor.NewService(gw, q, aiCache, st.leads, dispatcher, advisorOpts...)
	leadSvc := leads.NewService(st.leads, dispatcher, log.Named("leads"))

	pay := payments.NewService(accounts,
		payments.WithKeys(cfg.Payments.KeyID, cfg.Payments.KeySecret),
		payments.WithWebhookSecret(cfg.Payments.WebhookSecret),
		payments.WithBaseURL(cfg.Payments.BaseURL),
		payments.WithCurrency(cfg.Payments.Currency),
		payments.WithLogger(log.Named("payments")),
	)

	h := api.New(api.Deps{
		Leads:    leadSvc,
		Users:    accounts,
		Resumes:  resumes.NewService(st.resumes, accounts, gw, q, log.Named("resumes")),
		Advisor:  adv,
		Payments: pay,
		Admin:    admin,
		Guard:    auth.NewGuard(tokens, accounts),
		Limits:   cfg.RateLimit,
		Queue:    q,
		Cache:    aiCache,
		Gateway:  gw,
		Log:      log.Named("api"),
	})

	srv := httpx.NewServer(serverOptions(cfg.Server, log.Named("http"))...)
	srv.RegisterRoutes(h.Register)
	// in-flight requests cannot outlive the write timeout
	err = srv.Start(ctx, httpx.WithShutdownTimeout(cfg.Server.WriteTimeout))

	cancel()
	<-janitor
	adv.Wait()
	leadSvc.Wait()
	log.Info("stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
