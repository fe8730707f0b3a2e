package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/briefly/internal/coinmarketcap"
	"github.com/dmitrymomot/briefly/internal/config"
	"github.com/dmitrymomot/briefly/internal/cookie"
	"github.com/dmitrymomot/briefly/internal/db"
	"github.com/dmitrymomot/briefly/internal/handler"
	"github.com/dmitrymomot/briefly/internal/logger"
	"github.com/dmitrymomot/briefly/internal/mailer"
	"github.com/dmitrymomot/briefly/internal/mailer/templates"
	"github.com/dmitrymomot/briefly/internal/newsletter"
	"github.com/dmitrymomot/briefly/internal/oauth"
	redisconn "github.com/dmitrymomot/briefly/internal/redis"
	"github.com/dmitrymomot/briefly/internal/session"
	"github.com/dmitrymomot/briefly/internal/storage"
	"github.com/dmitrymomot/briefly/internal/store"
	"github.com/dmitrymomot/briefly/internal/weatherapi"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.NewWithSentry(cfg.Logger, requestIDExtractor)
	slog.SetDefault(log)

	// Shutdown hooks run in reverse registration order once the server stops.
	var hooks []func(context.Context) error
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		for i := len(hooks) - 1; i >= 0; i-- {
			if err := hooks[i](shutdownCtx); err != nil {
				log.Error("shutdown hook failed", slog.Any("error", err))
			}
		}
	}()

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	hooks = append(hooks, db.Shutdown(pool))

	if err := db.Migrate(ctx, pool, store.Migrations, cfg.Database.MigrationsTable, log); err != nil {
		return err
	}

	redisClient, err := redisconn.Open(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	hooks = append(hooks, redisconn.Shutdown(redisClient))

	cookies, err := cookie.New(cfg.CookieSecret, cfg.SecureCookies)
	if err != nil {
		return err
	}

	weatherClient, err := weatherapi.New(cfg.Weather)
	if err != nil {
		return err
	}
	cryptoClient, err := coinmarketcap.New(cfg.Crypto)
	if err != nil {
		return err
	}

	mail := mailer.New(
		mailer.NewResendSender(cfg.Resend),
		mailer.NewRenderer(templates.FS),
		cfg.Mailer,
	)

	var google *oauth.GoogleProvider
	if cfg.Google.Enabled() {
		google, err = oauth.NewGoogleProvider(cfg.Google)
		if err != nil {
			return err
		}
	}

	var avatars *storage.AvatarStorage
	if cfg.Storage.Enabled() {
		avatars = storage.New(cfg.Storage)
	}

	repos := store.New(pool)
	h := handler.New(handler.Config{
		Store:      repos,
		Sessions:   session.NewRedisStore(redisClient),
		Cookies:    cookies,
		Mailer:     mail,
		Pipeline:   newsletter.NewService(weatherClient, cryptoClient, mail, cfg.BaseURL, log),
		Google:     google,
		Avatars:    avatars,
		Log:        log,
		SessionTTL: cfg.SessionTTL,
		Checks: []handler.HealthCheck{
			{Name: "postgres", Check: pool.Ping},
			{Name: "redis", Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}},
		},
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: h.Router(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", slog.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// requestIDExtractor stamps chi's request ID on every log record.
func requestIDExtractor(ctx context.Context) (slog.Attr, bool) {
	if id := chimiddleware.GetReqID(ctx); id != "" {
		return slog.String("request_id", id), true
	}
	return slog.Attr{}, false
}
