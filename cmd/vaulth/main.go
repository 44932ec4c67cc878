// Command vaulth runs the delegated-authentication broker: it loads
// vaulth.json, wires the JWT Service, User Store, Provider Adapters,
// OAuth2 Orchestrator, Token Endpoint, and User Endpoint together, and
// serves them over HTTP(S) until signaled to shut down.
package main

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	coreconfig "github.com/vaulth-auth/vaulth/core/config"
	"github.com/vaulth-auth/vaulth/core/handler"
	"github.com/vaulth-auth/vaulth/core/healthcheck"
	"github.com/vaulth-auth/vaulth/core/logger"
	"github.com/vaulth-auth/vaulth/core/response"
	"github.com/vaulth-auth/vaulth/core/router"
	"github.com/vaulth-auth/vaulth/core/server"
	"github.com/vaulth-auth/vaulth/integration/database/pg"
	"github.com/vaulth-auth/vaulth/integration/database/redis"
	"github.com/vaulth-auth/vaulth/internal/config"
	"github.com/vaulth-auth/vaulth/internal/jwtservice"
	"github.com/vaulth-auth/vaulth/internal/oauth2x"
	"github.com/vaulth-auth/vaulth/internal/provider"
	"github.com/vaulth-auth/vaulth/internal/store"
	"github.com/vaulth-auth/vaulth/internal/tlsprovision"
	"github.com/vaulth-auth/vaulth/internal/tokenapi"
	"github.com/vaulth-auth/vaulth/internal/userapi"
	"github.com/vaulth-auth/vaulth/middleware"
	"github.com/vaulth-auth/vaulth/pkg/ratelimiter"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("vaulth exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load(config.Path(os.Args[1:]))
	if err != nil {
		return err
	}

	if level := parseLevel(cfg.LogLevel); level != nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: *level}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	privKey, err := os.ReadFile(cfg.Token.PrivateKey)
	if err != nil {
		return err
	}
	pubKey, err := os.ReadFile(cfg.Token.PublicKey)
	if err != nil {
		return err
	}
	jwt, err := jwtservice.New(privKey, pubKey, time.Duration(cfg.Token.Duration)*time.Minute)
	if err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, pg.Config{ConnectionString: cfg.DatabaseURL})
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pg.Config{ConnectionString: cfg.DatabaseURL, MigrationsPath: "migrations"}, log); err != nil {
		return err
	}

	userStore := store.New(pool)
	registry := cfg.Registry()
	clients := make(map[string]oauth2x.Client, len(cfg.Clients))
	for id, c := range cfg.Clients {
		clients[id] = oauth2x.Client{ClientSecret: c.ClientSecret, RedirectURLs: c.RedirectURLs}
	}

	orchestrator := oauth2x.New(jwt, registry, userStore, clients)
	tokens := tokenapi.New(jwt, userStore, clients, cfg.Token.Duration)
	users := userapi.New(jwt, userStore)

	limitMiddleware := rateLimitMiddleware(ctx, log)

	r := router.New[*router.Context](
		router.WithLogger[*router.Context](log),
		router.WithErrorHandler[*router.Context](response.JSONErrorHandler[*router.Context]),
		router.WithMiddleware[*router.Context](
			middleware.RequestID[*router.Context](),
			middleware.ClientIP[*router.Context](),
			middleware.LoggingWithLogger[*router.Context](log),
			middleware.SecurityHeaders[*router.Context](),
			middleware.CORS[*router.Context](),
			middleware.BodyLimitWithSize[*router.Context](1<<20),
		),
	)

	r.Get("/healthz", healthcheck.Handler[*router.Context](log, pg.Healthcheck(pool)))
	r.Get("/key", users.Key())
	r.Get("/users/{id}", users.ByID())
	r.Get("/me", users.Me())

	r.With(limitMiddleware).Post("/token", tokens.Login())
	r.With(limitMiddleware).Post("/token/{user}", tokens.Register())

	for _, name := range []provider.Name{provider.Google, provider.Microsoft, provider.Facebook, provider.Twitter, provider.GitHub, provider.Discord} {
		if _, err := registry.Get(name); err != nil {
			continue
		}
		r.With(limitMiddleware).Get("/"+string(name), orchestrator.FirstLeg(name))
		r.Get("/"+string(name)+"-r", orchestrator.SecondLeg(name))
	}

	tlsConfig, err := resolveTLS(ctx, cfg)
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithLogger(log),
		server.WithShutdownTimeout(15 * time.Second),
	}
	if tlsConfig != nil {
		opts = append(opts, server.WithTLS(tlsConfig))
	}

	srv := server.New(addr(cfg.Port), opts...)
	return serve(ctx, srv, r, log)
}

// serve starts srv and blocks until ctx is canceled, then shuts down.
func serve(ctx context.Context, srv *server.Server, h http.Handler, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx, h)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return srv.Stop()
	case err := <-errCh:
		return err
	}
}

func addr(port uint16) string {
	return "127.0.0.1:" + strconv.Itoa(int(port))
}

func parseLevel(level string) *slog.Level {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	case "info":
		l = slog.LevelInfo
	default:
		return nil
	}
	return &l
}

func resolveTLS(ctx context.Context, cfg *config.Config) (*tls.Config, error) {
	if cfg.TLS == nil {
		return nil, nil
	}
	if cfg.TLS.AutoCert != nil {
		return tlsprovision.Obtain(ctx, *cfg.TLS.AutoCert)
	}
	cert, err := tls.LoadX509KeyPair(cfg.TLS.Cert, cfg.TLS.Key)
	if err != nil {
		return nil, err
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}, nil
}

// rateLimitMiddleware builds a Redis-backed, per-client-IP limiter for
// the first-leg redirect and token-exchange routes, from REDIS_URL. If
// no Redis is configured or reachable, it degrades to a no-op so a
// broker without abuse-resistance infrastructure still serves traffic.
func rateLimitMiddleware(ctx context.Context, log *slog.Logger) handler.Middleware[*router.Context] {
	noop := func(next handler.HandlerFunc[*router.Context]) handler.HandlerFunc[*router.Context] { return next }

	var redisCfg redis.Config
	if err := coreconfig.Load(&redisCfg); err != nil {
		log.Warn("rate limiting disabled: REDIS_URL not configured")
		return noop
	}

	client, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		log.Warn("rate limiting disabled: redis unavailable", logger.Error(err))
		return noop
	}

	rlStore := ratelimiter.NewRedisStore(client)
	bucket, err := ratelimiter.NewBucket(rlStore, ratelimiter.Config{Capacity: 30, RefillRate: 30, RefillInterval: time.Minute})
	if err != nil {
		log.Warn("rate limiting disabled: bucket config invalid", logger.Error(err))
		return noop
	}

	return middleware.RateLimit[*router.Context](middleware.RateLimitConfig{
		Limiter:    bucket,
		SetHeaders: true,
	})
}
