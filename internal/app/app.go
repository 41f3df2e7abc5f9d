// Package app wires flixctl's components together from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alt-project/flixctl/internal/auth"
	"github.com/alt-project/flixctl/internal/config"
	"github.com/alt-project/flixctl/internal/domain"
	"github.com/alt-project/flixctl/internal/gateway"
	"github.com/alt-project/flixctl/internal/movies"
	"github.com/alt-project/flixctl/internal/querycache"
	"github.com/alt-project/flixctl/internal/token"
	"github.com/alt-project/flixctl/internal/tokenstore"
)

const redisPingTimeout = 3 * time.Second

// App holds the object graph for one process.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Store  domain.TokenStore
	Client *gateway.Client
	Cache  *querycache.Cache
	Auth   *auth.Machine
	Movies *movies.Service

	closers []func() error
}

// New builds the app. The caller must Close it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	store, closeStore, err := NewStore(ctx, cfg.Session, logger.With("component", "tokenstore"))
	if err != nil {
		return nil, err
	}
	a.Store = store
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	// Every request reads the token from the store, so a login in another shell is picked up.
	tokens := func(ctx context.Context) string {
		session, ok := store.Load(ctx)
		if !ok {
			return ""
		}
		return session.Token
	}

	a.Client, err = gateway.New(gateway.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		Burst:     cfg.API.Burst,
	}, tokens, logger.With("component", "gateway"))
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("creating gateway: %w", err)
	}

	a.Cache, err = querycache.New(querycache.Config{
		TTL:        cfg.Cache.TTL,
		MaxEntries: cfg.Cache.MaxEntries,
	}, logger.With("component", "querycache"))
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("creating query cache: %w", err)
	}

	a.Auth = auth.NewMachine(store, a.Client, token.NewClaimsDecoder(), logger.With("component", "auth"),
		auth.WithExpiryMargin(cfg.Session.ExpiryMargin),
		auth.WithDiscardStale(cfg.Auth.DiscardStaleResolutions),
	)
	a.Movies = movies.NewService(a.Client, a.Cache, logger.With("component", "movies"))

	logger.DebugContext(ctx, "app initialized",
		"base_url", cfg.API.BaseURL,
		"session_backend", cfg.Session.Backend,
		"cache_ttl", cfg.Cache.TTL)
	return a, nil
}

// NewStore opens the configured session backend. The returned closer may be nil.
func NewStore(ctx context.Context, cfg config.SessionConfig, logger *slog.Logger) (domain.TokenStore, func() error, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return tokenstore.NewFileStore(cfg.Path, logger), nil, nil
	case config.BackendMemory:
		return tokenstore.NewMemoryStore(), nil, nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("%w: redis session store at %s: %w", domain.ErrServiceUnavailable, cfg.RedisAddr, err)
		}
		return tokenstore.NewRedisStore(client, cfg.RedisKeyPrefix, logger), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown session backend %q", domain.ErrInvalidInput, cfg.Backend)
	}
}

// HandleUnauthorized logs the session out when err is an authorization failure from the service.
// It reports whether it did.
func (a *App) HandleUnauthorized(ctx context.Context, err error) bool {
	if !gateway.IsUnauthorized(err) {
		return false
	}
	a.Logger.InfoContext(ctx, "service rejected the session, logging out")
	a.Auth.Logout(ctx)
	a.Cache.Purge()
	return true
}

// Close releases backend connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
