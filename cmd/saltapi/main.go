package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saltastro/saltapi/internal/app"
	"github.com/saltastro/saltapi/internal/auth"
	"github.com/saltastro/saltapi/internal/observability"
	"github.com/saltastro/saltapi/internal/platform/cache"
	"github.com/saltastro/saltapi/internal/platform/db"
	"github.com/saltastro/saltapi/internal/proposal"
	"github.com/saltastro/saltapi/internal/rbac"
	"github.com/saltastro/saltapi/internal/token"
	"github.com/saltastro/saltapi/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	keys, err := token.LoadKeyMaterial(cfg.KeyConfig())
	if err != nil {
		logger.Error("load token keys", slog.Any("error", err))
		os.Exit(1)
	}
	codec := token.NewCodec(keys, nil)

	store, closeStore, err := openUserStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open user store", slog.String("store", cfg.UserStore), slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, proposal contacts are not cached", slog.Any("error", err))
	}
	defer closeRedis(redisClient, logger)

	metrics := observability.NewMetrics()
	resolver := rbac.NewSettingsResolver(store, logger)
	contacts := users.NewContactsCache(store, redisClient, cfg.ContactsCache, logger)
	policy := rbac.NewPolicy(users.NewDelegatedAuthority(contacts), metrics)
	rbacMiddleware := rbac.Middleware{Policy: policy, Logger: logger}

	authService := auth.NewService(store, resolver, codec, auth.TokenPolicy{
		Algorithm: cfg.Algorithm(),
		Lifetime:  cfg.TokenTTL,
	})
	gate := auth.NewGate(codec, store, resolver, cfg.Algorithm(), logger, metrics)
	authHandler := auth.NewHandler(logger, authService, codec, rbacMiddleware, cfg.LoginRateLimit)

	usersHandler := users.NewHandler(logger, users.NewService(store), rbacMiddleware)

	var proposalHandler *proposal.Handler
	if cfg.StorageServiceURL != "" {
		storage := &proposal.StorageClient{
			Endpoint: cfg.StorageServiceURL,
			Client:   &http.Client{Timeout: cfg.AppRequestTimeout},
			Issuer:   codec,
		}
		proposalHandler = proposal.NewHandler(logger, storage, contacts, contacts, rbacMiddleware)
	} else {
		logger.Warn("STORAGE_SERVICE_URL not set, proposal routes disabled")
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Gate:               gate,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		ProposalHandler:    proposalHandler,
		PermissionsHandler: rbac.NewPermissionsHandler(rbacMiddleware),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("token_algorithm", string(cfg.Algorithm())),
			slog.Duration("token_ttl", cfg.TokenTTL))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func openUserStore(ctx context.Context, cfg *app.Config, logger *slog.Logger) (users.Store, func(), error) {
	if cfg.UserStore == app.UserStoreMemory {
		store, err := users.LoadMemoryStore(cfg.UserSeedFile)
		if err != nil {
			return nil, nil, err
		}
		logger.Warn("using in-memory user store", slog.String("seed_file", cfg.UserSeedFile))
		return store, func() {}, nil
	}
	pool, err := db.New(ctx, cfg.PGDSN, 0)
	if err != nil {
		return nil, nil, err
	}
	return users.NewRepository(pool), pool.Close, nil
}

func closeRedis(client *redis.Client, logger *slog.Logger) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		logger.Warn("redis close", slog.Any("error", err))
	}
}
