package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dunvault/dunvault/internal/app"
	"github.com/dunvault/dunvault/internal/audit"
	audithttp "github.com/dunvault/dunvault/internal/audit/http"
	"github.com/dunvault/dunvault/internal/auth"
	"github.com/dunvault/dunvault/internal/authz"
	"github.com/dunvault/dunvault/internal/diagnostics"
	"github.com/dunvault/dunvault/internal/observability"
	"github.com/dunvault/dunvault/internal/password"
	"github.com/dunvault/dunvault/internal/platform/cache"
	"github.com/dunvault/dunvault/internal/platform/db"
	"github.com/dunvault/dunvault/internal/rbac"
	"github.com/dunvault/dunvault/internal/token"
	"github.com/dunvault/dunvault/internal/users"
	"github.com/dunvault/dunvault/internal/voters"
	"github.com/dunvault/dunvault/jobs"
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

	if err := rbac.Validate(&rbac.DefaultTable); err != nil {
		logger.Error("permission table", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns, ApplicationName: "dunvault"})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.Open(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		if !errors.Is(err, cache.ErrUnreachable) {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	key := []byte(cfg.TokenSecret)
	if len(key) == 0 {
		key, err = token.GenerateKey()
		if err != nil {
			logger.Error("generate signing key", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Warn("TOKEN_SECRET not set; using a per-process signing key, all tokens become invalid on restart")
	}
	codec, err := token.NewCodec(key)
	if err != nil {
		logger.Error("token codec", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	authorizer := authz.NewAuthorizer(&rbac.DefaultTable, metrics)
	guard := authz.Middleware{Authorizer: authorizer, Logger: logger}
	hasher := password.NewHasher()

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	var recorder audit.Recorder = audit.NewStore(dbpool)
	if cfg.AuditAsync {
		jobClient, err := jobs.NewClient(redisOpt)
		if err != nil {
			logger.Error("jobs client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		recorder = audit.NewQueueRecorder(jobClient.Asynq(), jobs.QueueAudit)
	}
	trail := audit.NewTrail(recorder, logger)

	authService := auth.NewService(auth.NewRepository(dbpool), hasher, codec, trail, logger)
	authHandler := auth.NewHandler(logger, authService)

	statsCache := voters.NewStatsCache(redisClient, cfg.StatsCacheTTL)
	votersService := voters.NewService(voters.NewRepository(dbpool), authorizer, statsCache, trail, logger)
	votersHandler := voters.NewHandler(logger, votersService)

	auditService := audit.NewService(audit.NewStore(dbpool), authorizer)
	auditHandler := audithttp.NewHandler(logger, auditService)

	usersService := users.NewService(users.NewRepository(dbpool), hasher, authorizer, trail, logger)
	usersHandler := users.NewHandler(logger, usersService, guard)

	diagnosticsService := diagnostics.NewService(diagnostics.NewPGSource(dbpool), logger)
	diagnosticsHandler := diagnostics.NewHandler(logger, diagnosticsService, guard)

	inspector := asynq.NewInspector(redisOpt)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Metrics:            metrics,
		AuthHandler:        authHandler,
		VotersHandler:      votersHandler,
		AuditHandler:       auditHandler,
		UsersHandler:       usersHandler,
		DiagnosticsHandler: diagnosticsHandler,
		PermissionsHandler: rbac.NewPermissionsHandler(logger, &rbac.DefaultTable, authz.RoleOf),
		JobHandler:         jobHandler,
		Readiness: map[string]app.Pinger{
			"postgres": app.PingFunc(dbpool.Ping),
			"redis": app.PingFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}),
		},
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
