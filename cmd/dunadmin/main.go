package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dunvault/dunvault/cmd/dunadmin/cli"
	"github.com/dunvault/dunvault/internal/app"
	"github.com/dunvault/dunvault/internal/audit"
	"github.com/dunvault/dunvault/internal/diagnostics"
	"github.com/dunvault/dunvault/internal/platform/db"
	"github.com/dunvault/dunvault/internal/users"
	"github.com/dunvault/dunvault/internal/voters"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping dunadmin")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	backend := &backend{}
	root := cli.New(cli.Options{Version: buildVersion(), Backend: backend})
	err := root.ExecuteContext(ctx)
	backend.Close()
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "dunadmin: %s\n", describe(err))
		os.Exit(1)
	}
}

func buildVersion() string {
	v := version
	if commit != "" {
		v += " (" + commit + ")"
	}
	if date != "" {
		v += " " + date
	}
	return v
}

func describe(err error) string {
	var reason interface{ Reason() string }
	if errors.As(err, &reason) {
		return reason.Reason()
	}
	return err.Error()
}

// backend opens PostgreSQL and Redis on first use so that commands such as
// hash and version run without either.
type backend struct {
	once   sync.Once
	err    error
	cfg    *app.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	jobs   *cli.JobsCLI
}

func (b *backend) open(ctx context.Context) error {
	b.once.Do(func() {
		cfg, err := app.LoadConfig()
		if err != nil {
			b.err = fmt.Errorf("load config: %w", err)
			return
		}
		b.cfg = cfg
		b.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: 2, ApplicationName: "dunadmin"})
		if err != nil {
			b.err = err
			return
		}
		b.pool = pool
	})
	return b.err
}

func (b *backend) Users(ctx context.Context) (cli.UserAdmin, error) {
	if err := b.open(ctx); err != nil {
		return nil, err
	}
	trail := audit.NewTrail(audit.NewStore(b.pool), b.logger)
	return users.NewService(users.NewRepository(b.pool), nil, nil, trail, b.logger), nil
}

func (b *backend) Diagnostics(ctx context.Context) (cli.Reporter, error) {
	if err := b.open(ctx); err != nil {
		return nil, err
	}
	return diagnostics.NewService(diagnostics.NewPGSource(b.pool), b.logger), nil
}

func (b *backend) Importer(ctx context.Context) (cli.VoterImporter, error) {
	if err := b.open(ctx); err != nil {
		return nil, err
	}
	return voters.NewImporter(b.pool), nil
}

func (b *backend) Jobs(ctx context.Context) (*cli.JobsCLI, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if b.jobs == nil {
		b.jobs = cli.NewJobsCLI(cfg.RedisAddr)
	}
	return b.jobs, nil
}

func (b *backend) Close() {
	if b.jobs != nil {
		_ = b.jobs.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}
