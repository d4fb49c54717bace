package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Beginner starts transactions. *pgxpool.Pool and *pgx.Conn satisfy it.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// WithSnapshot runs fn inside a read-only RepeatableRead transaction so that
// every query in fn sees the same snapshot.
func WithSnapshot(ctx context.Context, conn Beginner, fn func(DBTX) error) error {
	return withTx(ctx, conn, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
}

// WithTx runs fn inside a read-write ReadCommitted transaction.
func WithTx(ctx context.Context, conn Beginner, fn func(DBTX) error) error {
	return withTx(ctx, conn, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

func withTx(ctx context.Context, conn Beginner, opts pgx.TxOptions, fn func(DBTX) error) error {
	tx, err := conn.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}
