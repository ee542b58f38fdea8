package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/fleetsight/pulse/core/db"
	"github.com/fleetsight/pulse/internal/store"
)

// StoreProvider exposes only the stores needed by a transactional operation.
type StoreProvider interface {
	Events() store.EventStore
}

// TxRunner runs functions within a transaction and provides stores bound to
// that transaction. The ingest engine depends on it so the per-row fallback
// can open a fresh transaction for every attempt without nesting inside a
// caller-owned one.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(sp StoreProvider) error) error
}

type dbTxRunner struct {
	db *db.DB
}

// NewTxRunner builds a TxRunner backed by the core DB.
func NewTxRunner(database *db.DB) TxRunner {
	return &dbTxRunner{db: database}
}

func (r *dbTxRunner) WithTx(ctx context.Context, fn func(sp StoreProvider) error) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(store.NewStores(tx))
	})
}
