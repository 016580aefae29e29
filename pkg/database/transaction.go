package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
)

type TxContextKey string

const txStatusKey = TxContextKey("txStatus")
const txKey = TxContextKey("tx-context-key")

// Tx is the subset of sqlx.Tx the service depends on. Commit and Rollback
// respect context-carried transactions: a scope that joined an outer
// transaction gets a handle whose Commit and Rollback no-op, so only the
// scope that began the transaction can close it.
type Tx interface {
	IsOpen() bool
	Commit(ctx context.Context) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	Rollback(ctx context.Context) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Querier is the read/write surface shared by DB and Tx. Repository reads
// go through whichever the context supplies.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Transaction wraps sqlx.Tx for the scope that owns it.
type Transaction struct {
	*sqlx.Tx
	logger   ectologger.Logger
	isClosed bool
}

func NewTx(tx *sqlx.Tx, logger ectologger.Logger) Tx {
	return &Transaction{
		Tx:       tx,
		logger:   logger,
		isClosed: false,
	}
}

// joinedTx is the handle a nested scope gets when it joins an open
// context-carried transaction. Statements run on the shared transaction;
// Commit and Rollback are deferred to the owning scope.
type joinedTx struct {
	Tx
}

func (j joinedTx) Commit(ctx context.Context) error   { return nil }
func (j joinedTx) Rollback(ctx context.Context) error { return nil }

// TxFromContext returns the open transaction carried by the context.
func TxFromContext(ctx context.Context) (Tx, bool) {
	tx, ok := ctx.Value(txKey).(Tx)
	if !ok || tx == nil || !tx.IsOpen() {
		return nil, false
	}
	status, ok := ctx.Value(txStatusKey).(string)
	if !ok || status != "open" {
		return nil, false
	}
	return tx, true
}

// Reader returns the context's open transaction when there is one, so
// reads inside a transactional scope see its uncommitted writes, and the
// plain pool otherwise.
func Reader(ctx context.Context, db DB) Querier {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return db
}

// GetTx returns a handle on the transaction carried by the context when one
// is open, otherwise it begins a new one and stores it on the returned
// context. Joined handles cannot close the transaction; the scope that
// began it commits or rolls back for everyone.
func GetTx(ctx context.Context, logger ectologger.Logger, db DB, opts *sql.TxOptions) (context.Context, Tx, error) {
	if ctxTx, ok := TxFromContext(ctx); ok {
		return ctx, joinedTx{ctxTx}, nil
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Errorf("error while beginning transaction")
		return ctx, nil, fmt.Errorf("error while beginning transaction")
	}

	newTx := NewTx(tx, logger)

	ctx = context.WithValue(ctx, txStatusKey, "open")
	ctx = context.WithValue(ctx, txKey, newTx)
	return ctx, newTx, nil
}

func (t *Transaction) IsOpen() bool {
	return !t.isClosed
}

func (t *Transaction) Rollback(ctx context.Context) error {
	if t.isClosed {
		return nil // do nothing if already committed
	}

	err := t.Tx.Rollback()
	if err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while rolling back transaction")
		return fmt.Errorf("error while rolling back transaction")
	}

	t.isClosed = true
	return nil
}

func (t *Transaction) Commit(ctx context.Context) error {
	if t.isClosed {
		return nil // do nothing if already committed
	}

	err := t.Tx.Commit()
	if err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while committing transaction")
		return fmt.Errorf("error while committing transaction")
	}

	t.isClosed = true

	return nil
}
