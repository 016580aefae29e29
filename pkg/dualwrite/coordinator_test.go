package dualwrite

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neerajsamtani/ledgershift/pkg/database"
	apperrors "github.com/neerajsamtani/ledgershift/pkg/errors"
	"github.com/neerajsamtani/ledgershift/pkg/logging"
	"github.com/neerajsamtani/ledgershift/pkg/models"
)

type fakeTx struct {
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) IsOpen() bool { return !t.committed && !t.rolledBack }

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.committed {
		return nil
	}
	t.rolledBack = true
	return nil
}

func (t *fakeTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}

func (t *fakeTx) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return sql.ErrNoRows
}

func (t *fakeTx) NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error) {
	return nil, nil
}

func (t *fakeTx) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}

type fakeDB struct {
	beginErr error
	txs      []*fakeTx
}

func (db *fakeDB) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error) {
	if db.beginErr != nil {
		return ctx, nil, db.beginErr
	}
	tx := &fakeTx{}
	db.txs = append(db.txs, tx)
	return ctx, tx, nil
}

func (db *fakeDB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, errors.New("not supported")
}
func (db *fakeDB) Close() error                        { return nil }
func (db *fakeDB) PingContext(ctx context.Context) error { return nil }
func (db *fakeDB) Unsafe() *sqlx.DB                    { return nil }
func (db *fakeDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}
func (db *fakeDB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return sql.ErrNoRows
}
func (db *fakeDB) NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error) {
	return nil, nil
}
func (db *fakeDB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}

type fakeRecorder struct {
	failures []*models.DualWriteFailure
	err      error
}

func (r *fakeRecorder) Record(ctx context.Context, failure *models.DualWriteFailure) error {
	r.failures = append(r.failures, failure)
	return r.err
}

type fakeFailureEmitter struct {
	failures []*models.DualWriteFailure
}

func (e *fakeFailureEmitter) EmitDualWriteFailed(ctx context.Context, failure *models.DualWriteFailure) error {
	e.failures = append(e.failures, failure)
	return nil
}

func TestCoordinatorExecuteBothLegsSucceed(t *testing.T) {
	db := &fakeDB{}
	recorder := &fakeRecorder{}
	coordinator := NewCoordinator(db, recorder, nil, logging.NewNoopLogger())

	outcome, err := coordinator.Execute(context.Background(), "create_category", models.EntityCategory, "", true,
		func(ctx context.Context) (any, error) {
			return "legacy-result", nil
		},
		func(ctx context.Context, legacyResult any) (any, error) {
			assert.Equal(t, "legacy-result", legacyResult)
			return "new-result", nil
		},
	)

	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, "legacy-result", outcome.LegacyResult)
	assert.Equal(t, "new-result", outcome.NewResult)
	assert.NoError(t, outcome.LegacyErr)
	assert.NoError(t, outcome.NewErr)
	require.Len(t, db.txs, 1)
	assert.True(t, db.txs[0].committed)
	assert.Empty(t, recorder.failures)
}

func TestCoordinatorExecuteLegacyFailureAborts(t *testing.T) {
	db := &fakeDB{}
	recorder := &fakeRecorder{}
	coordinator := NewCoordinator(db, recorder, nil, logging.NewNoopLogger())

	newLegCalled := false
	outcome, err := coordinator.Execute(context.Background(), "create_category", models.EntityCategory, "", false,
		func(ctx context.Context) (any, error) {
			return nil, errors.New("legacy store down")
		},
		func(ctx context.Context, legacyResult any) (any, error) {
			newLegCalled = true
			return nil, nil
		},
	)

	require.Error(t, err)
	assert.True(t, apperrors.IsPrimaryWriteFailure(err))
	assert.False(t, outcome.Success)
	assert.Error(t, outcome.LegacyErr)
	assert.False(t, newLegCalled, "new store must not be touched when the legacy write fails")
	assert.Empty(t, db.txs)
	assert.Empty(t, recorder.failures, "a primary failure is not a dual-write divergence")
}

func TestCoordinatorExecuteCriticalNewStoreFailure(t *testing.T) {
	db := &fakeDB{}
	recorder := &fakeRecorder{}
	emitter := &fakeFailureEmitter{}
	coordinator := NewCoordinator(db, recorder, emitter, logging.NewNoopLogger())

	outcome, err := coordinator.Execute(context.Background(), "create_category", models.EntityCategory, "cat123", true,
		func(ctx context.Context) (any, error) {
			return map[string]any{"id": "categories:cat123"}, nil
		},
		func(ctx context.Context, legacyResult any) (any, error) {
			return nil, errors.New("constraint violation")
		},
	)

	require.Error(t, err)
	assert.True(t, apperrors.IsSecondaryWriteFailure(err))
	assert.False(t, outcome.Success)
	assert.NoError(t, outcome.LegacyErr)
	assert.Error(t, outcome.NewErr)

	require.Len(t, db.txs, 1)
	assert.True(t, db.txs[0].rolledBack)

	require.Len(t, recorder.failures, 1)
	failure := recorder.failures[0]
	assert.Equal(t, "create_category", failure.Operation)
	assert.Equal(t, "categories", failure.EntityType)
	require.NotNil(t, failure.LegacyID)
	assert.Equal(t, "cat123", *failure.LegacyID)
	assert.NotEmpty(t, failure.LegacyResult)
	assert.Len(t, emitter.failures, 1)
}

func TestCoordinatorExecuteNonCriticalNewStoreFailure(t *testing.T) {
	db := &fakeDB{}
	recorder := &fakeRecorder{}
	coordinator := NewCoordinator(db, recorder, nil, logging.NewNoopLogger())

	outcome, err := coordinator.Execute(context.Background(), "create_transaction", models.EntityTransaction, "", false,
		func(ctx context.Context) (any, error) {
			return "legacy-ok", nil
		},
		func(ctx context.Context, legacyResult any) (any, error) {
			return nil, errors.New("connection refused")
		},
	)

	require.NoError(t, err, "non-critical secondary failure must not fail the caller")
	assert.True(t, outcome.Success)
	assert.Error(t, outcome.NewErr, "the secondary outcome stays inspectable")
	require.Len(t, recorder.failures, 1)
	assert.Equal(t, "transactions", recorder.failures[0].EntityType)
}

func TestCoordinatorExecuteRecorderFailureDoesNotMaskOutcome(t *testing.T) {
	db := &fakeDB{}
	recorder := &fakeRecorder{err: errors.New("failures table unavailable")}
	coordinator := NewCoordinator(db, recorder, nil, logging.NewNoopLogger())

	outcome, err := coordinator.Execute(context.Background(), "create_line_item", models.EntityLineItem, "", false,
		func(ctx context.Context) (any, error) { return nil, nil },
		func(ctx context.Context, legacyResult any) (any, error) {
			return nil, errors.New("insert failed")
		},
	)

	require.NoError(t, err)
	assert.True(t, outcome.Success)
}

func TestCoordinatorExecuteCommitFailureIsNewStoreFailure(t *testing.T) {
	db := &fakeDB{}
	recorder := &fakeRecorder{}
	coordinator := NewCoordinator(db, recorder, nil, logging.NewNoopLogger())

	commitErr := errors.New("serialization failure")
	outcome, err := coordinator.Execute(context.Background(), "create_event", models.EntityEvent, "", true,
		func(ctx context.Context) (any, error) { return nil, nil },
		func(ctx context.Context, legacyResult any) (any, error) {
			db.txs[0].commitErr = commitErr
			return "new-result", nil
		},
	)

	require.Error(t, err)
	assert.True(t, apperrors.IsSecondaryWriteFailure(err))
	assert.False(t, outcome.Success)
	assert.ErrorIs(t, outcome.NewErr, commitErr)
}
