package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neerajsamtani/ledgershift/pkg/models"
)

func TestNilEmitterIsNoop(t *testing.T) {
	var e *Emitter
	ctx := context.Background()

	assert.NoError(t, e.EmitRecordMigrated(ctx, models.EntityCategory, "cat_01", "abc"))
	assert.NoError(t, e.EmitDualWriteFailed(ctx, &models.DualWriteFailure{}))
	assert.NoError(t, e.EmitPhaseCompleted(ctx, &models.PhaseReport{Phase: "reference"}))
	assert.NoError(t, e.EmitReconcileCompleted(ctx, &models.ReconciliationReport{}))
}
