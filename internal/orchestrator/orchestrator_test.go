package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/feedpipe/catalog-worker/internal/checkpoint"
	"github.com/feedpipe/catalog-worker/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	db, err := checkpoint.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := checkpoint.NewSQLStore(db, "sqlite3")

	return &Orchestrator{
		Checkpoint:    store,
		ImportBucket:  "import",
		ExportsBucket: "exports",
	}
}

func TestInvokeUnknownStepIsError(t *testing.T) {
	o := newOrchestrator(t)
	resp := o.Invoke(context.Background(), schema.InvocationRequest{RunID: "run-1", Step: "not_a_real_step"})
	assert.Equal(t, schema.StatusError, resp.Status)
	assert.Equal(t, "failed", resp.StepStatus)
}

func TestInvokePassthroughStepsComplete(t *testing.T) {
	o := newOrchestrator(t)
	for _, step := range []string{"ean_mapping", "pricing", "override_products"} {
		resp := o.Invoke(context.Background(), schema.InvocationRequest{
			RunID: "run-2", Step: step, LockInvocationID: "lease-a",
		})
		assert.Equal(t, schema.StatusOK, resp.Status, step)
		assert.Equal(t, "completed", resp.StepStatus, step)
	}
}

func TestInvokeLeaseLostMapsToStableIdent(t *testing.T) {
	o := newOrchestrator(t)
	ctx := context.Background()

	resp := o.Invoke(ctx, schema.InvocationRequest{RunID: "run-3", Step: "ean_mapping", LockInvocationID: "lease-a"})
	require.Equal(t, schema.StatusOK, resp.Status)

	resp = o.Invoke(ctx, schema.InvocationRequest{RunID: "run-3", Step: "ean_mapping", LockInvocationID: "lease-b"})
	assert.Equal(t, schema.StatusError, resp.Status)
	assert.True(t, strings.HasPrefix(resp.Error, "lease_lost"), resp.Error)
}
