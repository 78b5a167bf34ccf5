// Package orchestrator implements the single invocation entry point
// spec.md §6 describes: load the checkpoint for a run, dispatch on the
// requested step, do a bounded amount of work, write back a new
// checkpoint, and report a status string. One HTTP handler calls
// Orchestrator.Invoke per request; everything about retry policy and
// re-invocation cadence belongs to the external orchestrator, not here.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/feedpipe/catalog-worker/internal/checkpoint"
	"github.com/feedpipe/catalog-worker/internal/marketplace"
	"github.com/feedpipe/catalog-worker/internal/pipeline"
	"github.com/feedpipe/catalog-worker/internal/storage"
	"github.com/feedpipe/catalog-worker/pkg/log"
	"github.com/feedpipe/catalog-worker/pkg/schema"
)

// Orchestrator wires the checkpoint store and the two object stores
// (the read-only import bucket and the read-write exports bucket)
// into the per-step handlers.
type Orchestrator struct {
	Checkpoint    checkpoint.Store
	Objects       storage.ObjectStore
	ImportBucket  string
	ExportsBucket string
	Budget        time.Duration
}

// Invoke dispatches one request. It never returns a Go error: every
// failure, including an unknown step, is folded into the response
// body per spec.md §6's contract. Each dispatched invocation first runs
// the stock-resolution golden self-check; a failure is logged and does
// not abort the step.
func (o *Orchestrator) Invoke(ctx context.Context, req schema.InvocationRequest) schema.InvocationResponse {
	step, err := pipeline.ParseStep(req.Step)
	if err != nil {
		return schema.InvocationResponse{Status: schema.StatusError, StepStatus: "failed", Error: err.Error()}
	}

	if err := marketplace.SelfCheck(); err != nil {
		log.Event(req.RunID, "error", "stock-resolution golden self-check failed", map[string]interface{}{"error": err.Error()})
	}

	start := time.Now()
	budget := o.Budget
	if budget == 0 {
		budget = schema.InvocationBudget
	}
	deadline := start.Add(budget)

	var stepStatus string
	var handlerErr error

	switch step {
	case pipeline.StepParseMerge:
		stepStatus, handlerErr = o.runParseMerge(ctx, req, deadline)
	case pipeline.StepExportEanXlsx, pipeline.StepExportMediaworld, pipeline.StepExportEprice, pipeline.StepExportAmazon:
		stepStatus, handlerErr = o.runExport(ctx, req, step)
	case pipeline.StepComputeTemplateChecksums:
		stepStatus, handlerErr = o.runComputeTemplateChecksums(ctx, req)
	case pipeline.StepExportEan:
		stepStatus, handlerErr = o.runExportEan(ctx, req)
	case pipeline.StepEanMapping, pipeline.StepPricing, pipeline.StepOverrideProducts:
		stepStatus, handlerErr = o.runPassthroughStep(ctx, req, step)
	}

	if handlerErr != nil {
		return o.fail(ctx, req, step, handlerErr)
	}
	return schema.InvocationResponse{Status: schema.StatusOK, StepStatus: stepStatus}
}

func (o *Orchestrator) fail(ctx context.Context, req schema.InvocationRequest, step pipeline.Step, err error) schema.InvocationResponse {
	if errors.Is(err, checkpoint.ErrLockLost) {
		// The run was reassigned to another invocation; writing
		// anything back to the checkpoint here would race with
		// whoever holds the lease now, so this returns without
		// touching it.
		leaseErr := pipeline.ErrLeaseLost(err.Error())
		return schema.InvocationResponse{Status: schema.StatusError, StepStatus: "failed", Error: leaseErr.Error()}
	}

	if catErr, ok := pipeline.AsCategorical(err); ok {
		if catErr.Category == pipeline.CategoryLeaseLost {
			return schema.InvocationResponse{Status: schema.StatusError, StepStatus: "failed", Error: catErr.Error()}
		}
		if !catErr.Fatal() {
			// Transient: the invocation simply ran out of budget; the
			// checkpoint already reflects as much progress as was made.
			return schema.InvocationResponse{Status: schema.StatusOK, StepStatus: "in_progress"}
		}
	}

	log.Event(req.RunID, "error", "step failed", map[string]interface{}{
		"step":  string(step),
		"error": err.Error(),
	})
	_ = o.Checkpoint.Merge(ctx, req.RunID, req.LockInvocationID, map[string]interface{}{
		"subPhase":  schema.SubPhaseFailed,
		"lastError": err.Error(),
	})
	return schema.InvocationResponse{Status: schema.StatusError, StepStatus: "failed", Error: err.Error()}
}

// runPassthroughStep handles the three steps spec.md §1 explicitly
// calls out as sharing the invocation model but containing "no hard
// engineering": ean_mapping, pricing, override_products. They are out
// of the core's scope; the orchestrator only needs to record that the
// step ran and report completion.
func (o *Orchestrator) runPassthroughStep(ctx context.Context, req schema.InvocationRequest, step pipeline.Step) (string, error) {
	if err := o.Checkpoint.SetCurrentStep(ctx, req.RunID, req.LockInvocationID, string(step)); err != nil {
		return "", err
	}
	log.Event(req.RunID, "info", "passthrough step completed", map[string]interface{}{"step": string(step)})
	return "completed", nil
}
