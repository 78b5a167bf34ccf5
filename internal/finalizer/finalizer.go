// Package finalizer concatenates the chunker's numbered output chunks
// into the canonical product table, across as many invocations as it
// takes to stay under the per-invocation wall-clock budget. Grounded on
// the teacher's internal/taskManager/commitJobService.go batching
// pattern (accumulate, flush on a bound, remember where you left off).
package finalizer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/feedpipe/catalog-worker/internal/pipeline"
	"github.com/feedpipe/catalog-worker/internal/storage"
	"github.com/feedpipe/catalog-worker/pkg/log"
	"github.com/feedpipe/catalog-worker/pkg/schema"
)

const (
	exportsPrefix = "_pipeline"
)

// ChunkPath, PartialPath, and friends are exported so the orchestrator
// can write to the same persistent-state layout (spec.md §6) the
// finalizer later reads from.

func ChunkPath(runID string, idx int64) string {
	return fmt.Sprintf("%s/%s/parse_merge_chunks/%d.tsv", exportsPrefix, runID, idx)
}

func PartialPath(runID string) string {
	return fmt.Sprintf("%s/%s/parse_merge_chunks/finalize_partial.tsv", exportsPrefix, runID)
}

func ProductTablePath(runID string) string {
	return fmt.Sprintf("%s/%s/products.tsv", exportsPrefix, runID)
}

func MaterialMetaPath(runID string) string {
	return fmt.Sprintf("%s/%s/material_meta.json", exportsPrefix, runID)
}

func StockIndexPath(runID string) string {
	return fmt.Sprintf("%s/%s/stock_index.json", exportsPrefix, runID)
}

func PriceIndexPath(runID string) string {
	return fmt.Sprintf("%s/%s/price_index.json", exportsPrefix, runID)
}

// Result is the outcome of one finalizing invocation.
type Result struct {
	NextSubPhase       schema.SubPhase
	NextFinalizeChunk  int64
}

// Run executes the finalizer's per-invocation protocol: on entry, load
// or start the partial accumulator; append chunks in order; yield once
// the wall-clock budget is spent; on completion, upload the final
// table and delete every transient artifact.
func Run(ctx context.Context, store storage.ObjectStore, bucket, runID string, cp *schema.ParseMergeCheckpoint, start time.Time, budget time.Duration) (*Result, error) {
	if cp.ChunkCount > schema.MaxFinalizeChunks {
		return nil, pipeline.ErrChunkCountExceeded(fmt.Sprintf("%d chunks exceeds %d", cp.ChunkCount, schema.MaxFinalizeChunks))
	}

	partial, err := loadOrInitPartial(ctx, store, bucket, runID, cp)
	if err != nil {
		return nil, err
	}

	idx := cp.FinalizeChunkIndex
	for idx < cp.ChunkCount {
		chunk, err := store.Get(ctx, bucket, ChunkPath(runID, idx))
		if err != nil {
			return nil, pipeline.ErrArtifactMissing(fmt.Sprintf("chunk %d", idx))
		}
		partial.Write(chunk)
		idx++

		if int64(partial.Len()) > schema.MaxProductTableBytes {
			return nil, pipeline.ErrProductTableTooLarge(fmt.Sprintf("%d bytes exceeds %d", partial.Len(), schema.MaxProductTableBytes))
		}

		if time.Since(start) > budget {
			if err := store.Put(ctx, bucket, PartialPath(runID), partial.Bytes(), "text/tab-separated-values"); err != nil {
				return nil, err
			}
			log.Debugf("finalizer: run %s yielding at chunk %d/%d", runID, idx, cp.ChunkCount)
			return &Result{NextSubPhase: schema.SubPhaseFinalizing, NextFinalizeChunk: idx}, nil
		}
	}

	if err := store.Put(ctx, bucket, ProductTablePath(runID), partial.Bytes(), "text/tab-separated-values"); err != nil {
		return nil, err
	}

	cleanupTransientArtifacts(ctx, store, bucket, runID, cp.ChunkCount)

	return &Result{NextSubPhase: schema.SubPhaseCompleted, NextFinalizeChunk: idx}, nil
}

func loadOrInitPartial(ctx context.Context, store storage.ObjectStore, bucket, runID string, cp *schema.ParseMergeCheckpoint) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}
	if cp.FinalizeChunkIndex == 0 {
		buf.WriteString(schema.ProductTableHeader)
		buf.WriteByte('\n')
		return buf, nil
	}

	existing, err := store.Get(ctx, bucket, PartialPath(runID))
	if err != nil {
		return nil, pipeline.ErrArtifactMissing("finalize partial")
	}
	buf.Write(existing)
	return buf, nil
}

func cleanupTransientArtifacts(ctx context.Context, store storage.ObjectStore, bucket, runID string, chunkCount int64) {
	_ = store.Delete(ctx, bucket, StockIndexPath(runID))
	_ = store.Delete(ctx, bucket, PriceIndexPath(runID))
	_ = store.Delete(ctx, bucket, MaterialMetaPath(runID))
	_ = store.Delete(ctx, bucket, PartialPath(runID))
	for i := int64(0); i < chunkCount; i++ {
		_ = store.Delete(ctx, bucket, ChunkPath(runID, i))
	}
}
