package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/feedpipe/catalog-worker/internal/finalizer"
	"github.com/feedpipe/catalog-worker/internal/indexbuilder"
	"github.com/feedpipe/catalog-worker/internal/pipeline"
	"github.com/feedpipe/catalog-worker/internal/rangereader"
	"github.com/feedpipe/catalog-worker/internal/storage"
	"github.com/feedpipe/catalog-worker/pkg/log"
	"github.com/feedpipe/catalog-worker/pkg/schema"
)

const (
	materialPrefix = "material/"
	stockPrefix    = "stock/"
	pricePrefix    = "price/"
)

// runParseMerge advances the parse-merge checkpoint's sub-phase
// machine by one bounded amount of work, per spec.md §4.2-§4.4's
// dependency order: stock index -> price index -> material header
// probe -> chunking -> finalizing.
func (o *Orchestrator) runParseMerge(ctx context.Context, req schema.InvocationRequest, deadline time.Time) (string, error) {
	lease := req.LockInvocationID
	cp, err := o.Checkpoint.Load(ctx, req.RunID)
	if err != nil {
		return "", err
	}

	if cp.SubPhase.Terminal() {
		return string(cp.SubPhase), nil
	}

	if err := o.Checkpoint.SetCurrentStep(ctx, req.RunID, lease, string(pipeline.StepParseMerge)); err != nil {
		return "", err
	}

	switch cp.SubPhase {
	case schema.SubPhasePending:
		return o.stepBuildStockIndex(ctx, req, cp)
	case schema.SubPhaseBuildingStockIndex:
		return o.stepBuildStockIndex(ctx, req, cp)
	case schema.SubPhaseBuildingPriceIndex:
		return o.stepBuildPriceIndex(ctx, req, cp)
	case schema.SubPhasePreparingMaterial:
		return o.stepPrepareMaterial(ctx, req, cp)
	case schema.SubPhaseInProgress:
		return o.stepChunk(ctx, req, cp, deadline)
	case schema.SubPhaseFinalizing:
		return o.stepFinalize(ctx, req, cp, deadline)
	default:
		return "", fmt.Errorf("orchestrator: unreachable sub-phase %q", cp.SubPhase)
	}
}

func (o *Orchestrator) stepBuildStockIndex(ctx context.Context, req schema.InvocationRequest, cp *schema.ParseMergeCheckpoint) (string, error) {
	path, err := latestUnder(ctx, o.Objects, o.ImportBucket, stockPrefix)
	if err != nil {
		return "", pipeline.ErrArtifactMissing("stock feed: " + err.Error())
	}
	data, err := o.Objects.Get(ctx, o.ImportBucket, path)
	if err != nil {
		return "", pipeline.ErrArtifactMissing("stock feed download: " + err.Error())
	}

	idx, invalid, err := indexbuilder.BuildStockIndex(data)
	if err != nil {
		return "", err
	}
	if err := putJSON(ctx, o.Objects, o.ExportsBucket, finalizer.StockIndexPath(req.RunID), idx); err != nil {
		return "", err
	}

	log.Event(req.RunID, "info", "stock index built", map[string]interface{}{"invalidCount": invalid, "entries": len(idx)})

	if err := o.Checkpoint.Merge(ctx, req.RunID, req.LockInvocationID, map[string]interface{}{
		"subPhase": schema.SubPhaseBuildingPriceIndex,
	}); err != nil {
		return "", err
	}
	return "in_progress", nil
}

func (o *Orchestrator) stepBuildPriceIndex(ctx context.Context, req schema.InvocationRequest, cp *schema.ParseMergeCheckpoint) (string, error) {
	path, err := latestUnder(ctx, o.Objects, o.ImportBucket, pricePrefix)
	if err != nil {
		return "", pipeline.ErrArtifactMissing("price feed: " + err.Error())
	}
	data, err := o.Objects.Get(ctx, o.ImportBucket, path)
	if err != nil {
		return "", pipeline.ErrArtifactMissing("price feed download: " + err.Error())
	}

	idx, err := indexbuilder.BuildPriceIndex(data)
	if err != nil {
		return "", err
	}
	if err := putJSON(ctx, o.Objects, o.ExportsBucket, finalizer.PriceIndexPath(req.RunID), idx); err != nil {
		return "", err
	}

	log.Event(req.RunID, "info", "price index built", map[string]interface{}{"entries": len(idx)})

	if err := o.Checkpoint.Merge(ctx, req.RunID, req.LockInvocationID, map[string]interface{}{
		"subPhase": schema.SubPhasePreparingMaterial,
	}); err != nil {
		return "", err
	}
	return "in_progress", nil
}

func (o *Orchestrator) stepPrepareMaterial(ctx context.Context, req schema.InvocationRequest, cp *schema.ParseMergeCheckpoint) (string, error) {
	path, err := latestUnder(ctx, o.Objects, o.ImportBucket, materialPrefix)
	if err != nil {
		return "", pipeline.ErrArtifactMissing("material feed: " + err.Error())
	}

	meta, err := indexbuilder.ProbeMaterialHeader(ctx, o.Objects, o.ImportBucket, path)
	if err != nil {
		return "", err
	}
	if err := putJSON(ctx, o.Objects, o.ExportsBucket, finalizer.MaterialMetaPath(req.RunID), meta); err != nil {
		return "", err
	}

	log.Event(req.RunID, "info", "material header probed", map[string]interface{}{
		"totalBytes": meta.TotalBytes, "headerEnd": meta.HeaderEndOffset,
	})

	if err := o.Checkpoint.Merge(ctx, req.RunID, req.LockInvocationID, map[string]interface{}{
		"subPhase":   schema.SubPhaseInProgress,
		"byteCursor": meta.HeaderEndOffset,
		"totalBytes": meta.TotalBytes,
		"startedAt":  time.Now(),
	}); err != nil {
		return "", err
	}
	return "in_progress", nil
}

func (o *Orchestrator) stepChunk(ctx context.Context, req schema.InvocationRequest, cp *schema.ParseMergeCheckpoint, deadline time.Time) (string, error) {
	meta, err := loadMaterialMeta(ctx, o.Objects, o.ExportsBucket, req.RunID)
	if err != nil {
		return "", err
	}
	idx, err := loadIndices(ctx, o.Objects, o.ExportsBucket, req.RunID)
	if err != nil {
		return "", err
	}

	for time.Now().Before(deadline) {
		res, err := rangereader.Advance(ctx, o.Objects, meta, cp, idx)
		if err != nil {
			return "", err
		}

		patch := map[string]interface{}{
			"subPhase":           res.NextSubPhase,
			"byteCursor":         res.NewCursor,
			"carryBytes":         res.NewCarry,
			"skips":              cp.Skips.Add(res.SkipDelta),
			"productCount":       cp.ProductCount + res.ProductsDelta,
			"materialChunkCount": cp.MaterialChunkCount + 1,
		}

		if res.ChunkWritten {
			chunkIdx := cp.ChunkCount
			if err := o.Objects.Put(ctx, o.ExportsBucket, finalizer.ChunkPath(req.RunID, chunkIdx), res.ChunkBody, "text/tab-separated-values"); err != nil {
				return "", err
			}
			patch["chunkCount"] = chunkIdx + 1
		}

		if err := o.Checkpoint.Merge(ctx, req.RunID, req.LockInvocationID, patch); err != nil {
			return "", err
		}

		if res.NextSubPhase == schema.SubPhaseFinalizing {
			return "finalizing", nil
		}

		cp.ByteCursor = res.NewCursor
		cp.CarryBytes = res.NewCarry
		cp.Skips = cp.Skips.Add(res.SkipDelta)
		cp.ProductCount += res.ProductsDelta
		cp.MaterialChunkCount++
		if res.ChunkWritten {
			cp.ChunkCount++
		}
	}

	return "in_progress", nil
}

func (o *Orchestrator) stepFinalize(ctx context.Context, req schema.InvocationRequest, cp *schema.ParseMergeCheckpoint, deadline time.Time) (string, error) {
	res, err := finalizer.Run(ctx, o.Objects, o.ExportsBucket, req.RunID, cp, time.Now(), time.Until(deadline))
	if err != nil {
		return "", err
	}

	patch := map[string]interface{}{
		"subPhase":           res.NextSubPhase,
		"finalizeChunkIndex": res.NextFinalizeChunk,
	}
	if err := o.Checkpoint.Merge(ctx, req.RunID, req.LockInvocationID, patch); err != nil {
		return "", err
	}

	log.Event(req.RunID, "info", "finalize step", map[string]interface{}{"subPhase": string(res.NextSubPhase)})
	return string(res.NextSubPhase), nil
}

// latestUnder lists prefix in bucket and returns the most recently
// modified object's key, per spec.md §6's "list a folder by
// created-at ordering" storage contract.
func latestUnder(ctx context.Context, store storage.ObjectStore, bucket, prefix string) (string, error) {
	objs, err := store.List(ctx, bucket, prefix)
	if err != nil {
		return "", err
	}
	if len(objs) == 0 {
		return "", fmt.Errorf("no objects under %s", prefix)
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].LastModified.Before(objs[j].LastModified) })
	return objs[len(objs)-1].Key, nil
}

func putJSON(ctx context.Context, store storage.ObjectStore, bucket, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return store.Put(ctx, bucket, key, data, "application/json")
}

func loadMaterialMeta(ctx context.Context, store storage.ObjectStore, bucket, runID string) (*schema.MaterialMeta, error) {
	data, err := store.Get(ctx, bucket, finalizer.MaterialMetaPath(runID))
	if err != nil {
		return nil, pipeline.ErrArtifactMissing("material meta: " + err.Error())
	}
	var meta schema.MaterialMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, pipeline.ErrArtifactMissing("material meta corrupt: " + err.Error())
	}
	return &meta, nil
}

func loadIndices(ctx context.Context, store storage.ObjectStore, bucket, runID string) (rangereader.Indices, error) {
	stockData, err := store.Get(ctx, bucket, finalizer.StockIndexPath(runID))
	if err != nil {
		return rangereader.Indices{}, pipeline.ErrArtifactMissing("stock index: " + err.Error())
	}
	priceData, err := store.Get(ctx, bucket, finalizer.PriceIndexPath(runID))
	if err != nil {
		return rangereader.Indices{}, pipeline.ErrArtifactMissing("price index: " + err.Error())
	}

	var stock schema.StockIndex
	var price schema.PriceIndex
	if err := json.Unmarshal(stockData, &stock); err != nil {
		return rangereader.Indices{}, pipeline.ErrArtifactMissing("stock index corrupt: " + err.Error())
	}
	if err := json.Unmarshal(priceData, &price); err != nil {
		return rangereader.Indices{}, pipeline.ErrArtifactMissing("price index corrupt: " + err.Error())
	}
	return rangereader.Indices{Stock: stock, Price: price}, nil
}
