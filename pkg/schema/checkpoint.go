package schema

import "time"

// SubPhase is the parse-merge checkpoint's state machine position, a
// closed set per spec.md §3. "completed" is the only terminal value
// ever written; the source's alternate spelling "success" is not used
// anywhere in this codebase (see DESIGN.md's Open Question decision).
type SubPhase string

const (
	SubPhasePending                SubPhase = "pending"
	SubPhaseBuildingStockIndex     SubPhase = "building_stock_index"
	SubPhaseBuildingPriceIndex     SubPhase = "building_price_index"
	SubPhasePreparingMaterial      SubPhase = "preparing_material"
	SubPhaseInProgress             SubPhase = "in_progress"
	SubPhaseFinalizing             SubPhase = "finalizing"
	SubPhaseCompleted              SubPhase = "completed"
	SubPhaseFailed                 SubPhase = "failed"
)

// Terminal reports whether a sub-phase may never transition again.
func (s SubPhase) Terminal() bool {
	return s == SubPhaseCompleted || s == SubPhaseFailed
}

// SkipCounters accumulates the reasons a material row was dropped
// during the range-reader/chunker's filter step (spec.md §4.3 step 8).
// Every field is monotonically non-decreasing within a run.
type SkipCounters struct {
	NoStock  int64 `json:"noStock"`
	NoPrice  int64 `json:"noPrice"`
	LowStock int64 `json:"lowStock"`
	NoValid  int64 `json:"noValid"`
}

// Add returns a new SkipCounters with the per-field sums. Kept a pure
// function (not a pointer receiver mutation) so callers can't
// accidentally share backing state across checkpoint patches.
func (s SkipCounters) Add(other SkipCounters) SkipCounters {
	return SkipCounters{
		NoStock:  s.NoStock + other.NoStock,
		NoPrice:  s.NoPrice + other.NoPrice,
		LowStock: s.LowStock + other.LowStock,
		NoValid:  s.NoValid + other.NoValid,
	}
}

// Sum is used by the "product_count + sum(skips) == non-empty body
// lines" invariant in spec.md §8.
func (s SkipCounters) Sum() int64 {
	return s.NoStock + s.NoPrice + s.LowStock + s.NoValid
}

// ParseMergeCheckpoint is the one record-per-run structure described in
// spec.md §3. It is stored as a single JSON document behind the
// checkpoint store's merge-patch RPC (internal/checkpoint).
type ParseMergeCheckpoint struct {
	SubPhase    SubPhase `json:"subPhase"`
	ByteCursor  int64    `json:"byteCursor"`
	TotalBytes  int64    `json:"totalBytes"`

	ChunkCount         int64 `json:"chunkCount"`
	FinalizeChunkIndex int64 `json:"finalizeChunkIndex"`
	MaterialChunkCount int64 `json:"materialChunkCount"`

	// CarryBytes holds the tail after the last newline of the
	// previous range fetch; bounded to 256 KiB (spec.md §3, §4.3).
	CarryBytes []byte `json:"carryBytes,omitempty"`

	Skips        SkipCounters `json:"skips"`
	ProductCount int64        `json:"productCount"`

	StartedAt time.Time `json:"startedAt"`
	LastError string    `json:"lastError,omitempty"`

	// ArtifactRebuildAttempted is stored with the checkpoint, but no
	// code path sets or reads it: a missing-artifact error fails the
	// run on its first occurrence.
	ArtifactRebuildAttempted bool `json:"artifactRebuildAttempted"`
}

const (
	MaxCarryBytes  = 256 * 1024
	MaxRangeFetch  = 2 * 1024 * 1024
	RangeTolerance = 64 * 1024
	MaxFinalizeChunks = 50
	MaxProductTableBytes = 40 * 1024 * 1024
	InvocationBudget = 8 * time.Second
)
