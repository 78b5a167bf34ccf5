package finalizer

import (
	"context"
	"testing"
	"time"

	"github.com/feedpipe/catalog-worker/internal/storage"
	"github.com/feedpipe/catalog-worker/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Head(ctx context.Context, bucket, key string) (int64, error) {
	return int64(len(m.objects[key])), nil
}

func (m *memStore) GetRange(ctx context.Context, bucket, key string, start, length int64) (*storage.RangeResult, error) {
	return nil, nil
}

func (m *memStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, assert.AnError
	}
	return data, nil
}

func (m *memStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[key] = cp
	return nil
}

func (m *memStore) Delete(ctx context.Context, bucket, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memStore) List(ctx context.Context, bucket, prefix string) ([]storage.Object, error) {
	return nil, nil
}

func (m *memStore) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return "", nil
}

func TestRunConcatenatesChunksInOrder(t *testing.T) {
	store := newMemStore()
	runID := "run-1"
	store.objects[ChunkPath(runID, 0)] = []byte("A1\tmpn\tean\tdesc\t5\t1.00\t1.10\t0\n")
	store.objects[ChunkPath(runID, 1)] = []byte("B2\tmpn\tean\tdesc\t3\t2.00\t2.20\t0\n")

	cp := &schema.ParseMergeCheckpoint{ChunkCount: 2}
	res, err := Run(context.Background(), store, "bucket", runID, cp, time.Now(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, schema.SubPhaseCompleted, res.NextSubPhase)

	out, err := store.Get(context.Background(), "bucket", ProductTablePath(runID))
	require.NoError(t, err)
	assert.Contains(t, string(out), schema.ProductTableHeader)
	assert.Contains(t, string(out), "A1\t")
	assert.Contains(t, string(out), "B2\t")

	_, err = store.Get(context.Background(), "bucket", ChunkPath(runID, 0))
	assert.Error(t, err)
}

func TestRunYieldsWhenBudgetExhausted(t *testing.T) {
	store := newMemStore()
	runID := "run-2"
	store.objects[ChunkPath(runID, 0)] = []byte("A1\tmpn\tean\tdesc\t5\t1.00\t1.10\t0\n")
	store.objects[ChunkPath(runID, 1)] = []byte("B2\tmpn\tean\tdesc\t3\t2.00\t2.20\t0\n")

	cp := &schema.ParseMergeCheckpoint{ChunkCount: 2}
	past := time.Now().Add(-time.Hour)
	res, err := Run(context.Background(), store, "bucket", runID, cp, past, time.Second)
	require.NoError(t, err)
	assert.Equal(t, schema.SubPhaseFinalizing, res.NextSubPhase)
	assert.EqualValues(t, 1, res.NextFinalizeChunk)

	_, err = store.Get(context.Background(), "bucket", PartialPath(runID))
	require.NoError(t, err)
}

func TestRunResumesFromPartial(t *testing.T) {
	store := newMemStore()
	runID := "run-3"
	store.objects[PartialPath(runID)] = []byte(schema.ProductTableHeader + "\nA1\tmpn\tean\tdesc\t5\t1.00\t1.10\t0\n")
	store.objects[ChunkPath(runID, 1)] = []byte("B2\tmpn\tean\tdesc\t3\t2.00\t2.20\t0\n")

	cp := &schema.ParseMergeCheckpoint{ChunkCount: 2, FinalizeChunkIndex: 1}
	res, err := Run(context.Background(), store, "bucket", runID, cp, time.Now(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, schema.SubPhaseCompleted, res.NextSubPhase)

	out, err := store.Get(context.Background(), "bucket", ProductTablePath(runID))
	require.NoError(t, err)
	assert.Contains(t, string(out), "A1\t")
	assert.Contains(t, string(out), "B2\t")
}

func TestRunChunkCountExceedsMaxIsFatal(t *testing.T) {
	store := newMemStore()
	cp := &schema.ParseMergeCheckpoint{ChunkCount: schema.MaxFinalizeChunks + 1}
	_, err := Run(context.Background(), store, "bucket", "run-4", cp, time.Now(), time.Hour)
	assert.Error(t, err)
}

func TestRunMissingChunkIsArtifactMissing(t *testing.T) {
	store := newMemStore()
	cp := &schema.ParseMergeCheckpoint{ChunkCount: 1}
	_, err := Run(context.Background(), store, "bucket", "run-5", cp, time.Now(), time.Hour)
	assert.Error(t, err)
}
