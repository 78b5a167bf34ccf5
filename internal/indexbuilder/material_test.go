package indexbuilder

import (
	"context"
	"testing"
	"time"

	"github.com/feedpipe/catalog-worker/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHeaderStore struct {
	body []byte
}

func (f *fakeHeaderStore) Head(ctx context.Context, bucket, key string) (int64, error) {
	return int64(len(f.body)), nil
}

func (f *fakeHeaderStore) GetRange(ctx context.Context, bucket, key string, start, length int64) (*storage.RangeResult, error) {
	end := start + length
	if end > int64(len(f.body)) {
		end = int64(len(f.body))
	}
	return &storage.RangeResult{
		StatusCode: 200,
		Body:       f.body[start:end],
		TotalBytes: int64(len(f.body)),
	}, nil
}

func (f *fakeHeaderStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	return f.body, nil
}

func (f *fakeHeaderStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	return nil
}

func (f *fakeHeaderStore) Delete(ctx context.Context, bucket, key string) error { return nil }

func (f *fakeHeaderStore) List(ctx context.Context, bucket, prefix string) ([]storage.Object, error) {
	return nil, nil
}

func (f *fakeHeaderStore) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return "", nil
}

func TestProbeMaterialHeaderResolvesColumns(t *testing.T) {
	body := []byte("matnr;mpn;ean;description\nA1;mpnA;eanA;descA\n")
	store := &fakeHeaderStore{body: body}

	meta, err := ProbeMaterialHeader(context.Background(), store, "bucket", "feed.tsv")
	require.NoError(t, err)
	assert.Equal(t, 0, meta.ColMatnr)
	assert.Equal(t, 1, meta.ColMPN)
	assert.Equal(t, 2, meta.ColEAN)
	assert.Equal(t, 3, meta.ColDesc)
	assert.EqualValues(t, len(body), meta.TotalBytes)
	assert.True(t, meta.RangeSupported)
}

func TestProbeMaterialHeaderMissingColumnErrors(t *testing.T) {
	body := []byte("matnr;mpn;ean\nA1;mpnA;eanA\n")
	store := &fakeHeaderStore{body: body}

	_, err := ProbeMaterialHeader(context.Background(), store, "bucket", "feed.tsv")
	assert.Error(t, err)
}

func TestProbeMaterialHeaderNoNewlineErrors(t *testing.T) {
	body := []byte("matnr;mpn;ean;description")
	store := &fakeHeaderStore{body: body}

	_, err := ProbeMaterialHeader(context.Background(), store, "bucket", "feed.tsv")
	assert.Error(t, err)
}
