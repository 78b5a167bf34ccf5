package exportengine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/feedpipe/catalog-worker/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeTemplateStore struct {
	objects map[string][]byte
}

func (f *fakeTemplateStore) Head(ctx context.Context, bucket, key string) (int64, error) {
	return int64(len(f.objects[key])), nil
}

func (f *fakeTemplateStore) GetRange(ctx context.Context, bucket, key string, start, length int64) (*storage.RangeResult, error) {
	return nil, nil
}

func (f *fakeTemplateStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	return f.objects[key], nil
}

func (f *fakeTemplateStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	return nil
}

func (f *fakeTemplateStore) Delete(ctx context.Context, bucket, key string) error { return nil }

func (f *fakeTemplateStore) List(ctx context.Context, bucket, prefix string) ([]storage.Object, error) {
	return nil, nil
}

func (f *fakeTemplateStore) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return "", nil
}

func buildTemplateXLSX(t *testing.T, rows int) []byte {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()
	require.NoError(t, wb.SetSheetName("Sheet1", "Data"))
	for r := 1; r <= rows; r++ {
		require.NoError(t, wb.SetCellStr("Data", fmt.Sprintf("A%d", r), "stale"))
	}
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestLoadCapsDataSheetRowsAtRowParseLimit(t *testing.T) {
	raw := buildTemplateXLSX(t, 5)
	sum := sha256.Sum256(raw)

	store := &fakeTemplateStore{objects: map[string][]byte{"templates/ean.xlsx": raw}}
	spec := TemplateSpec{
		Name:           "ean_catalog",
		TemplatePath:   "templates/ean.xlsx",
		TemplateSHA256: hex.EncodeToString(sum[:]),
		RequiredSheets: []string{"Data"},
		DataSheet:      "Data",
		RowParseLimit:  2,
	}

	tmpl, err := Load(context.Background(), store, "bucket", spec)
	require.NoError(t, err)
	defer tmpl.WB.Close()

	rows, err := tmpl.WB.GetRows("Data")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestLoadLeavesRowsUntouchedWhenNoLimit(t *testing.T) {
	raw := buildTemplateXLSX(t, 5)
	sum := sha256.Sum256(raw)

	store := &fakeTemplateStore{objects: map[string][]byte{"templates/mediaworld.xlsx": raw}}
	spec := TemplateSpec{
		Name:           "mediaworld",
		TemplatePath:   "templates/mediaworld.xlsx",
		TemplateSHA256: hex.EncodeToString(sum[:]),
		RequiredSheets: []string{"Data"},
		DataSheet:      "Data",
	}

	tmpl, err := Load(context.Background(), store, "bucket", spec)
	require.NoError(t, err)
	defer tmpl.WB.Close()

	rows, err := tmpl.WB.GetRows("Data")
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestLoadRejectsDigestMismatch(t *testing.T) {
	raw := buildTemplateXLSX(t, 1)
	store := &fakeTemplateStore{objects: map[string][]byte{"templates/x.xlsx": raw}}
	spec := TemplateSpec{
		Name:           "x",
		TemplatePath:   "templates/x.xlsx",
		TemplateSHA256: "0000000000000000000000000000000000000000000000000000000000000",
		DataSheet:      "Data",
	}

	_, err := Load(context.Background(), store, "bucket", spec)
	assert.Error(t, err)
}
