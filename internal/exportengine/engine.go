package exportengine

import (
	"context"
	"fmt"

	"github.com/feedpipe/catalog-worker/internal/storage"
)

// XlsxContentType is the fixed MIME type every export upload declares.
const XlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Export runs the full 12-step write protocol from spec.md §4.5 for
// one marketplace step: load the pinned template, snapshot its header,
// clear the data region, write rows, update the declared dimension,
// verify the header survived untouched, serialize, run the ZIP-level
// integrity check against the original template bytes, and upload.
func Export(ctx context.Context, store storage.ObjectStore, templateBucket, exportsBucket, outputKey string, spec TemplateSpec, rows []Row) error {
	tmpl, err := Load(ctx, store, templateBucket, spec)
	if err != nil {
		return err
	}

	snapshot, err := SnapshotHeader(tmpl.WB, spec)
	if err != nil {
		return err
	}

	if err := ClearDataRegion(tmpl.WB, spec); err != nil {
		return err
	}

	if err := WriteDataCells(tmpl.WB, spec, rows); err != nil {
		return err
	}

	if err := UpdateRange(tmpl.WB, spec, len(rows)); err != nil {
		return err
	}

	if err := VerifySnapshot(tmpl.WB, spec, snapshot); err != nil {
		return err
	}

	buf, err := tmpl.WB.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("exportengine: serialize: %w", err)
	}
	outputRaw := buf.Bytes()

	if err := VerifyIntegrity(tmpl.Raw, outputRaw, spec); err != nil {
		return err
	}

	if err := runLightweightChecks(tmpl.WB, tmpl.Raw, outputRaw, spec, rows); err != nil {
		return err
	}

	return store.Put(ctx, exportsBucket, outputKey, outputRaw, XlsxContentType)
}
