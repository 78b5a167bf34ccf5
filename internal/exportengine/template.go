package exportengine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/feedpipe/catalog-worker/internal/pipeline"
	"github.com/feedpipe/catalog-worker/internal/storage"
	"github.com/xuri/excelize/v2"
)

// Template bundles the parsed workbook with its raw bytes, so the
// write path can consult the parsed model while the integrity checks
// stay at the ZIP/XML level against the same bytes.
type Template struct {
	Raw []byte
	WB  *excelize.File
}

// Load downloads the template at spec.TemplatePath, verifies its
// SHA-256 digest against spec.TemplateSHA256, and parses it. A missing
// digest, mismatched digest, empty download, or parse failure is
// fatal (spec.md §4.5's template acquisition contract).
func Load(ctx context.Context, store storage.ObjectStore, bucket string, spec TemplateSpec) (*Template, error) {
	if spec.TemplateSHA256 == "" {
		return nil, pipeline.ErrTemplateDigestMissing(spec.Name)
	}

	raw, err := store.Get(ctx, bucket, spec.TemplatePath)
	if err != nil {
		return nil, pipeline.ErrTemplateEmpty(spec.Name + ": download failed: " + err.Error())
	}
	if len(raw) == 0 {
		return nil, pipeline.ErrTemplateEmpty(spec.Name)
	}

	sum := sha256.Sum256(raw)
	got := hex.EncodeToString(sum[:])
	if got != spec.TemplateSHA256 {
		return nil, pipeline.ErrTemplateDigestMismatch(spec.Name + ": got " + got)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, pipeline.ErrTemplateEmpty(spec.Name + ": parse failed: " + err.Error())
	}

	if err := requireSheets(wb, spec.RequiredSheets); err != nil {
		return nil, err
	}

	if spec.RowParseLimit > 0 {
		if err := capDataSheetRows(wb, spec.DataSheet, spec.RowParseLimit); err != nil {
			return nil, fmt.Errorf("exportengine: %s: cap rows at %d: %w", spec.Name, spec.RowParseLimit, err)
		}
	}

	return &Template{Raw: raw, WB: wb}, nil
}

// capDataSheetRows trims the data sheet down to at most limit rows
// immediately after parse, so a template that accumulated stale rows
// beyond what the write protocol expects (spec.RowParseLimit, e.g. the
// EAN export's 2-row template) never reaches the snapshot/clear/write
// steps with extra rows the header-preservation invariant doesn't
// account for.
func capDataSheetRows(wb *excelize.File, sheet string, limit int) error {
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return pipeline.ErrRequiredSheetAbsent(sheet)
	}
	for r := len(rows); r > limit; r-- {
		if err := wb.RemoveRow(sheet, r); err != nil {
			return err
		}
	}
	return nil
}

func requireSheets(wb *excelize.File, names []string) error {
	present := map[string]bool{}
	for _, s := range wb.GetSheetList() {
		present[s] = true
	}
	for _, want := range names {
		if !present[want] {
			return pipeline.ErrRequiredSheetAbsent(want)
		}
	}
	return nil
}
