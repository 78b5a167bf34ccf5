package exportengine

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/feedpipe/catalog-worker/internal/pipeline"
	"github.com/xuri/excelize/v2"
)

// Row is one data row to write: one string per column, already
// formatted by the caller (the product/marketplace join has already
// happened upstream).
type Row []string

// SnapshotHeader reads the first spec.HeaderRows rows of the data
// sheet as a value matrix — the invariant the rest of the write
// protocol must preserve (spec.md §4.5 step 3).
func SnapshotHeader(wb *excelize.File, spec TemplateSpec) ([][]string, error) {
	rows, err := wb.GetRows(spec.DataSheet)
	if err != nil {
		return nil, pipeline.ErrRequiredSheetAbsent(spec.DataSheet)
	}
	n := spec.HeaderRows
	if n > len(rows) {
		n = len(rows)
	}
	snapshot := make([][]string, n)
	for i := 0; i < n; i++ {
		snapshot[i] = append([]string(nil), rows[i]...)
	}
	return snapshot, nil
}

// ClearDataRegion blanks every pre-existing cell below the header, in
// the data sheet's declared column span, so stale template sample
// content never survives serialization (spec.md §4.5 step 4).
func ClearDataRegion(wb *excelize.File, spec TemplateSpec) error {
	rows, err := wb.GetRows(spec.DataSheet)
	if err != nil {
		return pipeline.ErrRequiredSheetAbsent(spec.DataSheet)
	}

	for r := spec.FirstDataRow; r <= len(rows); r++ {
		for _, c := range spec.Columns {
			axis := fmt.Sprintf("%s%d", c.Col, r)
			if err := wb.SetCellStr(spec.DataSheet, axis, ""); err != nil {
				return fmt.Errorf("exportengine: clear %s: %w", axis, err)
			}
		}
	}
	return nil
}

// WriteDataCells writes one row per surviving product starting at
// spec.FirstDataRow, one cell per column with explicit type and
// number-format attributes so EAN-like identifiers keep leading zeros
// and numeric columns keep a stable format (spec.md §4.5 step 5).
func WriteDataCells(wb *excelize.File, spec TemplateSpec, rows []Row) error {
	for i, row := range rows {
		r := spec.FirstDataRow + i
		for ci, c := range spec.Columns {
			if ci >= len(row) {
				continue
			}
			axis := fmt.Sprintf("%s%d", c.Col, r)
			styleID, err := cellStyle(wb, c.Kind)
			if err != nil {
				return err
			}
			if err := wb.SetCellStyle(spec.DataSheet, axis, axis, styleID); err != nil {
				return fmt.Errorf("exportengine: style %s: %w", axis, err)
			}
			if err := writeTypedValue(wb, spec.DataSheet, axis, c.Kind, row[ci]); err != nil {
				return fmt.Errorf("exportengine: write %s: %w", axis, err)
			}
		}
	}
	return nil
}

// writeTypedValue writes value as the cell type its column kind
// declares. Integer and Money columns must land as real numeric cells
// — writing the formatted string through SetCellValue would store a
// text cell that silently ignores the custom number format applied by
// cellStyle. An empty numeric value is written as an empty cell; an
// unparseable one fails the write with an error.
func writeTypedValue(wb *excelize.File, sheet, axis string, kind ColumnKind, value string) error {
	switch kind {
	case ColumnKindString:
		return wb.SetCellStr(sheet, axis, value)
	case ColumnKindInteger:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return wb.SetCellValue(sheet, axis, nil)
		}
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return fmt.Errorf("exportengine: integer cell %s: %w", axis, err)
		}
		return wb.SetCellValue(sheet, axis, n)
	case ColumnKindMoney:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return wb.SetCellValue(sheet, axis, nil)
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return fmt.Errorf("exportengine: money cell %s: %w", axis, err)
		}
		return wb.SetCellValue(sheet, axis, f)
	default:
		return wb.SetCellStr(sheet, axis, value)
	}
}

func cellStyle(wb *excelize.File, kind ColumnKind) (int, error) {
	var numFmt string
	switch kind {
	case ColumnKindString:
		numFmt = "@"
	case ColumnKindInteger:
		numFmt = "0"
	case ColumnKindMoney:
		numFmt = "0.00"
	}
	return wb.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
}

// UpdateRange sets the data sheet's declared dimension to span exactly
// the header rows plus the written rows (spec.md §4.5 step 6).
func UpdateRange(wb *excelize.File, spec TemplateSpec, rowCount int) error {
	lastCol := spec.Columns[len(spec.Columns)-1].Col
	lastRow := spec.FirstDataRow + rowCount - 1
	if rowCount == 0 {
		lastRow = spec.HeaderRows
	}
	ref := fmt.Sprintf("A1:%s%d", lastCol, lastRow)
	return wb.SetSheetDimension(spec.DataSheet, ref)
}

// VerifySnapshot re-reads the header region and compares it
// cell-for-cell against the snapshot taken before any writes. Any
// discrepancy is fatal (spec.md §4.5 step 7, `headers_modified`).
func VerifySnapshot(wb *excelize.File, spec TemplateSpec, snapshot [][]string) error {
	current, err := SnapshotHeader(wb, spec)
	if err != nil {
		return err
	}
	if !reflect.DeepEqual(current, snapshot) {
		return pipeline.ErrHeadersModified(spec.DataSheet)
	}
	return nil
}
