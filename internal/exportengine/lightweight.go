package exportengine

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/feedpipe/catalog-worker/internal/pipeline"
	"github.com/xuri/excelize/v2"
)

// runLightweightChecks performs the cheaper, always-run validations
// from spec.md §4.5 step 10: these run on every export regardless of
// whether the ZIP-level integrity check applies, since most of them
// only inspect the parsed workbook the write path already holds open.
// templateRaw/outputRaw back the one check (autoFilter) that has no
// typed excelize accessor and falls to the raw-XML layer instead.
func runLightweightChecks(wb *excelize.File, templateRaw, outputRaw []byte, spec TemplateSpec, rows []Row) error {
	ref, err := excelize.OpenReader(bytes.NewReader(templateRaw))
	if err != nil {
		return fmt.Errorf("exportengine: reopen original template for lightweight checks: %w", err)
	}
	defer ref.Close()

	if err := checkSheetOrder(wb, ref, spec); err != nil {
		return err
	}
	if err := checkHeaderRowValues(wb, ref, spec); err != nil {
		return err
	}
	if err := checkColumnWidths(wb, ref, spec); err != nil {
		return err
	}
	if err := checkAutoFilter(templateRaw, outputRaw, spec); err != nil {
		return err
	}
	if err := checkNumberFormats(wb, spec, len(rows)); err != nil {
		return err
	}
	if err := checkColumnCount(wb, spec); err != nil {
		return err
	}
	return checkEANColumns(spec, rows)
}

// checkSheetOrder enforces exact equality of sheet names AND order
// against the original template: a renamed, inserted, removed, or
// merely reordered sheet all fail this the same way.
func checkSheetOrder(wb, ref *excelize.File, spec TemplateSpec) error {
	got := wb.GetSheetList()
	want := ref.GetSheetList()
	if len(got) != len(want) {
		return pipeline.ErrHeadersModified(fmt.Sprintf("%s: sheet count %d != template %d", spec.DataSheet, len(got), len(want)))
	}
	for i := range want {
		if got[i] != want[i] {
			return pipeline.ErrHeadersModified(fmt.Sprintf("sheet order: position %d is %q, template has %q", i, got[i], want[i]))
		}
	}
	return nil
}

// checkHeaderRowValues re-reads the data sheet's header rows against
// the original template, independent of VerifySnapshot's in-memory
// comparison (that one never reopens the original bytes).
func checkHeaderRowValues(wb, ref *excelize.File, spec TemplateSpec) error {
	got, err := wb.GetRows(spec.DataSheet)
	if err != nil {
		return pipeline.ErrRequiredSheetAbsent(spec.DataSheet)
	}
	want, err := ref.GetRows(spec.DataSheet)
	if err != nil {
		return pipeline.ErrRequiredSheetAbsent(spec.DataSheet)
	}
	n := spec.HeaderRows
	if n > len(want) {
		n = len(want)
	}
	for i := 0; i < n; i++ {
		if i >= len(got) || !reflect.DeepEqual(got[i], want[i]) {
			return pipeline.ErrHeadersModified(fmt.Sprintf("%s: header row %d", spec.DataSheet, i+1))
		}
	}
	return nil
}

// checkColumnWidths compares each declared column's width against the
// original template's.
func checkColumnWidths(wb, ref *excelize.File, spec TemplateSpec) error {
	for _, c := range spec.Columns {
		got, err := wb.GetColWidth(spec.DataSheet, c.Col)
		if err != nil {
			return fmt.Errorf("exportengine: column width %s: %w", c.Col, err)
		}
		want, err := ref.GetColWidth(spec.DataSheet, c.Col)
		if err != nil {
			return fmt.Errorf("exportengine: column width %s: %w", c.Col, err)
		}
		if got != want {
			return pipeline.ErrStylesMismatch(fmt.Sprintf("%s column %s width %.4f != template %.4f", spec.DataSheet, c.Col, got, want))
		}
	}
	return nil
}

// checkAutoFilter compares the data sheet's <autoFilter> element byte
// for byte between the original template and the serialized output.
// excelize has no typed getter for a sheet's autofilter range, so this
// drops to the same raw-XML-part layer VerifyIntegrity uses.
func checkAutoFilter(templateRaw, outputRaw []byte, spec TemplateSpec) error {
	tParts, err := readZIP(templateRaw)
	if err != nil {
		return err
	}
	oParts, err := readZIP(outputRaw)
	if err != nil {
		return err
	}
	tPath, err := resolveSheetPath(tParts, spec.DataSheet)
	if err != nil {
		return err
	}
	oPath, err := resolveSheetPath(oParts, spec.DataSheet)
	if err != nil {
		return err
	}
	if !bytes.Equal(extractAutoFilter(tParts[tPath]), extractAutoFilter(oParts[oPath])) {
		return pipeline.ErrStylesMismatch(spec.DataSheet + ": autoFilter range changed")
	}
	return nil
}

func extractAutoFilter(sheetXML []byte) []byte {
	start := bytes.Index(sheetXML, []byte("<autoFilter"))
	if start < 0 {
		return nil
	}
	rest := sheetXML[start:]
	if end := bytes.Index(rest, []byte("</autoFilter>")); end >= 0 {
		return rest[:end+len("</autoFilter>")]
	}
	if end := bytes.Index(rest, []byte("/>")); end >= 0 {
		return rest[:end+2]
	}
	return nil
}

// checkNumberFormats enforces that every written data row in a column
// carries the same cell style as the first data row in that column —
// the "per-data-row number format equality" spec.md §4.5 step 10
// names. A row that silently picked up a different style than its
// column-mates (e.g. from a partial write retried under a stale style
// cache) fails this.
func checkNumberFormats(wb *excelize.File, spec TemplateSpec, rowCount int) error {
	if rowCount == 0 {
		return nil
	}
	for _, c := range spec.Columns {
		firstAxis := fmt.Sprintf("%s%d", c.Col, spec.FirstDataRow)
		want, err := wb.GetCellStyle(spec.DataSheet, firstAxis)
		if err != nil {
			return fmt.Errorf("exportengine: cell style %s: %w", firstAxis, err)
		}
		for i := 1; i < rowCount; i++ {
			axis := fmt.Sprintf("%s%d", c.Col, spec.FirstDataRow+i)
			got, err := wb.GetCellStyle(spec.DataSheet, axis)
			if err != nil {
				return fmt.Errorf("exportengine: cell style %s: %w", axis, err)
			}
			if got != want {
				return pipeline.ErrStylesMismatch(fmt.Sprintf("%s: row %d number format differs from row %d", c.Col, spec.FirstDataRow+i, spec.FirstDataRow))
			}
		}
	}
	return nil
}

// checkColumnCount enforces exact column-count equality for templates
// that declare the same number of columns as another pinned template
// (mediaworld/eprice/amazon all share a 6-column layout) — a written
// dimension that silently grew or shrank relative to the declared
// column set breaks that shared assumption.
func checkColumnCount(wb *excelize.File, spec TemplateSpec) error {
	shared := false
	for _, other := range Specs {
		if other.Name == spec.Name {
			continue
		}
		if len(other.Columns) == len(spec.Columns) {
			shared = true
			break
		}
	}
	if !shared {
		return nil
	}

	dim, err := wb.GetSheetDimension(spec.DataSheet)
	if err != nil {
		return pipeline.ErrRequiredSheetAbsent(spec.DataSheet)
	}
	parts := bytes.SplitN([]byte(dim), []byte(":"), 2)
	ref := string(parts[0])
	if len(parts) == 2 {
		ref = string(parts[1])
	}
	col, _, err := excelize.SplitCellName(ref)
	if err != nil {
		return fmt.Errorf("exportengine: parse dimension %q: %w", dim, err)
	}
	colNum, err := excelize.ColumnNameToNumber(col)
	if err != nil {
		return fmt.Errorf("exportengine: parse column %q: %w", col, err)
	}
	if colNum != len(spec.Columns) {
		return pipeline.ErrHeadersModified(fmt.Sprintf("%s: column count %d != declared %d", spec.DataSheet, colNum, len(spec.Columns)))
	}
	return nil
}

// checkEANColumns enforces that any column declared ColumnKindString
// whose header names an EAN identifier carries only digit strings of
// length 12-14, the GTIN family's valid lengths.
func checkEANColumns(spec TemplateSpec, rows []Row) error {
	for ci, c := range spec.Columns {
		if c.Kind != ColumnKindString || c.Header != "EAN" {
			continue
		}
		for _, row := range rows {
			if ci >= len(row) {
				continue
			}
			v := row[ci]
			if v == "" {
				continue
			}
			if !isAllDigits(v) || len(v) < 12 || len(v) > 14 {
				return fmt.Errorf("exportengine: EAN value %q fails digit-length check", v)
			}
		}
	}
	return nil
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
