package exportengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestIsAllDigits(t *testing.T) {
	assert.True(t, isAllDigits("0123456789"))
	assert.False(t, isAllDigits("12a4"))
	assert.True(t, isAllDigits(""))
}

func TestCheckEANColumnsRejectsWrongLength(t *testing.T) {
	spec := TemplateSpec{
		Columns: []ColumnSpec{
			{Header: "EAN", Col: "C", Kind: ColumnKindString},
		},
	}
	rows := []Row{{"", "", "123"}}
	err := checkEANColumns(spec, rows)
	assert.Error(t, err)
}

func TestCheckEANColumnsAcceptsValidLength(t *testing.T) {
	spec := TemplateSpec{
		Columns: []ColumnSpec{
			{Header: "EAN", Col: "C", Kind: ColumnKindString},
		},
	}
	rows := []Row{{"", "", "012345678901"}, {"", "", ""}}
	assert.NoError(t, checkEANColumns(spec, rows))
}

func TestCheckEANColumnsIgnoresNonEANColumns(t *testing.T) {
	spec := TemplateSpec{
		Columns: []ColumnSpec{
			{Header: "Matnr", Col: "A", Kind: ColumnKindString},
		},
	}
	rows := []Row{{"not-a-number"}}
	assert.NoError(t, checkEANColumns(spec, rows))
}

func lightweightWorkbook(t *testing.T) *excelize.File {
	t.Helper()
	wb := excelize.NewFile()
	require.NoError(t, wb.SetSheetName("Sheet1", "Data"))
	_, err := wb.NewSheet("ReferenceData")
	require.NoError(t, err)
	_, err = wb.NewSheet("Columns")
	require.NoError(t, err)
	require.NoError(t, wb.SetCellStr("Data", "A1", "Matnr"))
	return wb
}

func TestCheckSheetOrderPassesWhenIdentical(t *testing.T) {
	wb := lightweightWorkbook(t)
	defer wb.Close()
	ref := lightweightWorkbook(t)
	defer ref.Close()

	spec := TemplateSpec{DataSheet: "Data"}
	assert.NoError(t, checkSheetOrder(wb, ref, spec))
}

func TestCheckSheetOrderDetectsReorder(t *testing.T) {
	wb := excelize.NewFile()
	defer wb.Close()
	require.NoError(t, wb.SetSheetName("Sheet1", "Columns"))
	_, err := wb.NewSheet("Data")
	require.NoError(t, err)

	ref := lightweightWorkbook(t)
	defer ref.Close()

	spec := TemplateSpec{DataSheet: "Data"}
	assert.Error(t, checkSheetOrder(wb, ref, spec))
}

func TestCheckSheetOrderDetectsMissingSheet(t *testing.T) {
	wb := excelize.NewFile()
	defer wb.Close()
	require.NoError(t, wb.SetSheetName("Sheet1", "Data"))

	ref := lightweightWorkbook(t)
	defer ref.Close()

	spec := TemplateSpec{DataSheet: "Data"}
	assert.Error(t, checkSheetOrder(wb, ref, spec))
}

func TestCheckHeaderRowValuesPassesWhenUnchanged(t *testing.T) {
	wb := lightweightWorkbook(t)
	defer wb.Close()
	ref := lightweightWorkbook(t)
	defer ref.Close()

	spec := TemplateSpec{DataSheet: "Data", HeaderRows: 1}
	assert.NoError(t, checkHeaderRowValues(wb, ref, spec))
}

func TestCheckHeaderRowValuesDetectsMutation(t *testing.T) {
	wb := lightweightWorkbook(t)
	defer wb.Close()
	require.NoError(t, wb.SetCellStr("Data", "A1", "Mutated"))
	ref := lightweightWorkbook(t)
	defer ref.Close()

	spec := TemplateSpec{DataSheet: "Data", HeaderRows: 1}
	assert.Error(t, checkHeaderRowValues(wb, ref, spec))
}

func TestCheckColumnWidthsDetectsMismatch(t *testing.T) {
	wb := lightweightWorkbook(t)
	defer wb.Close()
	require.NoError(t, wb.SetColWidth("Data", "A", "A", 40))
	ref := lightweightWorkbook(t)
	defer ref.Close()

	spec := TemplateSpec{DataSheet: "Data", Columns: []ColumnSpec{{Header: "Matnr", Col: "A", Kind: ColumnKindString}}}
	assert.Error(t, checkColumnWidths(wb, ref, spec))
}

func TestCheckColumnWidthsPassesWhenUnchanged(t *testing.T) {
	wb := lightweightWorkbook(t)
	defer wb.Close()
	ref := lightweightWorkbook(t)
	defer ref.Close()

	spec := TemplateSpec{DataSheet: "Data", Columns: []ColumnSpec{{Header: "Matnr", Col: "A", Kind: ColumnKindString}}}
	assert.NoError(t, checkColumnWidths(wb, ref, spec))
}

func TestCheckNumberFormatsDetectsDivergentRow(t *testing.T) {
	wb := lightweightWorkbook(t)
	defer wb.Close()

	spec := TemplateSpec{
		DataSheet:    "Data",
		FirstDataRow: 2,
		Columns:      []ColumnSpec{{Header: "Stock", Col: "B", Kind: ColumnKindInteger}},
	}
	require.NoError(t, WriteDataCells(wb, spec, []Row{{"5"}, {"6"}}))

	styleID, err := wb.NewStyle(&excelize.Style{CustomNumFmt: strPtr("0.00")})
	require.NoError(t, err)
	require.NoError(t, wb.SetCellStyle("Data", "B3", "B3", styleID))

	assert.Error(t, checkNumberFormats(wb, spec, 2))
}

func TestCheckNumberFormatsPassesWhenConsistent(t *testing.T) {
	wb := lightweightWorkbook(t)
	defer wb.Close()

	spec := TemplateSpec{
		DataSheet:    "Data",
		FirstDataRow: 2,
		Columns:      []ColumnSpec{{Header: "Stock", Col: "B", Kind: ColumnKindInteger}},
	}
	require.NoError(t, WriteDataCells(wb, spec, []Row{{"5"}, {"6"}, {"7"}}))

	assert.NoError(t, checkNumberFormats(wb, spec, 3))
}

func strPtr(s string) *string { return &s }

func TestCheckColumnCountSkipsSpecsWithNoSharedWidth(t *testing.T) {
	wb := excelize.NewFile()
	defer wb.Close()
	require.NoError(t, wb.SetSheetName("Sheet1", "Data"))
	require.NoError(t, wb.SetSheetDimension("Data", "A1:Z1"))

	spec := TemplateSpec{
		Name:      "solo_width",
		DataSheet: "Data",
		Columns: []ColumnSpec{
			{Header: "Matnr", Col: "A", Kind: ColumnKindString},
			{Header: "EAN", Col: "B", Kind: ColumnKindString},
			{Header: "Description", Col: "C", Kind: ColumnKindString},
		},
	}
	assert.NoError(t, checkColumnCount(wb, spec))
}

func TestCheckColumnCountDetectsMismatchForSharedWidthSpecs(t *testing.T) {
	wb := excelize.NewFile()
	defer wb.Close()
	require.NoError(t, wb.SetSheetName("Sheet1", "Data"))
	require.NoError(t, wb.SetSheetDimension("Data", "A1:Z1"))

	spec := Specs["export_mediaworld"]
	assert.Error(t, checkColumnCount(wb, spec))
}

func TestCheckColumnCountPassesForSharedWidthSpecs(t *testing.T) {
	wb := excelize.NewFile()
	defer wb.Close()
	require.NoError(t, wb.SetSheetName("Sheet1", "Data"))
	require.NoError(t, wb.SetSheetDimension("Data", "A1:F3"))

	spec := Specs["export_mediaworld"]
	assert.NoError(t, checkColumnCount(wb, spec))
}
