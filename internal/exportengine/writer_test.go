package exportengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testSpec() TemplateSpec {
	return TemplateSpec{
		DataSheet:    "Data",
		HeaderRows:   1,
		FirstDataRow: 2,
		Columns: []ColumnSpec{
			{Header: "Matnr", Col: "A", Kind: ColumnKindString},
			{Header: "Stock", Col: "B", Kind: ColumnKindInteger},
		},
	}
}

func newTestWorkbook(t *testing.T) *excelize.File {
	t.Helper()
	wb := excelize.NewFile()
	require.NoError(t, wb.SetSheetName("Sheet1", "Data"))
	require.NoError(t, wb.SetCellStr("Data", "A1", "Matnr"))
	require.NoError(t, wb.SetCellStr("Data", "B1", "Stock"))
	require.NoError(t, wb.SetCellStr("Data", "A2", "stale"))
	return wb
}

func TestSnapshotHeaderReadsDeclaredRows(t *testing.T) {
	wb := newTestWorkbook(t)
	defer wb.Close()

	snap, err := SnapshotHeader(wb, testSpec())
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, []string{"Matnr", "Stock"}, snap[0])
}

func TestClearDataRegionBlanksExistingCells(t *testing.T) {
	wb := newTestWorkbook(t)
	defer wb.Close()

	require.NoError(t, ClearDataRegion(wb, testSpec()))

	v, err := wb.GetCellValue("Data", "A2")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestWriteDataCellsWritesRowsFromFirstDataRow(t *testing.T) {
	wb := newTestWorkbook(t)
	defer wb.Close()

	rows := []Row{{"A1", "5"}, {"B2", "10"}}
	require.NoError(t, WriteDataCells(wb, testSpec(), rows))

	v, err := wb.GetCellValue("Data", "A2")
	require.NoError(t, err)
	assert.Equal(t, "A1", v)

	v, err = wb.GetCellValue("Data", "A3")
	require.NoError(t, err)
	assert.Equal(t, "B2", v)

	stockType, err := wb.GetCellType("Data", "B2")
	require.NoError(t, err)
	assert.Equal(t, excelize.CellTypeNumber, stockType)

	stockVal, err := wb.GetCellValue("Data", "B2")
	require.NoError(t, err)
	assert.Equal(t, "5", stockVal)
}

func TestWriteDataCellsRejectsUnparseableNumericValue(t *testing.T) {
	wb := newTestWorkbook(t)
	defer wb.Close()

	rows := []Row{{"A1", "not-a-number"}}
	assert.Error(t, WriteDataCells(wb, testSpec(), rows))
}

func TestVerifySnapshotDetectsHeaderMutation(t *testing.T) {
	wb := newTestWorkbook(t)
	defer wb.Close()

	snap, err := SnapshotHeader(wb, testSpec())
	require.NoError(t, err)

	require.NoError(t, wb.SetCellStr("Data", "A1", "Mutated"))
	err = VerifySnapshot(wb, testSpec(), snap)
	assert.Error(t, err)
}

func TestVerifySnapshotPassesWhenUnchanged(t *testing.T) {
	wb := newTestWorkbook(t)
	defer wb.Close()

	snap, err := SnapshotHeader(wb, testSpec())
	require.NoError(t, err)
	assert.NoError(t, VerifySnapshot(wb, testSpec(), snap))
}

func TestUpdateRangeSpansWrittenRows(t *testing.T) {
	wb := newTestWorkbook(t)
	defer wb.Close()

	require.NoError(t, UpdateRange(wb, testSpec(), 3))
	dim, err := wb.GetSheetDimension("Data")
	require.NoError(t, err)
	assert.Equal(t, "A1:B4", dim)
}
