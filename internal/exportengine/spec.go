// Package exportengine renders marketplace spreadsheets that must stay
// bit-identical to a pinned OOXML template except in a declared data
// region. It treats a template as three observable layers: the parsed
// workbook (sheets/cells, via excelize), the raw ZIP directory (part
// path to bytes), and selected XML parts read as text — exactly the
// three layers spec.md §4.5 calls out, because the spreadsheet library
// alone cannot enforce byte-for-byte fidelity in the untouched parts.
package exportengine

// TemplateSpec pins one marketplace export's template, its declared
// data region, and the sheets whose XML must never change.
type TemplateSpec struct {
	Name             string
	TemplatePath     string // object key under the exports bucket's templates/ prefix
	TemplateSHA256   string // hex-encoded, hard-coded per spec.md §4.5
	RequiredSheets   []string
	DataSheet        string
	ProtectedSheets  []string
	HeaderRows       int // 1 or 2
	FirstDataRow     int // row 3 for marketplace A, row 2 elsewhere
	Columns          []ColumnSpec
	RowParseLimit    int // 0 means no limit; >0 trims the data sheet to that many rows right after parse (the EAN export's 2-row cap); the whole sheet is still parsed first
}

// ColumnKind controls the explicit value/type/number-format attributes
// written per cell (spec.md §4.5 step 5).
type ColumnKind int

const (
	ColumnKindString  ColumnKind = iota // forced string type, number format "@" — EAN-like identifiers
	ColumnKindInteger                   // number format "0"
	ColumnKindMoney                     // number format "0.00"
)

// ColumnSpec is one output column's position and declared type.
type ColumnSpec struct {
	Header string
	Col    string // spreadsheet column letter, e.g. "A"
	Kind   ColumnKind
}

// Specs lists the three marketplace-specific exports plus the EAN
// catalog's spreadsheet variant. The digests here are placeholders:
// production deployment pins the real SHA-256 of each template file,
// recorded at the time the template is frozen (see DESIGN.md).
var Specs = map[string]TemplateSpec{
	"export_ean_xlsx": {
		Name:           "ean_catalog",
		TemplatePath:   "templates/ean_catalog.xlsx",
		TemplateSHA256: "0000000000000000000000000000000000000000000000000000000000000",
		RequiredSheets: []string{"Data"},
		DataSheet:      "Data",
		HeaderRows:     1,
		FirstDataRow:   2,
		RowParseLimit:  2,
		Columns: []ColumnSpec{
			{Header: "Matnr", Col: "A", Kind: ColumnKindString},
			{Header: "MPN", Col: "B", Kind: ColumnKindString},
			{Header: "EAN", Col: "C", Kind: ColumnKindString},
			{Header: "Description", Col: "D", Kind: ColumnKindString},
			{Header: "Stock", Col: "E", Kind: ColumnKindInteger},
			{Header: "ListPrice", Col: "F", Kind: ColumnKindMoney},
			{Header: "BestPrice", Col: "G", Kind: ColumnKindMoney},
			{Header: "Surcharge", Col: "H", Kind: ColumnKindMoney},
		},
	},
	"export_mediaworld": {
		Name:            "mediaworld",
		TemplatePath:    "templates/mediaworld.xlsx",
		TemplateSHA256:  "0000000000000000000000000000000000000000000000000000000000000",
		RequiredSheets:  []string{"Data", "ReferenceData", "Columns"},
		DataSheet:       "Data",
		ProtectedSheets: []string{"ReferenceData", "Columns"},
		HeaderRows:      2,
		FirstDataRow:    3,
		Columns: []ColumnSpec{
			{Header: "Matnr", Col: "A", Kind: ColumnKindString},
			{Header: "EAN", Col: "B", Kind: ColumnKindString},
			{Header: "Description", Col: "C", Kind: ColumnKindString},
			{Header: "Qty", Col: "D", Kind: ColumnKindInteger},
			{Header: "Price", Col: "E", Kind: ColumnKindMoney},
			{Header: "LeadDays", Col: "F", Kind: ColumnKindInteger},
		},
	},
	"export_eprice": {
		Name:            "eprice",
		TemplatePath:    "templates/eprice.xlsx",
		TemplateSHA256:  "0000000000000000000000000000000000000000000000000000000000000",
		RequiredSheets:  []string{"Data", "ReferenceData", "Columns"},
		DataSheet:       "Data",
		ProtectedSheets: []string{"ReferenceData", "Columns"},
		HeaderRows:      2,
		FirstDataRow:    3,
		Columns: []ColumnSpec{
			{Header: "Matnr", Col: "A", Kind: ColumnKindString},
			{Header: "EAN", Col: "B", Kind: ColumnKindString},
			{Header: "Description", Col: "C", Kind: ColumnKindString},
			{Header: "Qty", Col: "D", Kind: ColumnKindInteger},
			{Header: "Price", Col: "E", Kind: ColumnKindMoney},
			{Header: "LeadDays", Col: "F", Kind: ColumnKindInteger},
		},
	},
	"export_amazon": {
		Name:            "amazon",
		TemplatePath:    "templates/amazon.xlsx",
		TemplateSHA256:  "0000000000000000000000000000000000000000000000000000000000000",
		RequiredSheets:  []string{"Data", "ReferenceData", "Columns"},
		DataSheet:       "Data",
		ProtectedSheets: []string{"ReferenceData", "Columns"},
		HeaderRows:      2,
		FirstDataRow:    3,
		Columns: []ColumnSpec{
			{Header: "Matnr", Col: "A", Kind: ColumnKindString},
			{Header: "EAN", Col: "B", Kind: ColumnKindString},
			{Header: "Description", Col: "C", Kind: ColumnKindString},
			{Header: "Qty", Col: "D", Kind: ColumnKindInteger},
			{Header: "Price", Col: "E", Kind: ColumnKindMoney},
			{Header: "LeadDays", Col: "F", Kind: ColumnKindInteger},
		},
	},
}
