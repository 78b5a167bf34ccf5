package marketplace

import "fmt"

// GoldenCase is one fixed input-output pair regression-testing
// ResolveStock.
type GoldenCase struct {
	Name     string
	Input    StockInput
	Expected StockResolution
}

// GoldenCases is the fixed table checked on every invocation (and
// again periodically by the maintenance sweep).
var GoldenCases = []GoldenCase{
	{
		Name:     "no_stock_anywhere",
		Input:    StockInput{StockIT: 0, StockEU: 0, IncludeEU: true, ItPrepDays: 3, EuPrepDays: 5},
		Expected: StockResolution{ExportQty: 0, LeadDays: 0, ShouldExport: false, Source: SourceNone},
	},
	{
		Name:     "domestic_only",
		Input:    StockInput{StockIT: 4, StockEU: 0, IncludeEU: true, ItPrepDays: 2, EuPrepDays: 6},
		Expected: StockResolution{ExportQty: 4, LeadDays: 2, ShouldExport: true, Source: SourceDomestic},
	},
	{
		Name:     "eu_only",
		Input:    StockInput{StockIT: 0, StockEU: 3, IncludeEU: true, ItPrepDays: 2, EuPrepDays: 6},
		Expected: StockResolution{ExportQty: 3, LeadDays: 6, ShouldExport: true, Source: SourceEUFallback},
	},
	{
		Name:     "eu_fallback_combined",
		Input:    StockInput{StockIT: 1, StockEU: 1, IncludeEU: true, ItPrepDays: 3, EuPrepDays: 5},
		Expected: StockResolution{ExportQty: 2, LeadDays: 5, ShouldExport: true, Source: SourceEUFallback},
	},
	{
		Name:     "eu_excluded_by_flag",
		Input:    StockInput{StockIT: 2, StockEU: 9, IncludeEU: false, ItPrepDays: 1, EuPrepDays: 9},
		Expected: StockResolution{ExportQty: 2, LeadDays: 1, ShouldExport: true, Source: SourceDomestic},
	},
	{
		Name:     "eu_stock_without_include_and_no_domestic",
		Input:    StockInput{StockIT: 0, StockEU: 9, IncludeEU: false, ItPrepDays: 1, EuPrepDays: 9},
		Expected: StockResolution{ExportQty: 0, LeadDays: 0, ShouldExport: false, Source: SourceNone},
	},
	{
		Name:     "domestic_threshold_met_with_eu_present",
		Input:    StockInput{StockIT: 5, StockEU: 3, IncludeEU: true, ItPrepDays: 2, EuPrepDays: 9},
		Expected: StockResolution{ExportQty: 5, LeadDays: 2, ShouldExport: true, Source: SourceDomestic},
	},
}

// SelfCheck runs every golden case against ResolveStock and returns an
// error naming the first mismatch found, or nil if all pass.
func SelfCheck() error {
	for _, c := range GoldenCases {
		got := ResolveStock(c.Input)
		if got != c.Expected {
			return fmt.Errorf("marketplace: golden case %q: got %+v, want %+v", c.Name, got, c.Expected)
		}
	}
	return nil
}
