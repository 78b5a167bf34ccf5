// Package marketplace implements the stock-resolution function shared
// by the marketplace exporters: a pure function of domestic and
// cross-border stock levels, with no side effects, so it can be
// regression-tested against a fixed golden-case table on every
// invocation (spec.md §4.5, §8).
package marketplace

// Source identifies which stock pool a resolved export quantity was
// sourced from.
type Source string

const (
	SourceNone       Source = "NONE"
	SourceDomestic   Source = "IT"
	SourceEUFallback Source = "EU_FALLBACK"
)

// StockInput bundles the domestic-first/cross-border-fallback inputs.
type StockInput struct {
	StockIT    int64
	StockEU    int64
	IncludeEU  bool
	ItPrepDays int
	EuPrepDays int
}

// StockResolution is the pure result of ResolveStock.
type StockResolution struct {
	ExportQty    int64
	LeadDays     int
	ShouldExport bool
	Source       Source
}

// minExportQty is the minimum quantity either branch requires before a
// row is exported at all.
const minExportQty = 2

// ResolveStock applies domestic-first/cross-border-fallback semantics
// in the exact branch order the stock-resolution contract requires:
// domestic stock alone is checked first whenever cross-border
// inclusion would otherwise apply, and only once that is rejected does
// the combined domestic+EU total get a chance. When should_export is
// false, lead_days is always zero.
func ResolveStock(in StockInput) StockResolution {
	if !in.IncludeEU {
		if in.StockIT >= minExportQty {
			return StockResolution{ExportQty: in.StockIT, LeadDays: in.ItPrepDays, ShouldExport: true, Source: SourceDomestic}
		}
		return StockResolution{ExportQty: 0, LeadDays: 0, ShouldExport: false, Source: SourceNone}
	}

	if in.StockIT >= minExportQty {
		return StockResolution{ExportQty: in.StockIT, LeadDays: in.ItPrepDays, ShouldExport: true, Source: SourceDomestic}
	}

	total := in.StockIT + in.StockEU
	if total >= minExportQty {
		return StockResolution{ExportQty: total, LeadDays: in.EuPrepDays, ShouldExport: true, Source: SourceEUFallback}
	}

	return StockResolution{ExportQty: 0, LeadDays: 0, ShouldExport: false, Source: SourceNone}
}
