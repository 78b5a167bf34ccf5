// Package pipeline defines the closed step set and the categorical
// errors the invocation handlers share. Step models the step names the
// invocation interface accepts as a named type rather than a bare
// string: ParseStep rejects any name outside the set, and the dispatch
// on a Step is the switch in orchestrator.Invoke, so adding a step
// means a new constant, a new case in ParseStep and a new case there.
package pipeline

import "fmt"

// Step is one of the fixed invocation step names.
type Step string

const (
	StepParseMerge               Step = "parse_merge"
	StepEanMapping                Step = "ean_mapping"
	StepPricing                   Step = "pricing"
	StepOverrideProducts          Step = "override_products"
	StepExportEan                 Step = "export_ean"
	StepExportEanXlsx             Step = "export_ean_xlsx"
	StepExportMediaworld          Step = "export_mediaworld"
	StepExportEprice              Step = "export_eprice"
	StepExportAmazon              Step = "export_amazon"
	StepComputeTemplateChecksums  Step = "compute_template_checksums"
)

// ParseStep resolves a request's raw step string into a Step, rejecting
// anything outside the closed set.
func ParseStep(raw string) (Step, error) {
	switch Step(raw) {
	case StepParseMerge, StepEanMapping, StepPricing, StepOverrideProducts,
		StepExportEan, StepExportEanXlsx, StepExportMediaworld, StepExportEprice,
		StepExportAmazon, StepComputeTemplateChecksums:
		return Step(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStep, raw)
	}
}
