package indexbuilder

import (
	"strconv"
	"strings"

	"github.com/feedpipe/catalog-worker/internal/pipeline"
	"github.com/feedpipe/catalog-worker/pkg/schema"
)

// BuildPriceIndex parses the full price feed in one pass, emitting a
// (list_price, best_price, surcharge) triple per matnr. "," is
// accepted as a decimal separator alongside ".". At least one of the
// list-price and best-price columns is required; a missing price or
// surcharge column yields zero in that slot.
func BuildPriceIndex(data []byte) (schema.PriceIndex, error) {
	lines := splitLines(data)
	if len(lines) == 0 {
		return nil, pipeline.ErrHeaderAbsent("price feed is empty")
	}

	delim, ok := DetectDelimiter(lines[0])
	if !ok {
		return nil, pipeline.ErrDelimiterUndetectable("price feed header")
	}

	header := strings.Split(lines[0], string(delim))
	matnrIdx, ok := ResolveColumn(header, ColMatnr)
	if !ok {
		return nil, pipeline.ErrRequiredColumnMissing("price feed: " + ColMatnr)
	}
	lpIdx, hasLP := ResolveColumn(header, ColListPrice)
	bpIdx, hasBP := ResolveColumn(header, ColBestPrice)
	surIdx, hasSur := ResolveColumn(header, ColSurcharge)
	if !hasLP && !hasBP {
		return nil, pipeline.ErrRequiredColumnMissing("price feed: " + ColListPrice + " or " + ColBestPrice)
	}

	index := schema.PriceIndex{}
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		fields := strings.Split(line, string(delim))
		if matnrIdx >= len(fields) {
			continue
		}
		matnr := strings.TrimSpace(fields[matnrIdx])
		if matnr == "" {
			continue
		}

		triple := schema.PriceTriple{}
		if hasLP && lpIdx < len(fields) {
			triple.ListPrice = parseDecimal(fields[lpIdx])
		}
		if hasBP && bpIdx < len(fields) {
			triple.BestPrice = parseDecimal(fields[bpIdx])
		}
		if hasSur && surIdx < len(fields) {
			triple.Surcharge = parseDecimal(fields[surIdx])
		}
		index[matnr] = triple
	}

	return index, nil
}

func parseDecimal(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
