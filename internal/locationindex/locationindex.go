// Package locationindex builds the marketplace-specific stock-location
// index from the auxiliary per-run location file: a mapping from
// material-number to {stock_it, stock_eu}, with a fixed set of named
// counters tracking structural anomalies instead of failing the run.
// Grounded on the indexbuilder package's delimiter/column-matching
// machinery, applied to a narrower three-column feed.
package locationindex

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/feedpipe/catalog-worker/internal/indexbuilder"
	"github.com/feedpipe/catalog-worker/pkg/schema"
)

// Build parses the location feed (semicolon-delimited; columns matnr,
// stock, locationid, case-folded) into a per-material {stock_it,
// stock_eu} map, summing multiple rows for the same material and
// location. It never returns an error for row-level problems — those
// are tracked in the returned warnings instead, per spec.md §3.
func Build(data []byte) (map[string]schema.StockLocations, schema.LocationWarnings, error) {
	var warnings schema.LocationWarnings

	decoded, usedFallback := decodeWithFallback(data)
	if usedFallback {
		warnings.DecodeFallbackUsed++
	}

	lines := splitLines(decoded)
	if len(lines) == 0 {
		warnings.MissingFile++
		return map[string]schema.StockLocations{}, warnings, nil
	}

	delim, ok := indexbuilder.DetectDelimiter(lines[0])
	if !ok || delim != schema.DelimiterSemicolon {
		warnings.SplitDisagreement++
		if !ok {
			warnings.ParseFailure++
			return map[string]schema.StockLocations{}, warnings, nil
		}
	}

	header := strings.Split(lines[0], string(delim))
	matnrIdx, ok := indexbuilder.ResolveColumn(header, indexbuilder.ColMatnr)
	if !ok {
		warnings.ParseFailure++
		return map[string]schema.StockLocations{}, warnings, nil
	}
	stockIdx, ok := indexbuilder.ResolveColumn(header, indexbuilder.ColStock)
	if !ok {
		warnings.ParseFailure++
		return map[string]schema.StockLocations{}, warnings, nil
	}
	locIdx, ok := indexbuilder.ResolveColumn(header, indexbuilder.ColLocationID)
	if !ok {
		warnings.ParseFailure++
		return map[string]schema.StockLocations{}, warnings, nil
	}

	index := map[string]schema.StockLocations{}
	seenEU := map[string]bool{}
	seenOrphan := map[string]bool{}

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		fields := strings.Split(line, string(delim))
		maxIdx := matnrIdx
		if stockIdx > maxIdx {
			maxIdx = stockIdx
		}
		if locIdx > maxIdx {
			maxIdx = locIdx
		}
		if maxIdx >= len(fields) {
			warnings.MissingRow++
			continue
		}

		matnr := strings.TrimSpace(fields[matnrIdx])
		locationID := strings.TrimSpace(fields[locIdx])
		stockStr := strings.TrimSpace(fields[stockIdx])
		if matnr == "" || locationID == "" {
			warnings.MissingRow++
			continue
		}

		qty, err := strconv.ParseInt(stockStr, 10, 64)
		if err != nil || qty < 0 {
			warnings.InvalidStockValue++
			qty = 0
		}

		entry := index[matnr]
		switch locationID {
		case schema.LocationIT:
			entry.StockIT += qty
		case schema.LocationEU:
			entry.StockEU += qty
			seenEU[matnr] = true
		case schema.LocationEUOrphan:
			seenOrphan[matnr] = true
		default:
			// unknown location id: ignored, not tracked as a distinct
			// warning category in the spec's fixed counter set.
		}
		index[matnr] = entry
	}

	for matnr := range seenOrphan {
		if !seenEU[matnr] {
			warnings.OrphanLocation4255++
		}
	}

	return index, warnings, nil
}

func splitLines(data []byte) []string {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// decodeWithFallback returns data unchanged if it is already valid
// UTF-8. Otherwise it retries via a byte-for-byte Latin-1 (ISO-8859-1)
// decode, where every byte 0-255 maps directly to the Unicode code
// point of the same value, and reports that the fallback was used.
func decodeWithFallback(data []byte) ([]byte, bool) {
	if utf8.Valid(data) {
		return data, false
	}

	var b strings.Builder
	b.Grow(len(data) * 2)
	for _, c := range data {
		b.WriteRune(rune(c))
	}
	return []byte(b.String()), true
}
