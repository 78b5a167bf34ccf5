package indexbuilder

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/feedpipe/catalog-worker/internal/pipeline"
	"github.com/feedpipe/catalog-worker/pkg/schema"
)

// BuildStockIndex parses the full stock feed in one pass. Each row's
// first column resolved to matnr is the key; the column resolved to
// stock is the integer quantity. Non-numeric quantities count as zero
// plus a counter bump, rather than failing the run.
func BuildStockIndex(data []byte) (schema.StockIndex, int64, error) {
	lines := splitLines(data)
	if len(lines) == 0 {
		return nil, 0, pipeline.ErrHeaderAbsent("stock feed is empty")
	}

	delim, ok := DetectDelimiter(lines[0])
	if !ok {
		return nil, 0, pipeline.ErrDelimiterUndetectable("stock feed header")
	}

	header := strings.Split(lines[0], string(delim))
	matnrIdx, ok := ResolveColumn(header, ColMatnr)
	if !ok {
		return nil, 0, pipeline.ErrRequiredColumnMissing("stock feed: " + ColMatnr)
	}
	stockIdx, ok := ResolveColumn(header, ColStock)
	if !ok {
		return nil, 0, pipeline.ErrRequiredColumnMissing("stock feed: " + ColStock)
	}

	index := schema.StockIndex{}
	var invalidCount int64

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		fields := strings.Split(line, string(delim))
		if matnrIdx >= len(fields) || stockIdx >= len(fields) {
			continue
		}
		matnr := strings.TrimSpace(fields[matnrIdx])
		if matnr == "" {
			continue
		}
		qtyStr := strings.TrimSpace(fields[stockIdx])
		qty, err := strconv.ParseInt(qtyStr, 10, 64)
		if err != nil || qty < 0 {
			invalidCount++
			index[matnr] = 0
			continue
		}
		index[matnr] = qty
	}

	return index, invalidCount, nil
}

func splitLines(data []byte) []string {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}) // strip BOM
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}
