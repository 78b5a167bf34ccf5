package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveStockGoldenCases(t *testing.T) {
	for _, c := range GoldenCases {
		t.Run(c.Name, func(t *testing.T) {
			got := ResolveStock(c.Input)
			assert.Equal(t, c.Expected, got)
		})
	}
}

func TestResolveStockLeadDaysZeroWhenNotExported(t *testing.T) {
	got := ResolveStock(StockInput{StockIT: 0, StockEU: 0, IncludeEU: true, ItPrepDays: 7, EuPrepDays: 9})
	assert.False(t, got.ShouldExport)
	assert.Zero(t, got.LeadDays)
}

func TestResolveStockIsPure(t *testing.T) {
	in := StockInput{StockIT: 3, StockEU: 2, IncludeEU: true, ItPrepDays: 1, EuPrepDays: 4}
	first := ResolveStock(in)
	second := ResolveStock(in)
	assert.Equal(t, first, second)
}

func TestSelfCheck(t *testing.T) {
	assert.NoError(t, SelfCheck())
}
