package indexbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveColumnExactAlias(t *testing.T) {
	header := []string{"Material_Number", "EAN13", "Bestand"}
	idx, ok := ResolveColumn(header, ColMatnr)
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = ResolveColumn(header, ColStock)
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
}

func TestResolveColumnSubstringFallback(t *testing.T) {
	header := []string{"the_listprice_field"}
	idx, ok := ResolveColumn(header, ColListPrice)
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestResolveColumnNotFound(t *testing.T) {
	_, ok := ResolveColumn([]string{"unrelated"}, ColSurcharge)
	assert.False(t, ok)
}
