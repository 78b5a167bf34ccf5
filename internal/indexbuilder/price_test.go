package indexbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPriceIndexParsesDecimalCommaAndDot(t *testing.T) {
	data := []byte("matnr;listprice;bestprice;surcharge\nA1;1,50;1.20;0\n")
	idx, err := BuildPriceIndex(data)
	require.NoError(t, err)
	assert.Equal(t, 1.50, idx["A1"].ListPrice)
	assert.Equal(t, 1.20, idx["A1"].BestPrice)
	assert.Equal(t, 0.0, idx["A1"].Surcharge)
}

func TestBuildPriceIndexMissingOptionalColumnsDefaultZero(t *testing.T) {
	data := []byte("matnr;listprice\nA1;2.00\n")
	idx, err := BuildPriceIndex(data)
	require.NoError(t, err)
	assert.Equal(t, 2.00, idx["A1"].ListPrice)
	assert.Equal(t, 0.0, idx["A1"].BestPrice)
}

func TestBuildPriceIndexRequiresListOrBestPrice(t *testing.T) {
	data := []byte("matnr;surcharge\nA1;1\n")
	_, err := BuildPriceIndex(data)
	assert.Error(t, err)
}

func TestBuildPriceIndexEmptyFeedErrors(t *testing.T) {
	_, err := BuildPriceIndex([]byte{})
	assert.Error(t, err)
}
