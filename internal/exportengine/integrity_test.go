package exportengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareDigestMatches(t *testing.T) {
	assert.NoError(t, compareDigest([]byte("abc"), []byte("abc")))
}

func TestCompareDigestLengthMismatch(t *testing.T) {
	assert.Error(t, compareDigest([]byte("abc"), []byte("abcd")))
}

func TestCompareDigestContentMismatch(t *testing.T) {
	assert.Error(t, compareDigest([]byte("abc"), []byte("abd")))
}

func TestExtractSheetViewsPrefixClosedTag(t *testing.T) {
	xml := []byte(`<worksheet><sheetViews><sheetView workbookViewId="0"/></sheetViews><sheetData></sheetData></worksheet>`)
	got, err := extractSheetViewsPrefix(xml)
	require.NoError(t, err)
	assert.Equal(t, `<sheetViews><sheetView workbookViewId="0"/></sheetViews>`, string(got))
}

func TestExtractSheetViewsPrefixSelfClosing(t *testing.T) {
	xml := []byte(`<worksheet><sheetViews a="1"/><sheetData></sheetData></worksheet>`)
	got, err := extractSheetViewsPrefix(xml)
	require.NoError(t, err)
	assert.Equal(t, `<sheetViews a="1"/>`, string(got))
}

func TestExtractSheetViewsPrefixAbsent(t *testing.T) {
	xml := []byte(`<worksheet><sheetData></sheetData></worksheet>`)
	got, err := extractSheetViewsPrefix(xml)
	require.NoError(t, err)
	assert.Nil(t, got)
}
