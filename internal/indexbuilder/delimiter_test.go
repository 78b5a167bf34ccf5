package indexbuilder

import (
	"testing"

	"github.com/feedpipe/catalog-worker/pkg/schema"
	"github.com/stretchr/testify/assert"
)

func TestDetectDelimiterPicksHighestCount(t *testing.T) {
	d, ok := DetectDelimiter("matnr;stock;locationid")
	assert.True(t, ok)
	assert.Equal(t, schema.DelimiterSemicolon, d)
}

func TestDetectDelimiterTabWinsOverSemicolon(t *testing.T) {
	d, ok := DetectDelimiter("matnr\tmpn\tean;desc")
	assert.True(t, ok)
	assert.Equal(t, schema.DelimiterTab, d)
}

func TestDetectDelimiterNoCandidateFound(t *testing.T) {
	_, ok := DetectDelimiter("justonecolumn")
	assert.False(t, ok)
}
