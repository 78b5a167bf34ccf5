package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseContentRangeTotal(t *testing.T) {
	assert.EqualValues(t, 12345, parseContentRangeTotal("bytes 0-1023/12345"))
}

func TestParseContentRangeTotalMalformed(t *testing.T) {
	assert.EqualValues(t, 0, parseContentRangeTotal("not-a-content-range"))
}

func TestParseContentRangeTotalEmpty(t *testing.T) {
	assert.EqualValues(t, 0, parseContentRangeTotal(""))
}
