package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStepAcceptsClosedSet(t *testing.T) {
	step, err := ParseStep("parse_merge")
	require.NoError(t, err)
	assert.Equal(t, StepParseMerge, step)
}

func TestParseStepRejectsUnknownValue(t *testing.T) {
	_, err := ParseStep("delete_everything")
	require.Error(t, err)
	cat, ok := AsCategorical(err)
	require.True(t, ok)
	assert.Equal(t, CategoryInputMalformed, cat.Category)
}
