package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorStringIncludesDetail(t *testing.T) {
	err := ErrArtifactMissing("stock index")
	assert.Equal(t, "artifact_missing: stock index", err.Error())
}

func TestErrorStringOmitsEmptyDetail(t *testing.T) {
	assert.Equal(t, "unknown_step", ErrUnknownStep.Error())
}

func TestFatalByCategory(t *testing.T) {
	assert.False(t, ErrLeaseLost("").Fatal())
	assert.True(t, ErrContentRangeMismatch("").Fatal())
	assert.True(t, ErrRequiredColumnMissing("").Fatal())
}

func TestAsCategoricalUnwrapsWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", ErrHeaderAbsent("no header"))
	cat, ok := AsCategorical(wrapped)
	assert.True(t, ok)
	assert.Equal(t, CategoryInputMalformed, cat.Category)
}

func TestAsCategoricalFalseForPlainError(t *testing.T) {
	_, ok := AsCategorical(fmt.Errorf("plain"))
	assert.False(t, ok)
}
