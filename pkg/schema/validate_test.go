package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFeeConfigAccepts(t *testing.T) {
	body := `{"feeDrev": 1.5, "shippingCost": 2.0, "mediaworldItPrepDays": 3}`
	assert.NoError(t, Validate(FeeConfigSchema, strings.NewReader(body)))
}

func TestValidateFeeConfigRejectsNegativeShippingCost(t *testing.T) {
	body := `{"shippingCost": -1}`
	assert.Error(t, Validate(FeeConfigSchema, strings.NewReader(body)))
}

func TestValidateFeeConfigRejectsNegativePrepDays(t *testing.T) {
	body := `{"amazonItPrepDays": -2}`
	assert.Error(t, Validate(FeeConfigSchema, strings.NewReader(body)))
}

func TestValidateFeeConfigRejectsMalformedJSON(t *testing.T) {
	assert.Error(t, Validate(FeeConfigSchema, strings.NewReader("not json")))
}
