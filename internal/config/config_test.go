package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/feedpipe/catalog-worker/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaleLeaseWindowDurationDefaultsOnEmpty(t *testing.T) {
	c := ProgramConfig{}
	assert.Equal(t, time.Hour, c.StaleLeaseWindowDuration())
}

func TestStaleLeaseWindowDurationParsesValue(t *testing.T) {
	c := ProgramConfig{StaleLeaseWindow: "30m"}
	assert.Equal(t, 30*time.Minute, c.StaleLeaseWindowDuration())
}

func TestStaleLeaseWindowDurationFallsBackOnMalformed(t *testing.T) {
	c := ProgramConfig{StaleLeaseWindow: "not-a-duration"}
	assert.Equal(t, time.Hour, c.StaleLeaseWindowDuration())
}

func TestInvocationBudgetDefaultsWhenUnset(t *testing.T) {
	c := ProgramConfig{}
	assert.Equal(t, schema.InvocationBudget, c.InvocationBudget())
}

func TestInvocationBudgetHonorsOverride(t *testing.T) {
	c := ProgramConfig{InvocationBudgetMs: 5000}
	assert.Equal(t, 5*time.Second, c.InvocationBudget())
}

func TestInitMissingFileKeepsDefaults(t *testing.T) {
	before := Keys
	defer func() { Keys = before }()

	err := Init(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Equal(t, before, Keys)
}

func TestInitLoadsValidFile(t *testing.T) {
	before := Keys
	defer func() { Keys = before }()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"addr": ":9999",
		"dbDriver": "sqlite3",
		"db": "./var/test.db",
		"importBucket": "import-bucket",
		"exportsBucket": "exports-bucket"
	}`), 0o644))

	require.NoError(t, Init(path))
	assert.Equal(t, ":9999", Keys.Addr)
	assert.Equal(t, "import-bucket", Keys.ImportBucket)
}
