// Package config loads and validates the worker's program configuration,
// mirroring the teacher's internal/config package: a package-level Keys
// value with defaults, overwritten by an optional JSON file validated
// against the embedded config schema before being decoded.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/feedpipe/catalog-worker/pkg/log"
	"github.com/feedpipe/catalog-worker/pkg/schema"
)

// ProgramConfig is the top-level configuration for the worker process.
type ProgramConfig struct {
	Addr                string `json:"addr"`
	DBDriver            string `json:"dbDriver"`
	DB                  string `json:"db"`
	ImportBucket        string `json:"importBucket"`
	ExportsBucket       string `json:"exportsBucket"`
	S3Endpoint          string `json:"s3Endpoint"`
	S3Region            string `json:"s3Region"`
	NatsAddress         string `json:"natsAddress"`
	StaleLeaseWindow    string `json:"staleLeaseWindow"`
	InvocationBudgetMs  int    `json:"invocationBudgetMs"`
}

// StaleLeaseWindowDuration parses StaleLeaseWindow, falling back to 1h
// if unset or malformed.
func (c ProgramConfig) StaleLeaseWindowDuration() time.Duration {
	if c.StaleLeaseWindow == "" {
		return time.Hour
	}
	d, err := time.ParseDuration(c.StaleLeaseWindow)
	if err != nil {
		log.Warnf("config: invalid staleLeaseWindow %q, defaulting to 1h: %v", c.StaleLeaseWindow, err)
		return time.Hour
	}
	return d
}

// InvocationBudget returns the per-invocation time budget, defaulting to
// the 8s budget from the invocation contract.
func (c ProgramConfig) InvocationBudget() time.Duration {
	if c.InvocationBudgetMs <= 0 {
		return schema.InvocationBudget
	}
	return time.Duration(c.InvocationBudgetMs) * time.Millisecond
}

// Keys holds the process-wide configuration, seeded with defaults and
// overwritten by Init.
var Keys ProgramConfig = ProgramConfig{
	Addr:               ":8090",
	DBDriver:           "sqlite3",
	DB:                 "./var/checkpoint.db",
	ImportBucket:       "ftp-import",
	ExportsBucket:      "exports",
	InvocationBudgetMs: int(schema.InvocationBudget / time.Millisecond),
}

// Init reads flagConfigFile, if present, validates it against the
// embedded program-config schema, and decodes it over the defaults in
// Keys. A missing file is not an error; the defaults are kept as-is.
func Init(flagConfigFile string) error {
	raw, err := os.ReadFile(flagConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			log.Infof("config: %s not found, using defaults", flagConfigFile)
			return nil
		}
		return err
	}

	if err := schema.Validate(schema.ProgramConfigSchema, bytes.NewReader(raw)); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		return err
	}

	if Keys.ImportBucket == "" || Keys.ExportsBucket == "" {
		log.Abortf("config: importBucket and exportsBucket are required")
	}

	return nil
}
