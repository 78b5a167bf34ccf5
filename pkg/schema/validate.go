package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/feedpipe/catalog-worker/pkg/log"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Kind selects which embedded JSON schema Validate compiles against.
type Kind int

const (
	ProgramConfigSchema Kind = iota + 1
	FeeConfigSchema
)

//go:embed schemas/*
var schemaFiles embed.FS

func loadSchema(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Host + u.Path)
}

func init() {
	jsonschema.Loaders["embedfs"] = loadSchema
}

// Validate decodes r as JSON and checks it against the schema selected
// by k, mirroring the teacher's pkg/schema/validate.go.
func Validate(k Kind, r io.Reader) error {
	var s *jsonschema.Schema
	var err error

	switch k {
	case ProgramConfigSchema:
		s, err = jsonschema.Compile("embedFS://schemas/config.schema.json")
	case FeeConfigSchema:
		s, err = jsonschema.Compile("embedFS://schemas/fee-config.schema.json")
	default:
		return fmt.Errorf("schema: unknown kind")
	}
	if err != nil {
		return err
	}

	var v interface{}
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		log.Errorf("schema.Validate: failed to decode instance: %v", err)
		return err
	}

	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}
