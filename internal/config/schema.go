// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

package config

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the generated config schema.
const SchemaID = "https://credcore.dev/schemas/config.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jschema.Schema
	compileErr     error
)

// GenerateSchema returns the JSON schema of the YAML config file.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := r.Reflect(&Config{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "credcore configuration"
	schema.Description = "Schema for the credcore YAML config file"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

// ValidateYAML checks a YAML config document against the schema. Unknown
// keys and wrongly typed values are rejected. An empty document is valid.
func ValidateYAML(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	if doc == nil {
		return nil
	}

	sch, err := compiled()
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}
	if err := sch.Validate(toJSONTypes(doc)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func compiled() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, compileErr = compile()
	})
	return compiledSchema, compileErr
}

func compile() (*jschema.Schema, error) {
	raw, err := GenerateSchema()
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema JSON: %w", err)
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("config.schema.json", doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	return c.Compile("config.schema.json") //nolint:wrapcheck // caller wraps
}

// toJSONTypes rewrites yaml.v3 output into the value types the validator
// expects: integers become float64 and nested containers are walked.
func toJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = toJSONTypes(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toJSONTypes(item)
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	default:
		return val
	}
}
