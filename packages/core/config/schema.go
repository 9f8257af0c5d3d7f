package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Schema is the JSON schema of a challenge tree document.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "flagrun challenge tree",
  "definitions": {
    "leaf": {
      "type": "object",
      "required": ["runtime", "tests"],
      "properties": {
        "runtime": {"type": "string", "minLength": 1},
        "tests": {"type": "array", "items": {"type": "string"}},
        "name": {"type": "string"}
      },
      "additionalProperties": {"not": {"type": "object"}}
    },
    "internal": {
      "type": "object",
      "not": {"required": ["runtime"]},
      "additionalProperties": {"$ref": "#/definitions/node"}
    },
    "node": {
      "oneOf": [
        {"$ref": "#/definitions/leaf"},
        {"$ref": "#/definitions/internal"}
      ]
    }
  },
  "$ref": "#/definitions/node"
}`

var schemaLoader = gojsonschema.NewStringLoader(Schema)

// Validate checks a JSON document against Schema.
func Validate(data []byte) error {
	return validate(gojsonschema.NewBytesLoader(data))
}

// ValidateFile checks a JSON or YAML challenge tree file against Schema.
func ValidateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ConfigError{Msg: fmt.Sprintf("cannot open config file %s", path), Err: err}
	}

	if !isYAMLPath(path) {
		return Validate(data)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return &ConfigError{Msg: "document is not valid YAML", Err: err}
	}
	return validate(gojsonschema.NewGoLoader(doc))
}

func validate(document gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(schemaLoader, document)
	if err != nil {
		return &ConfigError{Msg: "schema validation error", Err: err}
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return configErrorf("", "schema validation failed: %s", strings.Join(problems, "; "))
}
