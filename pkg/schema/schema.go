// Package schema loads and compiles schema documents.
package schema

import (
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"

	"github.com/goccy/go-json"

	"github.com/swatch-db/csv-validate/pkg/converter"
	"github.com/swatch-db/csv-validate/pkg/model"
)

type document struct {
	Properties   map[string]map[string]interface{} `json:"properties"`
	Required     []string                          `json:"required"`
	Dependencies map[string]json.RawMessage        `json:"dependencies"`
}

// Load reads and compiles the schema document at path
func Load(path string) (*model.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.IOError{Op: "read schema", Path: path, Err: err}
	}
	return Parse(data, path)
}

// Parse compiles a schema document. path is only used in error messages.
func Parse(data []byte, path string) (*model.Schema, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &model.SchemaError{Path: path, Err: fmt.Errorf("decode: %w", err)}
	}

	if doc.Properties == nil {
		return nil, &model.SchemaError{Path: path, Err: errors.New("missing properties")}
	}

	props := make(map[string]*model.Property, len(doc.Properties))
	for name, raw := range doc.Properties {
		prop, err := compileProperty(name, raw)
		if err != nil {
			return nil, &model.SchemaError{Path: path, Column: name, Err: err}
		}
		props[name] = prop
	}

	deps := make(map[string][]string, len(doc.Dependencies))
	for name, raw := range doc.Dependencies {
		var cols []string
		if err := json.Unmarshal(raw, &cols); err != nil {
			return nil, &model.SchemaError{
				Path:   path,
				Column: name,
				Err:    errors.New("dependencies must be an array of column names"),
			}
		}
		deps[name] = cols
	}

	return model.NewSchema(props, doc.Required, deps), nil
}

func compileProperty(name string, raw map[string]interface{}) (*model.Property, error) {
	if raw == nil {
		return nil, errors.New("property must be an object")
	}

	typeName, _ := raw["type"].(string)
	colType, err := converter.ResolveColumnType(typeName)
	if err != nil {
		return nil, err
	}

	prop := &model.Property{
		Name: name,
		Type: colType,
		Raw:  raw,
	}

	if v, ok := raw["enum"]; ok {
		enum, ok := v.([]interface{})
		if !ok {
			return nil, errors.New("enum must be an array")
		}
		prop.Enum = enum
	}

	if v, ok := raw["pattern"]; ok {
		pattern, ok := v.(string)
		if !ok {
			return nil, errors.New("pattern must be a string")
		}
		// anchored at the start only, matching the prefix semantics of the
		// reference validator
		re, err := regexp.Compile("^(?:" + pattern + ")")
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		prop.Pattern = re
	}

	if prop.MinLength, err = lengthKeyword(raw, "minLength"); err != nil {
		return nil, err
	}
	if prop.MaxLength, err = lengthKeyword(raw, "maxLength"); err != nil {
		return nil, err
	}
	if prop.Minimum, err = numberKeyword(raw, "minimum"); err != nil {
		return nil, err
	}
	if prop.Maximum, err = numberKeyword(raw, "maximum"); err != nil {
		return nil, err
	}

	if v, ok := raw["format"]; ok {
		format, ok := v.(string)
		if !ok {
			return nil, errors.New("format must be a string")
		}
		prop.Format = format
	}

	return prop, nil
}

func numberKeyword(raw map[string]interface{}, key string) (*float64, error) {
	v, ok := raw[key]
	if !ok {
		return nil, nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &f, nil
}

func lengthKeyword(raw map[string]interface{}, key string) (*int, error) {
	f, err := numberKeyword(raw, key)
	if err != nil || f == nil {
		return nil, err
	}
	if *f < 0 || *f != math.Trunc(*f) {
		return nil, fmt.Errorf("%s must be a non-negative integer", key)
	}
	n := int(*f)
	return &n, nil
}
