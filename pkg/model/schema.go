// pkg/model/schema.go
package model

import (
	"regexp"
	"sort"
)

// ColumnType is the primitive type a schema column declares
type ColumnType int

const (
	ColumnTypeText ColumnType = iota
	ColumnTypeNumber
)

// String returns the schema spelling of the column type
func (t ColumnType) String() string {
	switch t {
	case ColumnTypeText:
		return "string"
	case ColumnTypeNumber:
		return "number"
	default:
		return "unknown"
	}
}

// Property describes one column declared in the schema's properties mapping
type Property struct {
	Name      string
	Type      ColumnType
	Enum      []interface{}
	Pattern   *regexp.Regexp // compiled anchored at position 0
	MinLength *int
	MaxLength *int
	Format    string
	Minimum   *float64
	Maximum   *float64

	// Raw is the property document as it appeared in the schema file,
	// used when rendering the responsible schema fragment in reports.
	Raw map[string]interface{}
}

// Schema is a compiled schema document. It is immutable once loaded and safe
// to share between workers.
type Schema struct {
	Properties   map[string]*Property
	Required     []string
	Dependencies map[string][]string

	names []string
}

// NewSchema builds a schema from compiled properties
func NewSchema(props map[string]*Property, required []string, deps map[string][]string) *Schema {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	if deps == nil {
		deps = make(map[string][]string)
	}

	return &Schema{
		Properties:   props,
		Required:     required,
		Dependencies: deps,
		names:        names,
	}
}

// Names returns the declared column names in sorted order
func (s *Schema) Names() []string {
	return s.names
}

// Property returns the declared property for a column, or nil
func (s *Schema) Property(name string) *Property {
	return s.Properties[name]
}

// HasColumn reports whether the column is declared in the schema
func (s *Schema) HasColumn(name string) bool {
	_, ok := s.Properties[name]
	return ok
}

// ColumnTypes returns the column → primitive type map used by the loader
func (s *Schema) ColumnTypes() map[string]ColumnType {
	types := make(map[string]ColumnType, len(s.Properties))
	for name, prop := range s.Properties {
		types[name] = prop.Type
	}
	return types
}
