// pkg/converter/converter.go
package converter

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/swatch-db/csv-validate/pkg/model"
)

// TypeConverter resolves schema types and converts raw CSV cells into
// record values
type TypeConverter struct {
	logger *zap.Logger
	config TypeConverterConfig
	nulls  map[string]struct{}
}

// TypeConverterConfig provides configuration options for cell conversion
type TypeConverterConfig struct {
	// Cell values treated as missing data
	NullTokens []string
	// Whether to trim surrounding whitespace before converting numbers
	TrimNumbers bool
	// Whether undeclared columns get number inference
	InferUndeclared bool
}

// DefaultNullTokens are the cell values read as missing, matching the
// NA tokens recognised by common tabular loaders
var DefaultNullTokens = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// DefaultConfig returns the default configuration
func DefaultConfig() TypeConverterConfig {
	return TypeConverterConfig{
		NullTokens:      DefaultNullTokens,
		TrimNumbers:     true,
		InferUndeclared: true,
	}
}

// NewTypeConverter creates a new TypeConverter with default configuration
func NewTypeConverter(logger *zap.Logger) *TypeConverter {
	return NewTypeConverterWithConfig(logger, DefaultConfig())
}

// NewTypeConverterWithConfig creates a TypeConverter with custom configuration
func NewTypeConverterWithConfig(logger *zap.Logger, config TypeConverterConfig) *TypeConverter {
	if logger == nil {
		logger = zap.NewNop()
	}

	nulls := make(map[string]struct{}, len(config.NullTokens))
	for _, token := range config.NullTokens {
		nulls[token] = struct{}{}
	}

	return &TypeConverter{
		logger: logger,
		config: config,
		nulls:  nulls,
	}
}

// ResolveColumnType maps a schema "type" keyword onto a ColumnType
func ResolveColumnType(typeName string) (model.ColumnType, error) {
	switch strings.TrimSpace(typeName) {
	case "string":
		return model.ColumnTypeText, nil
	case "number":
		return model.ColumnTypeNumber, nil
	case "":
		return 0, fmt.Errorf("missing type")
	default:
		return 0, fmt.Errorf("unknown type %q", typeName)
	}
}

// ColumnConverters builds the per-column conversion plan for a CSV header.
// Columns not declared in types are marked as undeclared.
func (c *TypeConverter) ColumnConverters(header []string, types map[string]model.ColumnType) []ColumnConverter {
	converters := make([]ColumnConverter, len(header))
	for i, name := range header {
		colType, declared := types[name]
		converters[i] = ColumnConverter{
			Name:     name,
			Type:     colType,
			Declared: declared,
		}
		if !declared {
			c.logger.Debug("Column not declared in schema",
				zap.String("column", name),
				zap.Int("position", i))
		}
	}
	return converters
}

// ColumnConverter carries the conversion rule for one CSV column
type ColumnConverter struct {
	Name     string
	Type     model.ColumnType
	Declared bool
}
