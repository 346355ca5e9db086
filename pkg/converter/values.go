// pkg/converter/values.go
package converter

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/swatch-db/csv-validate/pkg/model"
)

var (
	decimalNumber = regexp.MustCompile(`^[+-]?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)
	nonFinite     = regexp.MustCompile(`^[+-]?(?i:nan|inf|infinity)$`)
)

// IsNull determines if a raw cell should be treated as missing
func (c *TypeConverter) IsNull(raw string) bool {
	_, ok := c.nulls[raw]
	return ok
}

// ConvertCell converts one raw CSV cell according to its column's rule.
// Null cells become nil, as do NaN and infinite numbers. A number column
// holding unparseable text keeps the raw string so the validator can reject
// it with a type failure.
func (c *TypeConverter) ConvertCell(raw string, col ColumnConverter) interface{} {
	if c.IsNull(raw) {
		return nil
	}

	if !col.Declared {
		if !c.config.InferUndeclared {
			return raw
		}
		return c.InferValue(raw)
	}

	switch col.Type {
	case model.ColumnTypeNumber:
		if v, ok := c.parseNumber(raw); ok {
			return v
		}
		c.logger.Debug("Keeping unparseable number cell as text",
			zap.String("column", col.Name))
		return raw
	default:
		return raw
	}
}

// InferValue returns a float64 when the cell parses as a number and the raw
// text otherwise
func (c *TypeConverter) InferValue(raw string) interface{} {
	if c.IsNull(raw) {
		return nil
	}
	if v, ok := c.parseNumber(raw); ok {
		return v
	}
	return raw
}

// parseNumber accepts plain decimal and exponent forms only. The value is
// nil when the number is not finite.
func (c *TypeConverter) parseNumber(raw string) (interface{}, bool) {
	s := raw
	if c.config.TrimNumbers {
		s = strings.TrimSpace(s)
	}
	if nonFinite.MatchString(s) {
		return nil, true
	}
	if !decimalNumber.MatchString(s) {
		return nil, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nil, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, true
	}
	return f, true
}
