package validator

import (
	"fmt"
	"strings"

	"github.com/swatch-db/csv-validate/pkg/model"
)

// repr renders a value for a failure message: strings single-quoted,
// numbers in plain decimal form
func repr(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case string:
		return "'" + strings.ReplaceAll(val, "'", `\'`) + "'"
	case float64:
		return model.FormatNumber(val)
	case bool:
		if val {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprintf("%v", val)
	}
}

func reprList(values []interface{}) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = repr(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
