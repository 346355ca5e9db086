// pkg/cleaner/cleaner.go
package cleaner

import (
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/swatch-db/csv-validate/pkg/model"
)

// RecordCleaner prepares records for validation. A null cell is treated as an
// absent column, not as a type violation.
type RecordCleaner struct {
	logger *zap.Logger
}

// NewRecordCleaner creates a new RecordCleaner instance
func NewRecordCleaner(logger *zap.Logger) *RecordCleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordCleaner{logger: logger}
}

// CleanRecord returns a copy of rec without null-valued columns, plus the
// operations performed. The input record is not modified.
func (c *RecordCleaner) CleanRecord(rec model.Record, row int) (model.Record, []Operation) {
	var operations []Operation
	for col, value := range rec {
		if op := stripNull(row, col, value); op != nil {
			operations = append(operations, *op)
		}
	}

	if len(operations) == 0 {
		return rec, nil
	}

	cleaned := make(model.Record, len(rec)-len(operations))
	for col, value := range rec {
		if value != nil {
			cleaned[col] = value
		}
	}

	c.logger.Debug("Stripped null columns",
		zap.Int("row", row),
		zap.Strings("columns", lo.Map(operations, func(op Operation, _ int) string {
			return op.ColumnName
		})))

	return cleaned, operations
}
