// pkg/cleaner/operations.go
package cleaner

// Operation records one change the cleaner made to a record
type Operation struct {
	Row           int         // absolute data row
	ColumnName    string      // column that was cleaned
	OriginalValue interface{} // value before cleaning (may be nil)
	Operation     string      // type of cleaning performed (e.g., "strip_null")
	Reason        string      // reason for cleaning (e.g., "missing_value")
}

const (
	OpStripNull = "strip_null"

	ReasonMissingValue = "missing_value"
)

// stripNull drops a null-valued column, returning the operation when the
// column was removed
func stripNull(row int, col string, value interface{}) *Operation {
	if value != nil {
		return nil
	}
	return &Operation{
		Row:           row,
		ColumnName:    col,
		OriginalValue: value,
		Operation:     OpStripNull,
		Reason:        ReasonMissingValue,
	}
}
