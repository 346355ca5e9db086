// Package validator checks records against a compiled schema.
package validator

import (
	"context"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/swatch-db/csv-validate/pkg/cleaner"
	"github.com/swatch-db/csv-validate/pkg/model"
)

const rootPath = "$"

// Validator validates records against one schema. It holds no mutable state
// and is safe for concurrent use.
type Validator struct {
	schema  *model.Schema
	cleaner *cleaner.RecordCleaner
	logger  *zap.Logger

	columnFragments  map[string]string
	dependencyFrags  map[string]string
	requiredFragment string
	headerFragment   string
}

// Outcome is the result of checking one record
type Outcome struct {
	Reports       []model.ValidationReport
	NullsStripped int
}

// New prepares a validator, rendering the schema fragments used in reports
func New(schema *model.Schema, logger *zap.Logger) (*Validator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	v := &Validator{
		schema:          schema,
		cleaner:         cleaner.NewRecordCleaner(logger),
		logger:          logger.Named("validator"),
		columnFragments: make(map[string]string, len(schema.Properties)),
		dependencyFrags: make(map[string]string, len(schema.Dependencies)),
	}

	var err error
	for name, prop := range schema.Properties {
		if v.columnFragments[name], err = fragment(prop.Raw); err != nil {
			return nil, &model.SchemaError{Column: name, Err: err}
		}
	}
	for name, deps := range schema.Dependencies {
		if v.dependencyFrags[name], err = fragment(map[string]interface{}{name: deps}); err != nil {
			return nil, &model.SchemaError{Column: name, Err: err}
		}
	}
	required := schema.Required
	if required == nil {
		required = []string{}
	}
	if v.requiredFragment, err = fragment(map[string]interface{}{"required": required}); err != nil {
		return nil, &model.SchemaError{Err: err}
	}
	if v.headerFragment, err = fragment(map[string]interface{}{"properties": schema.Names()}); err != nil {
		return nil, &model.SchemaError{Err: err}
	}

	return v, nil
}

// Validate checks one record at absolute row and returns a report per
// violated rule
func (v *Validator) Validate(rec model.Record, row int) []model.ValidationReport {
	return v.Check(rec, row).Reports
}

// ChunkFunc receives each record's outcome as soon as it is checked
type ChunkFunc func(row int, out Outcome) error

// ValidateChunk validates records in order, the first at absolute row
// startRow, and returns the count processed plus their reports. each may be
// nil. Cancelling ctx or an error from each stops the chunk; the record each
// failed on is not counted.
func (v *Validator) ValidateChunk(ctx context.Context, records []model.Record, startRow int, each ChunkFunc) (int, []model.ValidationReport, error) {
	var reports []model.ValidationReport
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return i, reports, err
		}

		row := startRow + i
		out := v.Check(rec, row)
		if each != nil {
			if err := each(row, out); err != nil {
				return i, reports, err
			}
		}
		reports = append(reports, out.Reports...)
	}
	return len(records), reports, nil
}

// Check validates one record. A panic while checking is recovered and
// reported against the record rather than propagated.
func (v *Validator) Check(rec model.Record, row int) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("Recovered panic during validation",
				zap.Int("row", row),
				zap.Any("panic", r))
			out.Reports = append(out.Reports, model.ValidationReport{
				Row:      row,
				Rule:     model.RuleInternal,
				Message:  fmt.Sprintf("validation aborted: %v", r),
				Value:    rec,
				Path:     rootPath,
				Fragment: "{}",
			})
		}
	}()

	cleaned, ops := v.cleaner.CleanRecord(rec, row)
	out.NullsStripped = len(ops)

	r := &recordCheck{v: v, rec: cleaned, row: row}
	r.header()
	r.required()
	r.dependencies()
	for _, name := range sortedKeys(cleaned) {
		if prop := v.schema.Property(name); prop != nil {
			r.column(prop, cleaned[name])
		}
	}

	out.Reports = r.reports
	return out
}

func fragment(doc interface{}) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func sortedKeys(rec model.Record) []string {
	keys := lo.Keys(rec)
	sort.Strings(keys)
	return keys
}
