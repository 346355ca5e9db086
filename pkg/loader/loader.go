// Package loader reads CSV files into typed records.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/swatch-db/csv-validate/pkg/chunker"
	"github.com/swatch-db/csv-validate/pkg/converter"
	"github.com/swatch-db/csv-validate/pkg/model"
)

// Loader reads delimited files with a single header row. Row numbers are
// 1-indexed data rows with the header excluded.
type Loader struct {
	logger    *zap.Logger
	converter *converter.TypeConverter
}

// New creates a Loader converting cells with conv, or with the default
// conversion rules when conv is nil
func New(logger *zap.Logger, conv *converter.TypeConverter) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if conv == nil {
		conv = converter.NewTypeConverter(logger)
	}
	return &Loader{
		logger:    logger.Named("loader"),
		converter: conv,
	}
}

// CountRows returns the number of data rows in the file. Quoted fields that
// span lines count once.
func (l *Loader) CountRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, &model.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	r := newReader(f)
	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, &model.IOError{Op: "read header", Path: path, Err: err}
	}

	rows := 0
	for {
		_, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, &model.IOError{Op: "count rows", Path: path, Row: rows + 1, Err: err}
		}
		rows++
	}

	l.logger.Debug("Counted rows", zap.String("path", path), zap.Int("rows", rows))
	return rows, nil
}

// Load reads every row from startRow on into memory
func (l *Loader) Load(path string, startRow int, schema *model.Schema) ([]model.Record, error) {
	var records []model.Record
	for rec, err := range l.Records(path, startRow, schema) {
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	l.logger.Debug("Loaded records",
		zap.String("path", path),
		zap.Int("start_row", startRow),
		zap.Int("records", len(records)))
	return records, nil
}

// Stream returns a lazy sequence of chunks of chunkSize records starting at
// startRow. Each range over the sequence reopens the file and skips to
// startRow again.
func (l *Loader) Stream(path string, startRow int, schema *model.Schema, chunkSize int) iter.Seq2[model.Chunk, error] {
	return chunker.Stream(l.Records(path, startRow, schema), chunkSize)
}

// Records returns a lazy sequence of records from startRow on. Rows before
// startRow are read past without conversion. The sequence stops after the
// first error.
func (l *Loader) Records(path string, startRow int, schema *model.Schema) iter.Seq2[model.Record, error] {
	return func(yield func(model.Record, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(nil, &model.IOError{Op: "open", Path: path, Err: err})
			return
		}
		defer f.Close()

		r := newReader(f)
		header, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = errors.New("no header row")
			}
			yield(nil, &model.IOError{Op: "read header", Path: path, Err: err})
			return
		}

		header, err = normalizeHeader(header)
		if err != nil {
			yield(nil, &model.IOError{Op: "read header", Path: path, Err: err})
			return
		}

		var types map[string]model.ColumnType
		if schema != nil {
			types = schema.ColumnTypes()
		}
		columns := l.converter.ColumnConverters(header, types)

		for row := 1; ; row++ {
			fields, err := r.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, &model.IOError{Op: "read", Path: path, Row: row, Err: err})
				return
			}
			if row < startRow {
				continue
			}

			if len(fields) > len(columns) {
				yield(nil, &model.IOError{
					Op:   "read",
					Path: path,
					Row:  row,
					Err:  fmt.Errorf("expected %d fields, saw %d", len(columns), len(fields)),
				})
				return
			}

			if !yield(l.toRecord(fields, columns), nil) {
				return
			}
		}
	}
}

// toRecord converts one row. Missing trailing cells are null.
func (l *Loader) toRecord(fields []string, columns []converter.ColumnConverter) model.Record {
	rec := make(model.Record, len(columns))
	for i, col := range columns {
		if i >= len(fields) {
			rec[col.Name] = nil
			continue
		}
		rec[col.Name] = l.converter.ConvertCell(fields[i], col)
	}
	return rec
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	return reader
}

func normalizeHeader(header []string) ([]string, error) {
	names := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = struct{}{}
		names[i] = name
	}
	return names, nil
}
