package cleaner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swatch-db/csv-validate/pkg/model"
)

func TestCleanRecord(t *testing.T) {
	c := NewRecordCleaner(nil)

	in := model.Record{"id": "1", "temp": nil, "site": nil}
	out, ops := c.CleanRecord(in, 4)

	require.Equal(t, model.Record{"id": "1"}, out)
	require.Len(t, ops, 2)
	require.ElementsMatch(t, []string{"temp", "site"}, []string{ops[0].ColumnName, ops[1].ColumnName})
	for _, op := range ops {
		require.Equal(t, 4, op.Row)
		require.Equal(t, OpStripNull, op.Operation)
	}

	// input left untouched
	require.Len(t, in, 3)
}

func TestCleanRecordNoNulls(t *testing.T) {
	c := NewRecordCleaner(nil)
	in := model.Record{"id": "1", "temp": 3.5}
	out, ops := c.CleanRecord(in, 1)
	require.Equal(t, in, out)
	require.Empty(t, ops)
}
