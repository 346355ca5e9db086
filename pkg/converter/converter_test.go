package converter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swatch-db/csv-validate/pkg/model"
)

func TestResolveColumnType(t *testing.T) {
	typ, err := ResolveColumnType("string")
	require.NoError(t, err)
	require.Equal(t, model.ColumnTypeText, typ)

	typ, err = ResolveColumnType("number")
	require.NoError(t, err)
	require.Equal(t, model.ColumnTypeNumber, typ)

	_, err = ResolveColumnType("integer")
	require.Error(t, err)

	_, err = ResolveColumnType("")
	require.Error(t, err)
}

func TestConvertCell(t *testing.T) {
	c := NewTypeConverter(nil)
	cols := c.ColumnConverters(
		[]string{"id", "temp", "extra"},
		map[string]model.ColumnType{"id": model.ColumnTypeText, "temp": model.ColumnTypeNumber},
	)
	require.Len(t, cols, 3)
	require.False(t, cols[2].Declared)

	tests := []struct {
		name string
		raw  string
		col  ColumnConverter
		want interface{}
	}{
		{"text kept verbatim", "007", cols[0], "007"},
		{"number parsed", " 12.5 ", cols[1], 12.5},
		{"bad number kept as text", "warm", cols[1], "warm"},
		{"empty is null", "", cols[1], nil},
		{"NA token is null", "NA", cols[0], nil},
		{"undeclared number inferred", "3", cols[2], 3.0},
		{"undeclared text inferred", "x", cols[2], "x"},
		{"exponent parsed", "2.5e3", cols[1], 2500.0},
		{"leading dot parsed", "-.5", cols[1], -0.5},
		{"uppercase NaN is null", "NAN", cols[1], nil},
		{"infinity is null", "inf", cols[1], nil},
		{"signed infinity is null", "-Infinity", cols[1], nil},
		{"overflow is null", "1e400", cols[1], nil},
		{"hex float kept as text", "0x1p4", cols[1], "0x1p4"},
		{"digit separators kept as text", "1_000", cols[1], "1_000"},
		{"undeclared infinity is null", "Inf", cols[2], nil},
		{"undeclared hex kept as text", "0x10", cols[2], "0x10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, c.ConvertCell(tt.raw, tt.col))
		})
	}
}

func TestConvertCellWithConfig(t *testing.T) {
	c := NewTypeConverterWithConfig(nil, TypeConverterConfig{
		NullTokens: []string{"", "-999"},
	})
	cols := c.ColumnConverters(
		[]string{"temp", "extra"},
		map[string]model.ColumnType{"temp": model.ColumnTypeNumber},
	)

	require.Nil(t, c.ConvertCell("-999", cols[0]))
	require.Equal(t, "NA", c.ConvertCell("NA", cols[0]))
	require.Equal(t, " 12.5 ", c.ConvertCell(" 12.5 ", cols[0]))
	require.Equal(t, "3", c.ConvertCell("3", cols[1]))
}

func TestIsNull(t *testing.T) {
	c := NewTypeConverter(nil)
	for _, token := range DefaultNullTokens {
		require.True(t, c.IsNull(token), token)
	}
	require.False(t, c.IsNull("0"))
	require.False(t, c.IsNull(" "))
}

func TestIsDate(t *testing.T) {
	require.True(t, IsDate("2021-03-14"))
	require.False(t, IsDate("2021-02-30"))
	require.False(t, IsDate("2021-3-14"))
	require.False(t, IsDate("14/03/2021"))
}
