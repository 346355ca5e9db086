package chunker

import (
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swatch-db/csv-validate/pkg/model"
)

func makeRecords(n int) []model.Record {
	records := make([]model.Record, n)
	for i := range records {
		records[i] = model.Record{"n": float64(i)}
	}
	return records
}

func lengths(chunks []model.Chunk) []int {
	out := make([]int, len(chunks))
	for i, c := range chunks {
		out[i] = c.Len()
	}
	return out
}

func TestSplit(t *testing.T) {
	tests := []struct {
		total, n int
		want     []int
	}{
		{10, 3, []int{4, 4, 2}},
		{10, 2, []int{5, 5}},
		{10, 1, []int{10}},
		{10, 10, []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}},
		{3, 5, []int{1, 1, 1}},
		{7, 4, []int{2, 2, 2, 1}},
		{9, 6, []int{2, 2, 2, 2, 1}},
		{0, 3, []int{}},
	}

	for _, tt := range tests {
		records := makeRecords(tt.total)
		chunks := Split(records, tt.n)
		require.Equal(t, tt.want, lengths(chunks), "N=%d n=%d", tt.total, tt.n)

		count, _ := Plan(tt.total, tt.n)
		require.Equal(t, len(chunks), count)
	}
}

func TestSplitCoverage(t *testing.T) {
	for total := 1; total <= 40; total++ {
		records := makeRecords(total)
		for n := 1; n <= 12; n++ {
			chunks := Split(records, n)
			require.LessOrEqual(t, len(chunks), n)

			size := (total + n - 1) / n
			var joined []model.Record
			next := 0
			for i, c := range chunks {
				require.Equal(t, next, c.Start)
				require.Equal(t, c.End-c.Start, c.Len())
				if i < len(chunks)-1 {
					require.Equal(t, size, c.Len())
				}
				joined = append(joined, c.Records...)
				next = c.End
			}
			require.Equal(t, total, next)
			require.Equal(t, records, joined)
		}
	}
}

func TestStreamSize(t *testing.T) {
	require.Equal(t, 3, StreamSize(3, 10, 1))
	require.Equal(t, 5, StreamSize(100, 10, 2))
	require.Equal(t, 1, StreamSize(100, 2, 4))
	require.Equal(t, 1, StreamSize(0, 10, 1))
	require.Equal(t, 4, Count(10, 3))
	require.Equal(t, 0, Count(0, 3))
}

func TestStreamOffsets(t *testing.T) {
	records := makeRecords(10)
	seq := func(yield func(model.Record, error) bool) {
		for _, r := range records {
			if !yield(r, nil) {
				return
			}
		}
	}

	const startRow = 1
	var starts []int
	var joined []model.Record
	for chunk, err := range Stream(seq, 3) {
		require.NoError(t, err)
		require.Equal(t, chunk.End-chunk.Start, chunk.Len())
		starts = append(starts, startRow+chunk.Start)
		joined = append(joined, chunk.Records...)
	}

	require.Equal(t, []int{1, 4, 7, 10}, starts)
	require.Equal(t, records, joined)
}

func TestStreamError(t *testing.T) {
	boom := errors.New("boom")
	var seq iter.Seq2[model.Record, error] = func(yield func(model.Record, error) bool) {
		for i := 0; i < 4; i++ {
			if !yield(model.Record{}, nil) {
				return
			}
		}
		yield(nil, boom)
	}

	var got []int
	var gotErr error
	for chunk, err := range Stream(seq, 3) {
		if err != nil {
			gotErr = err
			break
		}
		got = append(got, chunk.Len())
	}
	require.Equal(t, []int{3}, got)
	require.ErrorIs(t, gotErr, boom)
}

func TestStreamEarlyStop(t *testing.T) {
	seq := func(yield func(model.Record, error) bool) {
		for _, r := range makeRecords(9) {
			if !yield(r, nil) {
				return
			}
		}
	}
	n := 0
	for range Stream(seq, 2) {
		n++
		if n == 2 {
			break
		}
	}
	require.Equal(t, 2, n)
}
