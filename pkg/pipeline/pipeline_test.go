package pipeline

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swatch-db/csv-validate/pkg/chunker"
	"github.com/swatch-db/csv-validate/pkg/model"
	"github.com/swatch-db/csv-validate/pkg/schema"
	"github.com/swatch-db/csv-validate/pkg/validator"
)

const testSchema = `{
	"properties": {
		"id":   {"type": "string", "pattern": "^[0-9]+$"},
		"temp": {"type": "number", "minimum": -50, "maximum": 50}
	},
	"required": ["id", "temp"]
}`

func newValidator(t *testing.T) *validator.Validator {
	t.Helper()
	s, err := schema.Parse([]byte(testSchema), "test.json")
	require.NoError(t, err)
	v, err := validator.New(s, nil)
	require.NoError(t, err)
	return v
}

// records returns n valid records, with an invalid id at each of the given
// 0-based offsets
func records(n int, badAt ...int) []model.Record {
	out := make([]model.Record, n)
	for i := range out {
		out[i] = model.Record{"id": "1", "temp": 1.0}
	}
	for _, i := range badAt {
		out[i] = model.Record{"id": "abc", "temp": 1.0}
	}
	return out
}

func seqOf(chunks []model.Chunk) iter.Seq2[model.Chunk, error] {
	return func(yield func(model.Chunk, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
	}
}

type captureWriter struct {
	mu    sync.Mutex
	texts []string
}

func (w *captureWriter) WriteReport(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.texts = append(w.texts, text)
}

func waitAll(handles []*Handle) []ChunkResult {
	results := make([]ChunkResult, len(handles))
	for i, h := range handles {
		results[i] = h.Result()
	}
	return results
}

func TestDispatch(t *testing.T) {
	recs := records(10, 2, 7)
	chunks := chunker.Split(recs, 3)
	metrics := NewRunMetrics(nil)

	d := NewDispatcher(newValidator(t), 2, 64, metrics, nil)
	handles, progress := d.Dispatch(context.Background(), seqOf(chunks), Plan{
		ChunkCount: len(chunks),
		ChunkSize:  4,
		StartRow:   1,
	})
	require.Len(t, handles, 3)
	require.Len(t, progress, 3)

	results := waitAll(handles)
	require.NoError(t, d.Wait())

	processed := 0
	var rows []int
	for _, r := range results {
		require.NoError(t, r.Err)
		processed += r.Processed
		for _, rep := range r.Reports {
			rows = append(rows, rep.Row)
		}
	}
	require.Equal(t, 10, processed)
	require.ElementsMatch(t, []int{3, 8}, rows)

	require.Equal(t, 10, DrainProgress(progress))
	require.Equal(t, 0, DrainProgress(progress))

	require.Len(t, d.Failures(), 2)
	require.Equal(t, int64(10), metrics.RowsProcessed)
	require.Equal(t, 3, metrics.ChunksCompleted)

	report := NewVerifier(nil).GenerateVerificationReport(10, results)
	require.True(t, report.RowCountMatches)
	require.True(t, report.SpansContiguous)
	require.Empty(t, report.Warnings())
}

func TestDispatchStreamError(t *testing.T) {
	boom := errors.New("disk gone")
	chunks := chunker.Split(records(6), 3)
	seq := func(yield func(model.Chunk, error) bool) {
		if !yield(chunks[0], nil) {
			return
		}
		yield(model.Chunk{}, boom)
	}

	d := NewDispatcher(newValidator(t), 1, 8, nil, nil)
	handles, _ := d.Dispatch(context.Background(), seq, Plan{ChunkCount: 3, ChunkSize: 2, StartRow: 1})

	results := waitAll(handles)
	require.NoError(t, results[0].Err)
	require.ErrorIs(t, results[1].Err, boom)
	require.ErrorIs(t, results[2].Err, boom)
	require.NoError(t, d.Wait())
}

func TestDispatchShortStream(t *testing.T) {
	chunks := chunker.Split(records(4), 2)
	d := NewDispatcher(newValidator(t), 2, 8, nil, nil)
	handles, _ := d.Dispatch(context.Background(), seqOf(chunks), Plan{ChunkCount: 3, ChunkSize: 2, StartRow: 1})

	results := waitAll(handles)
	require.NoError(t, results[0].Err)
	require.NoError(t, results[1].Err)
	require.Equal(t, model.ErrorCategoryIO, model.CategorizeError(results[2].Err))
}

func TestDispatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chunks := chunker.Split(records(6), 2)
	d := NewDispatcher(newValidator(t), 2, 8, nil, nil)
	handles, progress := d.Dispatch(ctx, seqOf(chunks), Plan{ChunkCount: 2, ChunkSize: 3, StartRow: 1})

	for _, r := range waitAll(handles) {
		require.ErrorIs(t, r.Err, context.Canceled)
	}
	require.Equal(t, 0, DrainProgress(progress))
}

func TestHandleReady(t *testing.T) {
	h := newHandle(0)
	require.False(t, h.Ready())
	h.complete(ChunkResult{Processed: 3})
	require.True(t, h.Ready())
	require.Equal(t, 3, h.Result().Processed)
}

func TestWorkerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	failures := make(chan model.ValidationReport) // unbuffered, never read
	w := NewWorker(1, newValidator(t), failures, zap.NewNop())

	job := NewChunkJob(0, model.Chunk{Records: records(3, 0), Start: 0, End: 3}, 1)
	progress := make(chan model.ProgressUpdate, 3)

	done := make(chan ChunkResult)
	go func() { done <- w.ProcessJob(ctx, job, progress) }()
	cancel()

	result := <-done
	require.ErrorIs(t, result.Err, context.Canceled)
	require.Equal(t, WorkerStateCancelled, w.GetState())
	require.Nil(t, w.GetCurrentJob())
}

func TestDrainProgress(t *testing.T) {
	require.Equal(t, 0, DrainProgress(nil))

	empty := make(chan model.ProgressUpdate, 4)
	require.Equal(t, 0, DrainProgress([]<-chan model.ProgressUpdate{empty}))

	full := make(chan model.ProgressUpdate, 4)
	full <- model.ProgressUpdate{Rows: 1}
	full <- model.ProgressUpdate{Rows: 1}
	full <- model.ProgressUpdate{Rows: 2}
	close(full)

	agg := NewProgressAggregator([]<-chan model.ProgressUpdate{empty, full}, 5)
	require.Equal(t, 4, agg.Drain())
	require.Equal(t, 0, agg.Drain())
	require.Equal(t, 9, agg.Total())
}

func TestDrainAndPrintQuota(t *testing.T) {
	for burst := 0; burst <= 12; burst++ {
		for already := 0; already <= 6; already++ {
			failures := make(chan model.ValidationReport, 16)
			for i := 0; i < burst; i++ {
				failures <- model.ValidationReport{Row: i + 1, Rule: model.RulePattern}
			}

			w := &captureWriter{}
			const quota = 5
			res := NewFailureReporter(w, nil, nil).DrainAndPrint(failures, already, quota)

			require.Equal(t, burst, res.Observed)
			require.LessOrEqual(t, res.Printed, max(quota-already, 0))
			require.Equal(t, min(burst, max(quota-already, 0)), res.Printed)
			require.Len(t, w.texts, res.Printed)
			require.Len(t, failures, 0)
		}
	}
}

func TestDrainAndPrintFormat(t *testing.T) {
	failures := make(chan model.ValidationReport, 1)
	failures <- model.ValidationReport{
		Row:      3,
		Rule:     model.RulePattern,
		Message:  "'abc' does not match '^[0-9]+$'",
		Value:    "abc",
		Path:     "$.id",
		Fragment: `{"pattern":"^[0-9]+$","type":"string"}`,
	}

	w := &captureWriter{}
	metrics := NewRunMetrics(nil)
	res := NewFailureReporter(w, metrics, nil).DrainAndPrint(failures, 0, 1)
	require.Equal(t, DrainResult{Printed: 1, Observed: 1}, res)
	require.Equal(t, strings.Join([]string{
		"row: 3",
		"pattern validator failed because: 'abc' does not match '^[0-9]+$'",
		"offending json element:",
		`"abc"`,
		"json path: $.id",
		"applicable schema:",
		`{"pattern":"^[0-9]+$","type":"string"}`,
		"",
	}, "\n"), w.texts[0])
	require.Equal(t, 1, metrics.TotalFailures())
}

func TestVerifierDiscrepancies(t *testing.T) {
	v := NewVerifier(nil)
	results := []ChunkResult{
		{Index: 0, Start: 0, End: 3, Processed: 3},
		{Index: 2, Start: 5, End: 7, Processed: 2},
		{Index: 1, Start: 3, End: 4, Processed: 1},
	}
	ok, discrepancies := v.VerifySpans(results)
	require.False(t, ok)
	require.Len(t, discrepancies, 1)
	require.Equal(t, 2, discrepancies[0].Chunk)

	report := v.GenerateVerificationReport(8, results)
	require.False(t, report.RowCountMatches)
	require.Len(t, report.Warnings(), 2)
}

func TestMetricsReport(t *testing.T) {
	m := NewRunMetrics(nil)
	m.RecordChunk(ChunkResult{WorkerID: 1, Processed: 1200, NullsStripped: 4, Duration: time.Millisecond})
	m.RecordFailure(model.RuleMaximum)
	m.RecordFailure(model.RuleMaximum)
	m.RecordFailure(model.RuleType)
	m.RecordFailure(model.RuleRequired)
	m.Complete()

	text := m.GenerateMetricsReport()
	require.Contains(t, text, "Rows Validated:          1,200")
	require.Contains(t, text, "maximum:")
	require.Contains(t, text, "- ConstraintError:         3")
	require.Contains(t, text, "- RequiredPropertyError:   1")
	require.Contains(t, text, "worker 1:")
	require.Contains(t, text, "% busy)")
	require.Equal(t, 4, m.TotalFailures())

	data, err := m.ToJSON()
	require.NoError(t, err)
	require.Contains(t, string(data), `"rowsProcessed":1200`)
	require.Contains(t, string(data), `"maximum":2`)
	require.Contains(t, string(data), `"RequiredPropertyError":1`)
}
