// Package runner drives a validation run from loading to the exit condition.
package runner

import (
	"context"
	"fmt"
	"io"
	"iter"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swatch-db/csv-validate/pkg/chunker"
	"github.com/swatch-db/csv-validate/pkg/config"
	"github.com/swatch-db/csv-validate/pkg/converter"
	"github.com/swatch-db/csv-validate/pkg/loader"
	"github.com/swatch-db/csv-validate/pkg/model"
	"github.com/swatch-db/csv-validate/pkg/pipeline"
	"github.com/swatch-db/csv-validate/pkg/schema"
	"github.com/swatch-db/csv-validate/pkg/validator"
)

// State represents the current stage of a run
type State string

const (
	StateIdle        State = "idle"
	StateLoading     State = "loading"
	StateDispatching State = "dispatching"
	StatePolling     State = "polling"
	StateEarlyExit   State = "early_exit"
	StateCompleted   State = "completed"
)

// Runner wires the loader, dispatcher and reporters into one run
type Runner struct {
	cfg       *config.Config
	out       io.Writer
	logger    *zap.Logger
	loader    *loader.Loader
	metrics   *pipeline.RunMetrics
	state     State
	stateLock sync.RWMutex
}

// New creates a runner writing progress and reports to out
func New(cfg *config.Config, out io.Writer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:     cfg,
		out:     out,
		logger:  logger,
		loader:  loader.New(logger, converter.NewTypeConverterWithConfig(logger, cfg.ConverterConfig())),
		metrics: pipeline.NewRunMetrics(logger.Named("metrics")),
		state:   StateIdle,
	}
}

// GetState returns the current state of the run
func (r *Runner) GetState() State {
	r.stateLock.RLock()
	defer r.stateLock.RUnlock()
	return r.state
}

func (r *Runner) setState(state State) {
	r.stateLock.Lock()
	defer r.stateLock.Unlock()

	prevState := r.state
	r.state = state

	if prevState != state {
		r.logger.Info("Run state changed",
			zap.String("from", string(prevState)),
			zap.String("to", string(state)))
	}
}

// Metrics returns the run's metrics collector
func (r *Runner) Metrics() *pipeline.RunMetrics {
	return r.metrics
}

// work is what Loading hands to Dispatching
type work struct {
	validator *validator.Validator
	chunks    iter.Seq2[model.Chunk, error]
	plan      pipeline.Plan
	totalRows int
	expected  int
}

// Run validates the configured file. It returns model.ErrQuotaExceeded when
// more failures than allowed were observed; workers still running at that
// point are cancelled and not waited for. Other errors are fatal
// configuration, schema or IO problems.
func (r *Runner) Run(ctx context.Context) (*model.RunResult, error) {
	result := &model.RunResult{
		RunID:     uuid.New().String(),
		StartTime: time.Now(),
	}
	r.logger = r.logger.With(zap.String("runID", result.RunID))

	r.setState(StateLoading)
	w, err := r.load()
	if err != nil {
		return nil, err
	}
	result.RowsExpected = w.expected

	r.setState(StateDispatching)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dispatcher := pipeline.NewDispatcher(w.validator, r.cfg.Processes, r.cfg.FailureBuffer, r.metrics, r.logger)
	handles, progressChans := dispatcher.Dispatch(ctx, w.chunks, w.plan)

	display := NewDisplay(r.out, w.totalRows, r.cfg.StartRow-1)
	progress := pipeline.NewProgressAggregator(progressChans, 0)
	reporter := pipeline.NewFailureReporter(display, r.metrics, r.logger)

	r.setState(StatePolling)
	quotaHit := func() bool {
		display.Add(progress.Drain())
		drained := reporter.DrainAndPrint(dispatcher.Failures(), result.Printed, r.cfg.MaxFails)
		result.Printed += drained.Printed
		result.Failures += drained.Observed
		result.RowsProcessed = progress.Total()
		return result.Failures > r.cfg.MaxFails
	}
	earlyExit := func() (*model.RunResult, error) {
		r.setState(StateEarlyExit)
		cancel()
		display.Abandon()
		display.Println("Exit Condition: Max failures reached")
		result.EarlyExit = true
		result.Complete()
		r.logger.Warn("Failure quota exceeded",
			zap.Int("failures", result.Failures),
			zap.Int("maxFails", r.cfg.MaxFails),
			zap.Int("rowsProcessed", result.RowsProcessed))
		return result, model.ErrQuotaExceeded
	}

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for !allReady(handles) {
		if quotaHit() {
			return earlyExit()
		}
		select {
		case <-ctx.Done():
			display.Abandon()
			return nil, fmt.Errorf("run interrupted: %w", ctx.Err())
		case <-ticker.C:
		}
	}

	results := make([]pipeline.ChunkResult, len(handles))
	for i, h := range handles {
		results[i] = h.Result()
		if results[i].Err != nil {
			display.Abandon()
			return nil, results[i].Err
		}
	}

	// workers may have sent after the last poll
	if quotaHit() {
		return earlyExit()
	}

	r.setState(StateCompleted)
	report := pipeline.NewVerifier(r.logger).GenerateVerificationReport(w.expected, results)
	for _, warning := range report.Warnings() {
		result.AddWarning(warning)
	}

	r.metrics.Complete()
	r.logMetrics()

	result.Complete()
	display.Finish()
	display.Println(fmt.Sprintf("Exit Condition: Completed (%s rows validated, %s failures)",
		humanize.Comma(int64(result.RowsProcessed)),
		humanize.Comma(int64(result.Failures))))

	return result, nil
}

// load reads the schema and prepares the chunk stream and its plan
func (r *Runner) load() (*work, error) {
	s, err := schema.Load(r.cfg.SchemaPath)
	if err != nil {
		return nil, err
	}
	v, err := validator.New(s, r.logger)
	if err != nil {
		return nil, err
	}

	totalRows, err := r.loader.CountRows(r.cfg.CSVPath)
	if err != nil {
		return nil, err
	}
	toValidate := max(totalRows-(r.cfg.StartRow-1), 0)

	w := &work{validator: v, totalRows: totalRows, expected: toValidate}
	w.plan.StartRow = r.cfg.StartRow

	if r.cfg.Streaming() {
		size := chunker.StreamSize(r.cfg.ChunkSize, toValidate, r.cfg.Processes)
		w.plan.ChunkSize = size
		w.plan.ChunkCount = chunker.Count(toValidate, size)
		w.chunks = r.loader.Stream(r.cfg.CSVPath, r.cfg.StartRow, s, size)
	} else {
		records, err := r.loader.Load(r.cfg.CSVPath, r.cfg.StartRow, s)
		if err != nil {
			return nil, err
		}
		w.expected = len(records)
		chunks := chunker.Split(records, r.cfg.Processes)
		w.plan.ChunkCount, w.plan.ChunkSize = chunker.Plan(len(records), r.cfg.Processes)
		w.chunks = func(yield func(model.Chunk, error) bool) {
			for _, c := range chunks {
				if !yield(c, nil) {
					return
				}
			}
		}
	}

	r.logger.Info("Loaded inputs",
		zap.String("schema", r.cfg.SchemaPath),
		zap.String("csv", r.cfg.CSVPath),
		zap.Int("columns", len(s.Names())),
		zap.Int("totalRows", totalRows),
		zap.Int("rowsToValidate", w.expected),
		zap.Int("chunks", w.plan.ChunkCount),
		zap.Int("chunkSize", w.plan.ChunkSize),
		zap.Bool("streaming", r.cfg.Streaming()))

	return w, nil
}

// logMetrics writes the run metrics at debug level, as a JSON field when
// logging in JSON and as the text report otherwise
func (r *Runner) logMetrics() {
	if r.cfg.LogFormat != "json" {
		r.logger.Debug(r.metrics.GenerateMetricsReport())
		return
	}

	data, err := r.metrics.ToJSON()
	if err != nil {
		r.logger.Warn("Failed to encode run metrics", zap.Error(err))
		return
	}
	r.logger.Debug("Run metrics",
		zap.Int("failures", r.metrics.TotalFailures()),
		zap.Any("metrics", json.RawMessage(data)))
}

func allReady(handles []*pipeline.Handle) bool {
	for _, h := range handles {
		if !h.Ready() {
			return false
		}
	}
	return true
}
