package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/swatch-db/csv-validate/pkg/model"
	"github.com/swatch-db/csv-validate/pkg/validator"
)

// WorkerState represents the current state of a worker
type WorkerState string

const (
	WorkerStateIdle      WorkerState = "idle"
	WorkerStateWorking   WorkerState = "working"
	WorkerStateCompleted WorkerState = "completed"
	WorkerStateCancelled WorkerState = "cancelled"
)

// Worker validates chunk jobs. It sends every report to the shared failure
// channel and one progress update per record to the job's own channel.
type Worker struct {
	ID         int
	validator  *validator.Validator
	failures   chan<- model.ValidationReport
	logger     *zap.Logger
	state      WorkerState
	currentJob *ChunkJob
	stateLock  sync.RWMutex
}

// NewWorker creates a new worker
func NewWorker(
	id int,
	v *validator.Validator,
	failures chan<- model.ValidationReport,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		ID:        id,
		validator: v,
		failures:  failures,
		logger:    logger.With(zap.Int("workerID", id)),
		state:     WorkerStateIdle,
	}
}

// GetState returns the current state of the worker
func (w *Worker) GetState() WorkerState {
	w.stateLock.RLock()
	defer w.stateLock.RUnlock()
	return w.state
}

// setState updates the worker state
func (w *Worker) setState(state WorkerState) {
	w.stateLock.Lock()
	defer w.stateLock.Unlock()

	prevState := w.state
	w.state = state

	if prevState != state {
		w.logger.Debug("Worker state changed",
			zap.String("from", string(prevState)),
			zap.String("to", string(state)))
	}
}

// GetCurrentJob returns the job currently being processed
func (w *Worker) GetCurrentJob() *ChunkJob {
	w.stateLock.RLock()
	defer w.stateLock.RUnlock()
	return w.currentJob
}

func (w *Worker) setCurrentJob(job *ChunkJob) {
	w.stateLock.Lock()
	defer w.stateLock.Unlock()
	w.currentJob = job
}

// ProcessJob validates the job's records in file order. It stops early only
// when ctx is cancelled, in which case the result carries ctx's error.
func (w *Worker) ProcessJob(ctx context.Context, job ChunkJob, progress chan<- model.ProgressUpdate) ChunkResult {
	w.setCurrentJob(&job)
	w.setState(WorkerStateWorking)
	defer w.setCurrentJob(nil)

	result := NewChunkResult(job, w.ID)

	w.logger.Debug("Starting chunk",
		zap.String("jobID", job.ID),
		zap.Int("chunk", job.Index),
		zap.String("rows", job.Span()))

	err := w.validateChunk(ctx, job, progress, result)
	result.Complete(err)

	if err != nil {
		w.setState(WorkerStateCancelled)
		w.logger.Debug("Chunk abandoned",
			zap.Int("chunk", job.Index),
			zap.Int("processed", result.Processed),
			zap.Error(err))
		return *result
	}

	w.setState(WorkerStateCompleted)
	w.logger.Debug("Chunk completed",
		zap.Int("chunk", job.Index),
		zap.Int("processed", result.Processed),
		zap.Int("failures", result.FailureCount()),
		zap.Duration("duration", result.Duration))

	return *result
}

func (w *Worker) validateChunk(ctx context.Context, job ChunkJob, progress chan<- model.ProgressUpdate, result *ChunkResult) error {
	processed, reports, err := w.validator.ValidateChunk(ctx, job.Chunk.Records, job.StartRow,
		func(_ int, out validator.Outcome) error {
			result.NullsStripped += out.NullsStripped

			for _, report := range out.Reports {
				select {
				case w.failures <- report:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			select {
			case progress <- model.ProgressUpdate{Chunk: job.Index, Rows: 1}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})

	result.Processed = processed
	result.AddReports(reports)
	return err
}
