package pipeline

import (
	"context"
	"fmt"
	"iter"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/swatch-db/csv-validate/pkg/model"
	"github.com/swatch-db/csv-validate/pkg/validator"
)

// Plan describes the chunks a dispatch will receive
type Plan struct {
	ChunkCount int // number of chunks the stream yields
	ChunkSize  int // nominal records per chunk
	StartRow   int // absolute row of the first loaded record
}

// Handle tracks one dispatched chunk
type Handle struct {
	Index  int
	done   chan struct{}
	result ChunkResult
}

func newHandle(index int) *Handle {
	return &Handle{Index: index, done: make(chan struct{})}
}

// Ready reports whether the chunk has finished, without blocking
func (h *Handle) Ready() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Done is closed when the chunk finishes
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result waits for the chunk to finish and returns its result
func (h *Handle) Result() ChunkResult {
	<-h.done
	return h.result
}

func (h *Handle) complete(result ChunkResult) {
	h.result = result
	close(h.done)
}

// Dispatcher runs one worker task per chunk on a pool bounded by the
// configured process count
type Dispatcher struct {
	validator *validator.Validator
	metrics   *RunMetrics
	logger    *zap.Logger
	processes int
	failures  chan model.ValidationReport
	workers   chan *Worker
	group     errgroup.Group
	scheduled chan struct{}
}

// NewDispatcher creates a dispatcher with processes workers and a shared
// failure channel holding up to failureBuffer reports
func NewDispatcher(
	v *validator.Validator,
	processes int,
	failureBuffer int,
	metrics *RunMetrics,
	logger *zap.Logger,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	processes = max(processes, 1)

	d := &Dispatcher{
		validator: v,
		metrics:   metrics,
		logger:    logger.Named("dispatcher"),
		processes: processes,
		failures:  make(chan model.ValidationReport, max(failureBuffer, 1)),
		workers:   make(chan *Worker, processes),
		scheduled: make(chan struct{}),
	}

	for i := 1; i <= processes; i++ {
		d.workers <- NewWorker(i, v, d.failures, logger.Named("worker"))
	}
	d.group.SetLimit(processes)

	return d
}

// Failures returns the channel every worker sends its reports to
func (d *Dispatcher) Failures() <-chan model.ValidationReport {
	return d.failures
}

// Dispatch schedules a worker task for each chunk and returns at once with a
// handle and a progress channel per planned chunk. Chunks are pulled from the
// stream as pool slots free up. A stream error, or a stream that ends before
// plan.ChunkCount chunks, completes the remaining handles with an error.
// Dispatch must be called at most once per Dispatcher.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	chunks iter.Seq2[model.Chunk, error],
	plan Plan,
) ([]*Handle, []<-chan model.ProgressUpdate) {
	handles := make([]*Handle, plan.ChunkCount)
	progress := make([]chan model.ProgressUpdate, plan.ChunkCount)
	readers := make([]<-chan model.ProgressUpdate, plan.ChunkCount)
	for i := range handles {
		handles[i] = newHandle(i)
		progress[i] = make(chan model.ProgressUpdate, max(plan.ChunkSize, 1))
		readers[i] = progress[i]
	}

	d.logger.Info("Dispatching chunks",
		zap.Int("chunks", plan.ChunkCount),
		zap.Int("chunkSize", plan.ChunkSize),
		zap.Int("startRow", plan.StartRow),
		zap.Int("concurrency", min(d.processes, max(plan.ChunkCount, 1))))

	go d.schedule(ctx, chunks, plan, handles, progress)

	return handles, readers
}

func (d *Dispatcher) schedule(
	ctx context.Context,
	chunks iter.Seq2[model.Chunk, error],
	plan Plan,
	handles []*Handle,
	progress []chan model.ProgressUpdate,
) {
	defer close(d.scheduled)

	next := 0
	for chunk, err := range chunks {
		if err != nil {
			d.logger.Error("Chunk stream failed", zap.Int("chunk", next), zap.Error(err))
			d.abandon(handles[next:], progress[next:], err)
			return
		}
		if next >= len(handles) {
			d.logger.Warn("Chunk stream yielded more chunks than planned",
				zap.Int("planned", len(handles)))
			return
		}
		if err := ctx.Err(); err != nil {
			d.abandon(handles[next:], progress[next:], err)
			return
		}

		job := NewChunkJob(next, chunk, plan.StartRow)
		h, ch := handles[next], progress[next]
		d.group.Go(func() error {
			d.run(ctx, job, h, ch)
			return nil
		})
		next++
	}

	if next < len(handles) {
		err := &model.IOError{
			Op:  "stream",
			Err: fmt.Errorf("chunk stream ended after %d of %d chunks", next, len(handles)),
		}
		d.abandon(handles[next:], progress[next:], err)
	}
}

func (d *Dispatcher) run(ctx context.Context, job ChunkJob, h *Handle, progress chan model.ProgressUpdate) {
	defer close(progress)

	w := <-d.workers
	defer func() { d.workers <- w }()

	result := w.ProcessJob(ctx, job, progress)
	if d.metrics != nil {
		d.metrics.RecordChunk(result)
	}
	h.complete(result)
}

func (d *Dispatcher) abandon(handles []*Handle, progress []chan model.ProgressUpdate, err error) {
	for i, h := range handles {
		close(progress[i])
		h.complete(ChunkResult{Index: h.Index, Err: err})
	}
}

// Wait blocks until every scheduled chunk has finished. It is not needed
// for the run itself, which may abandon workers on early exit.
func (d *Dispatcher) Wait() error {
	<-d.scheduled
	return d.group.Wait()
}
