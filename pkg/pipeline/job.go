package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swatch-db/csv-validate/pkg/model"
)

// ChunkJob represents one chunk of records handed to a worker
type ChunkJob struct {
	ID        string      // Unique job identifier
	Index     int         // Position of the chunk in the dispatch plan
	Chunk     model.Chunk // Records and their offsets in the loaded sequence
	StartRow  int         // Absolute row of the chunk's first record
	CreatedAt time.Time   // Job creation timestamp
}

// NewChunkJob creates a job for chunk, whose records are numbered from
// globalStart + chunk.Start
func NewChunkJob(index int, chunk model.Chunk, globalStart int) ChunkJob {
	return ChunkJob{
		ID:        uuid.New().String(),
		Index:     index,
		Chunk:     chunk,
		StartRow:  globalStart + chunk.Start,
		CreatedAt: time.Now(),
	}
}

// EndRow returns the absolute row of the chunk's last record
func (j ChunkJob) EndRow() int {
	return j.StartRow + j.Chunk.Len() - 1
}

// Span returns the absolute row range covered by the job
func (j ChunkJob) Span() string {
	return fmt.Sprintf("%d-%d", j.StartRow, j.EndRow())
}

// ChunkResult represents the outcome of validating one chunk
type ChunkResult struct {
	JobID         string
	Index         int
	WorkerID      int
	Start         int // chunk offsets, End exclusive
	End           int
	StartRow      int
	Processed     int
	NullsStripped int
	Reports       []model.ValidationReport
	Err           error
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}

// NewChunkResult initializes a result for a job
func NewChunkResult(job ChunkJob, workerID int) *ChunkResult {
	return &ChunkResult{
		JobID:     job.ID,
		Index:     job.Index,
		WorkerID:  workerID,
		Start:     job.Chunk.Start,
		End:       job.Chunk.End,
		StartRow:  job.StartRow,
		StartTime: time.Now(),
	}
}

// Complete marks the result as complete and calculates duration
func (r *ChunkResult) Complete(err error) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Err = err
}

// AddReports appends reports produced for one record
func (r *ChunkResult) AddReports(reports []model.ValidationReport) {
	r.Reports = append(r.Reports, reports...)
}

// FailureCount returns the number of reports the chunk produced
func (r *ChunkResult) FailureCount() int {
	return len(r.Reports)
}

// Success reports whether every record in the chunk was checked
func (r *ChunkResult) Success() bool {
	return r.Err == nil
}
