package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/swatch-db/csv-validate/pkg/model"
)

// RunMetrics tracks metrics for a validation run
type RunMetrics struct {
	mu                sync.Mutex
	logger            *zap.Logger
	StartTime         time.Time
	EndTime           time.Time
	ChunksCompleted   int
	ChunksAbandoned   int
	RowsProcessed     int64
	NullsStripped     int64
	FailuresByRule    map[model.Rule]int
	FailuresByKind    map[model.FailureKind]int
	WorkerUtilization map[int]time.Duration
}

// NewRunMetrics creates a new RunMetrics instance
func NewRunMetrics(logger *zap.Logger) *RunMetrics {
	return &RunMetrics{
		StartTime:         time.Now(),
		FailuresByRule:    make(map[model.Rule]int),
		FailuresByKind:    make(map[model.FailureKind]int),
		WorkerUtilization: make(map[int]time.Duration),
		logger:            logger,
	}
}

// RecordChunk records metrics for a finished chunk
func (m *RunMetrics) RecordChunk(result ChunkResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if result.Success() {
		m.ChunksCompleted++
	} else {
		m.ChunksAbandoned++
	}
	m.RowsProcessed += int64(result.Processed)
	m.NullsStripped += int64(result.NullsStripped)
	m.WorkerUtilization[result.WorkerID] += result.Duration
}

// RecordFailure counts one observed report
func (m *RunMetrics) RecordFailure(rule model.Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailuresByRule[rule]++
	m.FailuresByKind[rule.Kind()]++
}

// TotalFailures returns the number of reports observed
func (m *RunMetrics) TotalFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, count := range m.FailuresByRule {
		total += count
	}
	return total
}

// Complete marks the run as complete
func (m *RunMetrics) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EndTime = time.Now()

	if m.logger != nil {
		m.logger.Info("Validation run completed",
			zap.Duration("totalDuration", m.duration()),
			zap.Int("chunksCompleted", m.ChunksCompleted),
			zap.Int("chunksAbandoned", m.ChunksAbandoned),
			zap.Int64("rowsProcessed", m.RowsProcessed),
			zap.Float64("throughput", m.throughput()),
			zap.Any("failuresByKind", m.FailuresByKind),
			zap.Any("workerEfficiency", m.workerEfficiency()))
	}
}

func (m *RunMetrics) throughput() float64 {
	seconds := m.duration().Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(m.RowsProcessed) / seconds
}

func (m *RunMetrics) duration() time.Duration {
	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}

// workerEfficiency returns each worker's busy time as a fraction of the run
// duration
func (m *RunMetrics) workerEfficiency() map[int]float64 {
	efficiency := make(map[int]float64)
	total := m.duration()
	if total <= 0 {
		return efficiency
	}

	for workerID, busy := range m.WorkerUtilization {
		efficiency[workerID] = float64(busy) / float64(total)
	}
	return efficiency
}

// formatDuration formats a duration to a human-readable string
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// GenerateMetricsReport creates a detailed metrics report
func (m *RunMetrics) GenerateMetricsReport() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, `
Validation Metrics Report
=========================
Duration:                %s
Start Time:              %s

Data Summary
------------
Rows Validated:          %s
Chunks Completed:        %d
Chunks Abandoned:        %d
Null Cells Stripped:     %s
Average Throughput:      %.2f rows/sec
`,
		formatDuration(m.duration()),
		m.StartTime.Format(time.RFC3339),
		humanize.Comma(m.RowsProcessed),
		m.ChunksCompleted,
		m.ChunksAbandoned,
		humanize.Comma(m.NullsStripped),
		m.throughput(),
	)

	if len(m.FailuresByRule) > 0 {
		sb.WriteString("\nFailures By Rule\n----------------\n")
		rules := make([]string, 0, len(m.FailuresByRule))
		for rule := range m.FailuresByRule {
			rules = append(rules, string(rule))
		}
		sort.Strings(rules)
		for _, rule := range rules {
			fmt.Fprintf(&sb, "- %-14s %s\n", rule+":", humanize.Comma(int64(m.FailuresByRule[model.Rule(rule)])))
		}
	}

	if len(m.FailuresByKind) > 0 {
		sb.WriteString("\nFailures By Kind\n----------------\n")
		kinds := make([]string, 0, len(m.FailuresByKind))
		for kind := range m.FailuresByKind {
			kinds = append(kinds, string(kind))
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Fprintf(&sb, "- %-24s %s\n", kind+":", humanize.Comma(int64(m.FailuresByKind[model.FailureKind(kind)])))
		}
	}

	if len(m.WorkerUtilization) > 0 {
		efficiency := m.workerEfficiency()
		sb.WriteString("\nWorker Utilization\n------------------\n")
		ids := make([]int, 0, len(m.WorkerUtilization))
		for id := range m.WorkerUtilization {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			fmt.Fprintf(&sb, "- worker %d: %s (%.1f%% busy)\n", id, formatDuration(m.WorkerUtilization[id]), efficiency[id]*100)
		}
	}

	return sb.String()
}

// ToJSON serializes metrics to JSON
func (m *RunMetrics) ToJSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return json.Marshal(struct {
		Duration        string                    `json:"duration"`
		RowsProcessed   int64                     `json:"rowsProcessed"`
		ChunksCompleted int                       `json:"chunksCompleted"`
		ChunksAbandoned int                       `json:"chunksAbandoned"`
		NullsStripped   int64                     `json:"nullsStripped"`
		Throughput      float64                   `json:"throughput"`
		FailuresByRule  map[model.Rule]int        `json:"failuresByRule"`
		FailuresByKind  map[model.FailureKind]int `json:"failuresByKind"`
	}{
		Duration:        formatDuration(m.duration()),
		RowsProcessed:   m.RowsProcessed,
		ChunksCompleted: m.ChunksCompleted,
		ChunksAbandoned: m.ChunksAbandoned,
		NullsStripped:   m.NullsStripped,
		Throughput:      m.throughput(),
		FailuresByRule:  m.FailuresByRule,
		FailuresByKind:  m.FailuresByKind,
	})
}
