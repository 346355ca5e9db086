package pipeline

import (
	"go.uber.org/zap"

	"github.com/swatch-db/csv-validate/pkg/model"
)

// ReportWriter prints one formatted report. Implementations coordinate with
// any progress display sharing the terminal.
type ReportWriter interface {
	WriteReport(text string)
}

// DrainResult summarises one drain of the failure channel
type DrainResult struct {
	Printed  int // reports written
	Observed int // reports drained, printed or not
}

// FailureReporter prints failure reports up to a global quota
type FailureReporter struct {
	out     ReportWriter
	metrics *RunMetrics
	logger  *zap.Logger
}

// NewFailureReporter creates a reporter writing to out
func NewFailureReporter(out ReportWriter, metrics *RunMetrics, logger *zap.Logger) *FailureReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FailureReporter{
		out:     out,
		metrics: metrics,
		logger:  logger.Named("reporter"),
	}
}

// DrainAndPrint drains the reports currently buffered on failures without
// blocking. At most quota-alreadyPrinted of them are printed; the rest are
// counted as observed and dropped.
func (r *FailureReporter) DrainAndPrint(failures <-chan model.ValidationReport, alreadyPrinted, quota int) DrainResult {
	var res DrainResult
	remaining := max(quota-alreadyPrinted, 0)

	for n := len(failures); n > 0; n-- {
		report, ok := <-failures
		if !ok {
			break
		}
		res.Observed++
		if r.metrics != nil {
			r.metrics.RecordFailure(report.Rule)
		}

		if res.Printed >= remaining {
			r.logger.Debug("Report over quota",
				zap.Int("row", report.Row),
				zap.String("kind", string(report.Rule.Kind())),
				zap.String("rule", string(report.Rule)))
			continue
		}
		r.out.WriteReport(report.String() + "\n")
		res.Printed++
	}

	if dropped := res.Observed - res.Printed; dropped > 0 {
		r.logger.Debug("Dropped reports over quota",
			zap.Int("dropped", dropped),
			zap.Int("quota", quota))
	}

	return res
}
