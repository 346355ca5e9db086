package pipeline

import "github.com/swatch-db/csv-validate/pkg/model"

// DrainProgress reads the updates currently buffered on each channel and
// returns the number of rows they report. It never blocks; closed channels
// contribute whatever they still hold.
func DrainProgress(chans []<-chan model.ProgressUpdate) int {
	total := 0
	for _, ch := range chans {
		for n := len(ch); n > 0; n-- {
			update, ok := <-ch
			if !ok {
				break
			}
			total += update.Rows
		}
	}
	return total
}

// ProgressAggregator keeps a running total over a set of progress channels
type ProgressAggregator struct {
	chans []<-chan model.ProgressUpdate
	total int
}

// NewProgressAggregator creates an aggregator over chans. initial seeds the
// running total, e.g. with rows skipped before the start row.
func NewProgressAggregator(chans []<-chan model.ProgressUpdate, initial int) *ProgressAggregator {
	return &ProgressAggregator{chans: chans, total: initial}
}

// Drain adds everything currently buffered to the total and returns the
// newly counted rows
func (a *ProgressAggregator) Drain() int {
	n := DrainProgress(a.chans)
	a.total += n
	return n
}

// Total returns the running total
func (a *ProgressAggregator) Total() int {
	return a.total
}
