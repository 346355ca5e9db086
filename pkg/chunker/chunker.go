// Package chunker partitions record sequences into contiguous chunks.
package chunker

import (
	"iter"

	"github.com/swatch-db/csv-validate/pkg/model"
)

// Split divides records into at most n contiguous chunks of ceil(N/n)
// records each. The last chunk is clipped to the end of the input, so only it
// may be shorter. Fewer than n chunks are returned when the input runs out
// first, and none when records is empty.
func Split(records []model.Record, n int) []model.Chunk {
	total := len(records)
	if total == 0 || n <= 0 {
		return nil
	}

	size := (total + n - 1) / n
	chunks := make([]model.Chunk, 0, n)
	for start := 0; start < total; start += size {
		end := min(start+size, total)
		chunks = append(chunks, model.Chunk{
			Records: records[start:end],
			Start:   start,
			End:     end,
		})
	}
	return chunks
}

// Plan returns the chunk count and nominal size Split will use
func Plan(total, n int) (count, size int) {
	if total <= 0 || n <= 0 {
		return 0, 0
	}
	size = (total + n - 1) / n
	return (total + size - 1) / size, size
}

// StreamSize picks the streaming chunk size: the requested size capped at
// total/processes so a small file still gives every process work. The result
// is never below 1.
func StreamSize(requested, total, processes int) int {
	size := requested
	if processes > 0 {
		size = min(size, total/processes)
	}
	return max(size, 1)
}

// Count returns how many chunks of the given size cover total records
func Count(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Stream groups records into chunks of size records. Each chunk's Start is
// the sum of the true lengths of the chunks before it, so a short chunk never
// shifts the numbering of the ones after it. An error from records is passed
// through and ends the stream.
func Stream(records iter.Seq2[model.Record, error], size int) iter.Seq2[model.Chunk, error] {
	return func(yield func(model.Chunk, error) bool) {
		if size <= 0 {
			size = 1
		}

		offset := 0
		batch := make([]model.Record, 0, size)

		flush := func() bool {
			chunk := model.Chunk{
				Records: batch,
				Start:   offset,
				End:     offset + len(batch),
			}
			offset = chunk.End
			batch = make([]model.Record, 0, size)
			return yield(chunk, nil)
		}

		for rec, err := range records {
			if err != nil {
				yield(model.Chunk{}, err)
				return
			}
			batch = append(batch, rec)
			if len(batch) == size && !flush() {
				return
			}
		}

		if len(batch) > 0 {
			flush()
		}
	}
}
