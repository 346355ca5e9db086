package model

// Record is one CSV data row keyed by column name. Values are string,
// float64 or nil.
type Record map[string]interface{}

// Chunk is a contiguous run of records. Start and End are 0-based offsets
// into the loaded record sequence, End exclusive.
type Chunk struct {
	Records []Record
	Start   int
	End     int
}

// Len returns the number of records in the chunk
func (c Chunk) Len() int {
	return len(c.Records)
}

// ProgressUpdate carries a count of newly processed rows from one chunk
type ProgressUpdate struct {
	Chunk int
	Rows  int
}
