package splithttp

// Chunk is a run of downloaded bytes destined for an absolute file offset.
type Chunk struct {
	Offset int64
	Data   []byte
}

// sentinel tells the writer that no more chunks will arrive this attempt.
var sentinel = Chunk{Offset: -1}

func (c Chunk) Length() int {
	return len(c.Data)
}

func (c Chunk) IsSentinel() bool {
	return c.Offset == -1
}
