package transcribe

import "sync"

type chunk struct {
	seq  int
	data []byte
}

// chunkBuffer is a rolling in-memory buffer of audio chunks for one capture
// session. When full, the oldest chunks are pruned.
type chunkBuffer struct {
	mu     sync.Mutex
	max    int
	chunks []chunk
}

func newChunkBuffer(max int) *chunkBuffer {
	return &chunkBuffer{max: max}
}

// Append adds a chunk, pruning the oldest entries past the cap.
func (b *chunkBuffer) Append(seq int, data []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.chunks = append(b.chunks, chunk{seq: seq, data: data})
	if len(b.chunks) > b.max {
		b.chunks = b.chunks[len(b.chunks)-b.max:]
	}
	return len(b.chunks)
}

// Drain concatenates everything buffered so far and empties the buffer.
// Returns nil when the buffer is empty.
func (b *chunkBuffer) Drain() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.chunks) == 0 {
		return nil
	}

	total := 0
	for _, c := range b.chunks {
		total += len(c.data)
	}
	out := make([]byte, 0, total)
	for _, c := range b.chunks {
		out = append(out, c.data...)
	}

	b.chunks = nil
	return out
}

func (b *chunkBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks)
}

func (b *chunkBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = nil
}
