package count

import (
	"context"
	"sort"
	"sync"
)

// Row is one appended observation. Time is in seconds.
type Row struct {
	Buffer    string  `json:"buffer"`
	Column    string  `json:"column"`
	Iteration float64 `json:"iteration"`
	Time      float64 `json:"time"`
	Value     float64 `json:"value"`
}

// Sink receives the rows of each firing. Buffers are append-only.
type Sink interface {
	AppendRows(ctx context.Context, rows []Row) error
}

// MemoryBuffers keeps count buffers in memory.
type MemoryBuffers struct {
	mu   sync.Mutex
	rows map[string][]Row
}

// NewMemoryBuffers creates an empty set of buffers.
func NewMemoryBuffers() *MemoryBuffers {
	return &MemoryBuffers{rows: make(map[string][]Row)}
}

// AppendRows implements Sink.
func (m *MemoryBuffers) AppendRows(_ context.Context, rows []Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.rows[r.Buffer] = append(m.rows[r.Buffer], r)
	}
	return nil
}

// Rows returns a copy of one buffer in append order.
func (m *MemoryBuffers) Rows(buffer string) []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Row(nil), m.rows[buffer]...)
}

// Series returns the rows of one column of a buffer.
func (m *MemoryBuffers) Series(buffer, column string) []Row {
	var out []Row
	for _, r := range m.Rows(buffer) {
		if r.Column == column {
			out = append(out, r)
		}
	}
	return out
}

// Buffers returns the buffer ids, sorted.
func (m *MemoryBuffers) Buffers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Tee fans rows out to several sinks in order, stopping at the first error.
type Tee []Sink

// AppendRows implements Sink.
func (t Tee) AppendRows(ctx context.Context, rows []Row) error {
	for _, s := range t {
		if err := s.AppendRows(ctx, rows); err != nil {
			return err
		}
	}
	return nil
}
