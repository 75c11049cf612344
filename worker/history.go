package worker

import (
	"fmt"
	"sync"
	"time"
)

const defaultHistoryCapacity = 100

// Record captures one completed invocation on a Thread.
type Record struct {
	Name       string
	Context    string
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Panicked   bool
}

// history is a fixed-size ring of the most recent records.
type history struct {
	mu    sync.Mutex
	items []Record
	head  int
	count int
}

func newHistory(capacity int) *history {
	if capacity < 1 {
		capacity = defaultHistoryCapacity
	}
	return &history{items: make([]Record, capacity)}
}

func (h *history) Add(record Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items[h.head] = record
	h.head = (h.head + 1) % len(h.items)
	if h.count < len(h.items) {
		h.count++
	}
}

// Recent returns up to limit records, newest first. limit <= 0 returns all.
func (h *history) Recent(limit int) []Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return nil
	}
	if limit <= 0 || limit > h.count {
		limit = h.count
	}

	out := make([]Record, 0, limit)
	for i := range limit {
		idx := (h.head - 1 - i + len(h.items)) % len(h.items)
		out = append(out, h.items[idx])
	}
	return out
}

func (h *history) Last() (Record, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return Record{}, false
	}
	return h.items[(h.head-1+len(h.items))%len(h.items)], true
}

func invocationName(call any) string {
	if s, ok := call.(fmt.Stringer); ok {
		if name := s.String(); name != "" {
			return name
		}
	}
	return "anonymous"
}
