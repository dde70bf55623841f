package repository

import (
	"sync"

	"pi-assistant/internal/models"
)

// DefaultWindowSize is how many exchanges stay in memory.
const DefaultWindowSize = 50

// Window is a bounded FIFO of the most recent exchanges, oldest first.
type Window struct {
	mu       sync.RWMutex
	items    []models.Exchange
	capacity int
}

func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &Window{
		items:    make([]models.Exchange, 0, capacity),
		capacity: capacity,
	}
}

func (w *Window) Push(ex models.Exchange) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.items = append(w.items, ex)
	if over := len(w.items) - w.capacity; over > 0 {
		// copy down so the backing array does not grow without bound
		n := copy(w.items, w.items[over:])
		w.items = w.items[:n]
	}
}

// Recent returns up to n of the newest exchanges in chronological order.
func (w *Window) Recent(n int) []models.Exchange {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if n <= 0 {
		return []models.Exchange{}
	}
	start := len(w.items) - n
	if start < 0 {
		start = 0
	}
	out := make([]models.Exchange, len(w.items)-start)
	copy(out, w.items[start:])
	return out
}

func (w *Window) All() []models.Exchange {
	return w.Recent(w.capacity)
}

func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.items)
}

// LastID is the id of the newest exchange, or 0 when empty.
func (w *Window) LastID() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.items) == 0 {
		return 0
	}
	return w.items[len(w.items)-1].ID
}
