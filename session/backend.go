package session

import (
	"context"
	"errors"
	"sync"
)

// ErrSlotNotFound is returned by a [Backend] when a slot holds no value.
var ErrSlotNotFound = errors.New("credential slot not found")

// Backend persists raw slot values. Implementations must be safe for concurrent use.
type Backend interface {
	Get(ctx context.Context, slot Slot) ([]byte, error)
	Set(ctx context.Context, slot Slot, value []byte) error
	// Delete removes the given slots. Missing slots are not an error.
	Delete(ctx context.Context, slots ...Slot) error
}

// SlotValue pairs a slot with the value to write.
type SlotValue struct {
	Slot  Slot
	Value []byte
}

// BatchWriter is implemented by backends that can write several slots atomically.
type BatchWriter interface {
	SetAll(ctx context.Context, values []SlotValue) error
}

// Closer is implemented by backends holding connections or files.
type Closer interface {
	Close() error
}

// MemoryBackend keeps slots in process memory.
type MemoryBackend struct {
	mu    sync.RWMutex
	slots map[Slot][]byte
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{slots: make(map[Slot][]byte)}
}

func (m *MemoryBackend) Get(_ context.Context, slot Slot) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.slots[slot]
	if !ok {
		return nil, ErrSlotNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryBackend) Set(_ context.Context, slot Slot, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryBackend) SetAll(_ context.Context, values []SlotValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range values {
		m.slots[v.Slot] = append([]byte(nil), v.Value...)
	}
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, slots ...Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, slot := range slots {
		delete(m.slots, slot)
	}
	return nil
}

// Len returns the number of populated slots.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.slots)
}
