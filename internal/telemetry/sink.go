// Package telemetry holds the advisory outputs of the control loop: a
// dashboard-style key/value sink and best-effort CSV logs. Nothing in here
// may change control behavior; callers treat every failure as a warning.
package telemetry

import (
	"sort"
	"sync"
)

// Sink receives diagnostic values keyed by name.
type Sink interface {
	PutNumber(key string, value float64)
	PutString(key string, value string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) PutNumber(string, float64) {}
func (Nop) PutString(string, string)  {}

// Table is an in-memory Sink. It is safe for concurrent use so a display
// goroutine can read while the loop writes.
type Table struct {
	mu      sync.RWMutex
	numbers map[string]float64
	strings map[string]string
}

func NewTable() *Table {
	return &Table{
		numbers: make(map[string]float64),
		strings: make(map[string]string),
	}
}

func (t *Table) PutNumber(key string, value float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.numbers[key] = value
}

func (t *Table) PutString(key string, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.strings[key] = value
}

func (t *Table) Number(key string) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.numbers[key]
	return v, ok
}

func (t *Table) Text(key string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.strings[key]
	return v, ok
}

// Keys returns every key written so far, sorted.
func (t *Table) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]string, 0, len(t.numbers)+len(t.strings))
	for k := range t.numbers {
		keys = append(keys, k)
	}
	for k := range t.strings {
		if _, dup := t.numbers[k]; !dup {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Snapshot copies the numeric values.
func (t *Table) Snapshot() map[string]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]float64, len(t.numbers))
	for k, v := range t.numbers {
		out[k] = v
	}
	return out
}
