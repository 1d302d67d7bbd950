// Package audit defines the event boundary for key lifecycle and envelope
// operations. The suite emits one Record per security-relevant operation;
// recorders decide where events go. Records carry identifiers and outcomes
// only, never key material or plaintext.
package audit

import (
	"sync"
	"time"
)

// Outcome classifies how an operation ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	// OutcomeRejected marks an expected cryptographic rejection, e.g. a
	// signature that failed verification. Distinct from operational failure.
	OutcomeRejected Outcome = "rejected"
)

// Record is a single audit event.
type Record struct {
	// Time is when the operation completed.
	Time time.Time
	// Operation names the operation ("generate", "rotate", "revoke",
	// "encrypt", "decrypt", "sign", "verify", "delegate").
	Operation string
	// KeyID identifies the key involved, when one is.
	KeyID string
	// Variant is the parameter variant of the key involved.
	Variant string
	// Outcome classifies the result.
	Outcome Outcome
	// Latency is how long the operation took.
	Latency time.Duration
	// Backend names the HSM backend that serviced a delegated operation.
	// Empty for in-process operations.
	Backend string
	// Detail is a short human-readable elaboration. Never contains secrets.
	Detail string
}

// Recorder receives audit records. Implementations must be safe for
// concurrent use and must not block the calling operation for long.
type Recorder interface {
	Emit(Record)
}

// NopRecorder discards every record.
type NopRecorder struct{}

// Emit implements Recorder.
func (NopRecorder) Emit(Record) {}

// MemoryRecorder buffers records in memory. Intended for tests and for
// processes that drain records themselves.
type MemoryRecorder struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Emit implements Recorder.
func (m *MemoryRecorder) Emit(r Record) {
	m.mu.Lock()
	m.records = append(m.records, r)
	m.mu.Unlock()
}

// Records returns a copy of everything emitted so far.
func (m *MemoryRecorder) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Reset discards buffered records.
func (m *MemoryRecorder) Reset() {
	m.mu.Lock()
	m.records = nil
	m.mu.Unlock()
}
