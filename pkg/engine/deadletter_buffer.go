package engine

import (
	"sync"

	"centrallog/pkg/model"
)

// Default eviction thresholds for the dead-letter buffer, as fractions of
// capacity. Soft trickle keeps steady-state pressure below the hard tier;
// the hard-stop gap below hard gives hysteresis after a drain.
const (
	DefaultSoftThreshold     = 0.6
	DefaultHardThreshold     = 0.9
	DefaultHardStopThreshold = 0.7
)

// softEvictionCount bounds how many records a single soft trickle removes.
const softEvictionCount = 10

// DeadLetterBuffer is a thread-safe FIFO overflow buffer under a byte budget.
// Admission evicts oldest records in two tiers rather than rejecting, so a
// burst can never wedge the buffer at capacity. Dequeue never blocks.
type DeadLetterBuffer struct {
	mu sync.Mutex

	q             []model.Record
	usedBytes     int
	capacityBytes int

	soft     float64
	hard     float64
	hardStop float64

	evicted uint64
}

// NewDeadLetterBuffer creates a buffer with the given capacity in MiB and the
// default eviction thresholds.
func NewDeadLetterBuffer(capacityMB int) *DeadLetterBuffer {
	return NewDeadLetterBufferThresholds(capacityMB,
		DefaultSoftThreshold, DefaultHardThreshold, DefaultHardStopThreshold)
}

// NewDeadLetterBufferThresholds creates a buffer with explicit eviction
// thresholds. hardStop must be below hard and soft at most hard; a zero
// threshold falls back to its default.
func NewDeadLetterBufferThresholds(capacityMB int, soft, hard, hardStop float64) *DeadLetterBuffer {
	if soft <= 0 {
		soft = DefaultSoftThreshold
	}
	if hard <= 0 {
		hard = DefaultHardThreshold
	}
	if hardStop <= 0 {
		hardStop = DefaultHardStopThreshold
	}
	return &DeadLetterBuffer{
		capacityBytes: capacityMB * 1024 * 1024,
		soft:          soft,
		hard:          hard,
		hardStop:      hardStop,
	}
}

// Enqueue admits a record at the back of the queue, evicting oldest records
// first if pressure demands it. Only a record bigger than the whole budget
// is rejected.
func (b *DeadLetterBuffer) Enqueue(rec model.Record) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enqueueLocked(rec)
}

// EnqueueBatch admits each record independently and returns the number
// admitted. A per-record rejection does not abort the batch.
func (b *DeadLetterBuffer) EnqueueBatch(recs []model.Record) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	admitted := 0
	for _, rec := range recs {
		if b.enqueueLocked(rec) {
			admitted++
		}
	}
	return admitted
}

func (b *DeadLetterBuffer) enqueueLocked(rec model.Record) bool {
	size := rec.SizeBytes()
	if size > b.capacityBytes {
		return false
	}

	// Soft trickle: above the soft watermark, shed a bounded number of the
	// oldest records.
	if float64(b.usedBytes) > float64(b.capacityBytes)*b.soft {
		for i := 0; i < softEvictionCount && len(b.q) > 0; i++ {
			b.evictOldestLocked()
		}
	}

	// Hard drain: if admission would cross the hard watermark, drain down to
	// the hard-stop watermark or until empty.
	if float64(b.usedBytes+size) > float64(b.capacityBytes)*b.hard {
		target := int(float64(b.capacityBytes) * b.hardStop)
		for b.usedBytes > target && len(b.q) > 0 {
			b.evictOldestLocked()
		}
	}

	b.q = append(b.q, rec)
	b.usedBytes += size
	return true
}

func (b *DeadLetterBuffer) evictOldestLocked() {
	b.usedBytes -= b.q[0].SizeBytes()
	b.q = b.q[1:]
	b.evicted++
}

// Dequeue removes the oldest record. It never blocks; ok is false when the
// buffer is empty.
func (b *DeadLetterBuffer) Dequeue() (model.Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.q) == 0 {
		return model.Record{}, false
	}
	rec := b.q[0]
	b.usedBytes -= rec.SizeBytes()
	b.q = b.q[1:]
	return rec, true
}

// DequeueBatch removes up to max records in admission order without blocking.
func (b *DeadLetterBuffer) DequeueBatch(max int) []model.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.q)
	if n > max {
		n = max
	}
	out := make([]model.Record, 0, n)
	for i := 0; i < n; i++ {
		rec := b.q[0]
		b.usedBytes -= rec.SizeBytes()
		b.q = b.q[1:]
		out = append(out, rec)
	}
	return out
}

// Size returns the number of buffered records.
func (b *DeadLetterBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.q)
}

// UsedBytes returns the accounted size of all buffered records.
func (b *DeadLetterBuffer) UsedBytes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.usedBytes
}

// CapacityBytes returns the byte budget.
func (b *DeadLetterBuffer) CapacityBytes() int {
	return b.capacityBytes
}

// Evicted returns the total number of records shed by eviction.
func (b *DeadLetterBuffer) Evicted() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.evicted
}

// Reset discards all buffered records and clears the byte count.
func (b *DeadLetterBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.q = nil
	b.usedBytes = 0
}
