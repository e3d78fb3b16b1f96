package engine

import (
	"container/heap"
	"sync"

	"centrallog/pkg/model"
)

// OverloadThreshold is the used-bytes fraction above which the priority
// buffer reports pressure to the drain worker.
const OverloadThreshold = 0.6

// DefaultPriorityCapacityBytes caps the priority buffer at 15 MiB.
const DefaultPriorityCapacityBytes = 15 * 1024 * 1024

type prioritizedRecord struct {
	rec model.Record
	seq uint64 // admission order, breaks timestamp ties deterministically
}

type recordHeap []prioritizedRecord

func (h recordHeap) Len() int { return len(h) }

func (h recordHeap) Less(i, j int) bool {
	if !h[i].rec.Timestamp.Equal(h[j].rec.Timestamp) {
		return h[i].rec.Timestamp.Before(h[j].rec.Timestamp)
	}
	return h[i].seq < h[j].seq
}

func (h recordHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *recordHeap) Push(x any) { *h = append(*h, x.(prioritizedRecord)) }

func (h *recordHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// PriorityBuffer is a thread-safe staging buffer that delivers records in
// timestamp order under a byte budget. Producers never block; consumers block
// until a record is available or Shutdown is called.
type PriorityBuffer struct {
	mu   sync.Mutex
	cond *sync.Cond

	heap          recordHeap
	nextSeq       uint64
	usedBytes     int
	capacityBytes int
	stopped       bool
	dropped       uint64
}

// NewPriorityBuffer creates a buffer with the given byte budget.
func NewPriorityBuffer(capacityBytes int) *PriorityBuffer {
	if capacityBytes <= 0 {
		capacityBytes = DefaultPriorityCapacityBytes
	}
	b := &PriorityBuffer{
		capacityBytes: capacityBytes,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Enqueue admits a record if the budget allows, maintaining timestamp order.
// Returns false when the record is rejected; rejection is silent, the caller
// decides what to do with the record.
func (b *PriorityBuffer) Enqueue(rec model.Record) bool {
	b.mu.Lock()
	admitted := b.enqueueLocked(rec)
	b.mu.Unlock()
	if admitted {
		b.cond.Signal()
	}
	return admitted
}

// EnqueueBatch admits each record independently under a single lock
// acquisition and returns the number admitted. A rejection does not abort
// the rest of the batch.
func (b *PriorityBuffer) EnqueueBatch(recs []model.Record) int {
	b.mu.Lock()
	admitted := 0
	for _, rec := range recs {
		if b.enqueueLocked(rec) {
			admitted++
		}
	}
	b.mu.Unlock()
	if admitted > 0 {
		b.cond.Broadcast()
	}
	return admitted
}

func (b *PriorityBuffer) enqueueLocked(rec model.Record) bool {
	size := rec.SizeBytes()
	if size > b.capacityBytes {
		b.dropped++
		return false
	}
	if b.usedBytes+size > b.capacityBytes {
		b.dropped++
		return false
	}
	heap.Push(&b.heap, prioritizedRecord{rec: rec, seq: b.nextSeq})
	b.nextSeq++
	b.usedBytes += size
	return true
}

// Dequeue removes the earliest-timestamped record, blocking until one is
// available. Returns false only after Shutdown with the buffer drained empty.
func (b *PriorityBuffer) Dequeue() (model.Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(b.heap) == 0 && !b.stopped {
		b.cond.Wait()
	}
	if len(b.heap) == 0 {
		return model.Record{}, false
	}
	return b.popLocked(), true
}

// DequeueBatch blocks until at least one record is available (or Shutdown),
// then removes up to max records in timestamp order without re-blocking.
// Returns an empty slice only on shutdown with nothing left.
func (b *PriorityBuffer) DequeueBatch(max int) []model.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(b.heap) == 0 && !b.stopped {
		b.cond.Wait()
	}

	n := len(b.heap)
	if n > max {
		n = max
	}
	out := make([]model.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, b.popLocked())
	}
	return out
}

func (b *PriorityBuffer) popLocked() model.Record {
	item := heap.Pop(&b.heap).(prioritizedRecord)
	b.usedBytes -= item.rec.SizeBytes()
	return item.rec
}

// Shutdown wakes every blocked consumer. Records still buffered can be
// drained; new Dequeue calls on an empty buffer return immediately.
func (b *PriorityBuffer) Shutdown() {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()
	b.cond.Broadcast()
}

// Stopped reports whether Shutdown has been called.
func (b *PriorityBuffer) Stopped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopped
}

// Size returns the number of buffered records.
func (b *PriorityBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.heap)
}

// UsedBytes returns the accounted size of all buffered records.
func (b *PriorityBuffer) UsedBytes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.usedBytes
}

// CapacityBytes returns the byte budget.
func (b *PriorityBuffer) CapacityBytes() int {
	return b.capacityBytes
}

// Dropped returns the number of rejected admissions.
func (b *PriorityBuffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// IsOverloaded reports whether used bytes exceed the given fraction of
// capacity. Pass OverloadThreshold for the standard pressure check.
func (b *PriorityBuffer) IsOverloaded(threshold float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return float64(b.usedBytes)/float64(b.capacityBytes) > threshold
}

// Reset discards all buffered records and clears the byte count.
func (b *PriorityBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.heap = b.heap[:0]
	b.usedBytes = 0
}
