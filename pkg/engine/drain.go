package engine

import (
	"log"
	"sync/atomic"
	"time"

	"centrallog/pkg/model"
	"centrallog/pkg/output"
)

const (
	// drainBatchSize is how many records one dequeue pass pulls from the
	// priority buffer. Batching amortizes the lock.
	drainBatchSize = 20

	// backlogThreshold tags records whose delivery lags the stream.
	backlogThreshold = 200 * time.Millisecond

	// sinkRetryDelay is the pause while the sink is absent or not ready.
	sinkRetryDelay = 10 * time.Millisecond
)

// Delivery tags for records that have fallen behind real time.
const (
	backlogTag    = "[BACKLOG]"
	backlogDLQTag = "[BACKLOG.DLQ]"
)

// DrainWorker is the single consumer of the priority buffer. It merges
// batches to the sink in timestamp order, tags late records, and trickles
// the dead-letter buffer when the primary has headroom.
type DrainWorker struct {
	pb   *PriorityBuffer
	dlb  *DeadLetterBuffer
	sink output.Sink

	// latest is the highest timestamp delivered so far. The drain worker is
	// single-threaded, so it is unshared. The zero time means the first
	// record can never be tagged as backlog.
	latest time.Time

	stop atomic.Bool
	done chan struct{}
}

// NewDrainWorker wires the drain worker to the buffers and its sink.
func NewDrainWorker(pb *PriorityBuffer, dlb *DeadLetterBuffer, sink output.Sink) *DrainWorker {
	return &DrainWorker{
		pb:   pb,
		dlb:  dlb,
		sink: sink,
		done: make(chan struct{}),
	}
}

// Start launches the drain goroutine.
func (w *DrainWorker) Start() {
	go w.run()
}

// Stop signals the worker and waits for the final flush. The priority buffer
// must have been shut down first, or a blocked dequeue keeps the worker
// waiting until the next record arrives.
func (w *DrainWorker) Stop() {
	w.stop.Store(true)
	<-w.done
}

func (w *DrainWorker) run() {
	defer close(w.done)

	for !w.stop.Load() {
		if w.sink == nil || !w.sink.Ready() {
			time.Sleep(sinkRetryDelay)
			continue
		}

		batch := w.pb.DequeueBatch(drainBatchSize)
		if len(batch) == 0 {
			// Only happens after buffer shutdown; yield until Stop lands.
			time.Sleep(time.Millisecond)
			continue
		}

		w.writeBatch(batch)

		// Trickle the dead-letter buffer only while the primary stream has
		// headroom, so demoted records never crowd out ordered delivery.
		if !w.pb.IsOverloaded(OverloadThreshold) && w.dlb.Size() > 0 {
			if rec, ok := w.dlb.Dequeue(); ok {
				w.write(backlogDLQTag + rec.String())
			}
		}

		if err := w.sink.Flush(); err != nil {
			log.Printf("[drain] sink flush: %v", err)
		}
	}

	// Records admitted before shutdown still get delivered; the buffer no
	// longer blocks once it is shut down.
	if w.sink != nil && w.pb.Stopped() {
		for {
			batch := w.pb.DequeueBatch(drainBatchSize)
			if len(batch) == 0 {
				break
			}
			w.writeBatch(batch)
		}
	}

	if w.sink != nil {
		if err := w.sink.Flush(); err != nil {
			log.Printf("[drain] final flush: %v", err)
		}
	}
}

func (w *DrainWorker) writeBatch(batch []model.Record) {
	for _, rec := range batch {
		line := rec.String()
		if w.latest.Sub(rec.Timestamp) > backlogThreshold {
			line = backlogTag + line
		}
		if rec.Timestamp.After(w.latest) {
			w.latest = rec.Timestamp
		}
		w.write(line)
	}
}

func (w *DrainWorker) write(line string) {
	if err := w.sink.Write(line); err != nil {
		log.Printf("[drain] sink write: %v", err)
	}
}
