package engine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf16"

	"centrallog/pkg/model"
)

const (
	// receiveTimeout bounds each bus poll so the stop flag is observed.
	receiveTimeout = 1 * time.Second

	// DefaultIntakeBatchSize is how many staged records trigger a flush
	// into the priority buffer.
	DefaultIntakeBatchSize = 50

	// lowPriorityDiversionSize is the secondary backpressure signal: once
	// the priority buffer holds more records than this, INFO-and-below
	// records are demoted straight to the dead-letter buffer. It protects
	// against bursts of small low-value records the byte budget would admit.
	lowPriorityDiversionSize = 1000
)

// IntakeWorker consumes raw frames from the bus, parses them into records and
// routes them between the two buffers. Parse failures are reported to the
// diagnostic log and dropped; only a closed bus terminates the worker.
type IntakeWorker struct {
	name string
	bus  Bus
	pb   *PriorityBuffer
	dlb  *DeadLetterBuffer

	batchSize int
	stop      atomic.Bool
	done      chan struct{}
}

// NewIntakeWorker wires a worker to the shared bus and buffers.
func NewIntakeWorker(id int, bus Bus, pb *PriorityBuffer, dlb *DeadLetterBuffer, batchSize int) *IntakeWorker {
	if batchSize <= 0 {
		batchSize = DefaultIntakeBatchSize
	}
	return &IntakeWorker{
		name:      fmt.Sprintf("intake-%d", id),
		bus:       bus,
		pb:        pb,
		dlb:       dlb,
		batchSize: batchSize,
		done:      make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (w *IntakeWorker) Start() {
	go w.run()
}

// Stop signals the worker and waits for it to flush and exit.
func (w *IntakeWorker) Stop() {
	w.stop.Store(true)
	<-w.done
}

func (w *IntakeWorker) run() {
	defer close(w.done)

	staging := make([]model.Record, 0, w.batchSize)

	for !w.stop.Load() {
		frame, err := w.bus.Receive(receiveTimeout)
		if err != nil {
			if errors.Is(err, ErrBusTimeout) {
				continue
			}
			if errors.Is(err, ErrBusClosed) {
				log.Printf("[%s] bus closed, exiting", w.name)
				break
			}
			log.Printf("[%s] bus error: %v", w.name, err)
			continue
		}

		line := decodeFrame(frame)
		if line == "" {
			continue
		}

		rec, err := model.Parse(line)
		if err != nil {
			log.Printf("[%s] dropping frame: %v", w.name, err)
			continue
		}

		// Demote low-value records while the primary buffer is crowded.
		if rec.Level <= model.LevelInfo && w.pb.Size() > lowPriorityDiversionSize {
			w.dlb.Enqueue(rec)
		} else {
			staging = append(staging, rec)
		}

		if len(staging) >= w.batchSize {
			staging = w.flush(staging)
		}
	}

	// Leftover staged records still belong in the primary stream.
	if len(staging) > 0 {
		log.Printf("[%s] flushing %d leftover records", w.name, len(staging))
		w.flush(staging)
	}
}

// flush admits staged records individually; records the buffer rejects are
// lost. Returns the staging slice emptied for reuse.
func (w *IntakeWorker) flush(staging []model.Record) []model.Record {
	w.pb.EnqueueBatch(staging)
	return staging[:0]
}

// decodeFrame turns a raw bus frame into a candidate log line. Payloads with
// an even byte length of at least two are taken as UTF-16LE and transcoded,
// with trailing NUL and space code units stripped; anything else is taken as
// bytes with trailing NULs stripped. Returns "" for frames empty after
// stripping.
func decodeFrame(frame []byte) string {
	if len(frame) >= 2 && len(frame)%2 == 0 {
		units := make([]uint16, len(frame)/2)
		for i := range units {
			units[i] = binary.LittleEndian.Uint16(frame[2*i:])
		}
		for len(units) > 0 {
			last := units[len(units)-1]
			if last != 0 && last != ' ' {
				break
			}
			units = units[:len(units)-1]
		}
		return string(utf16.Decode(units))
	}

	for len(frame) > 0 && frame[len(frame)-1] == 0 {
		frame = frame[:len(frame)-1]
	}
	return string(frame)
}

// IntakePool owns a fixed set of intake workers sharing the same bus and
// buffers.
type IntakePool struct {
	mu      sync.Mutex
	workers []*IntakeWorker
	running bool
}

// NewIntakePool constructs n workers. They do not run until Start.
func NewIntakePool(n int, bus Bus, pb *PriorityBuffer, dlb *DeadLetterBuffer, batchSize int) *IntakePool {
	p := &IntakePool{}
	for i := 0; i < n; i++ {
		p.workers = append(p.workers, NewIntakeWorker(i, bus, pb, dlb, batchSize))
	}
	return p
}

// Start launches all workers. Calling it on a running pool is a no-op.
func (p *IntakePool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	for _, w := range p.workers {
		w.Start()
	}
}

// Stop signals every worker and waits for each to finish. Safe to call more
// than once; stopping a pool that never started is a no-op.
func (p *IntakePool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	for _, w := range p.workers {
		w.stop.Store(true)
	}
	for _, w := range p.workers {
		<-w.done
	}
}
