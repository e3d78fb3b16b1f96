package engine

import (
	"log"
	"sync"

	"centrallog/pkg/config"
	"centrallog/pkg/output"
)

// Supervisor owns the pipeline lifecycle: the buffers, the intake pool and
// the drain worker, started and stopped in an order that guarantees the
// drain sees the priority buffer's shutdown wake-up only after every intake
// worker has ceased producing.
type Supervisor struct {
	pb    *PriorityBuffer
	dlb   *DeadLetterBuffer
	pool  *IntakePool
	drain *DrainWorker

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewSupervisor builds the pipeline around the given bus and sink.
func NewSupervisor(bus Bus, sink output.Sink, intake config.IntakeConfig, buffers config.BufferConfig) *Supervisor {
	pb := NewPriorityBuffer(buffers.PriorityCapacityBytes)
	dlb := NewDeadLetterBufferThresholds(buffers.DeadLetterCapacityMB,
		buffers.DeadLetterSoft, buffers.DeadLetterHard, buffers.DeadLetterHardStop)
	return &Supervisor{
		pb:    pb,
		dlb:   dlb,
		pool:  NewIntakePool(intake.Workers, bus, pb, dlb, intake.BatchSize),
		drain: NewDrainWorker(pb, dlb, sink),
	}
}

// PriorityBuffer exposes the primary buffer, mainly for observation.
func (s *Supervisor) PriorityBuffer() *PriorityBuffer { return s.pb }

// DeadLetterBuffer exposes the overflow buffer, mainly for observation.
func (s *Supervisor) DeadLetterBuffer() *DeadLetterBuffer { return s.dlb }

// Start launches the intake pool and then the drain worker. Idempotent.
func (s *Supervisor) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.pool.Start()
	s.drain.Start()
	log.Printf("[supervisor] pipeline started")
}

// Stop shuts the pipeline down: intake workers first (so nothing produces),
// then the priority buffer (to wake a blocked drain), then the drain worker.
// Safe to call more than once.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.stopped {
		return
	}
	s.stopped = true

	s.pool.Stop()
	s.pb.Shutdown()
	s.drain.Stop()

	log.Printf("[supervisor] pipeline stopped (rejected=%d, evicted=%d, left=%d/%d)",
		s.pb.Dropped(), s.dlb.Evicted(), s.pb.Size(), s.dlb.Size())
}
