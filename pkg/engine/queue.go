package engine

import (
	"centrallog/pkg/model"
)

// Queue is the capability set shared by the two record buffers. The types
// stay distinct because their admission policies, ordering and blocking
// semantics differ; only this surface and the size accounting are common.
type Queue interface {
	Enqueue(rec model.Record) bool
	EnqueueBatch(recs []model.Record) int
	Dequeue() (model.Record, bool)
	DequeueBatch(max int) []model.Record
	Size() int
	UsedBytes() int
	Reset()
}

var (
	_ Queue = (*PriorityBuffer)(nil)
	_ Queue = (*DeadLetterBuffer)(nil)
)
