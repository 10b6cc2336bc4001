package services

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/rivlab/analytics-core/structs"
)

// Queue is a buffered channel for ingest documents
type Queue struct {
	docs     chan *structs.Document
	dropped  atomic.Int64
	enqueued atomic.Int64
	log      *zap.Logger
}

// NewQueue creates a new document queue with the specified buffer size
func NewQueue(size int, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{
		docs: make(chan *structs.Document, size),
		log:  log,
	}
}

// Enqueue adds a document to the queue
// Returns false if the queue is full (document dropped)
func (q *Queue) Enqueue(doc *structs.Document) bool {
	select {
	case q.docs <- doc:
		q.enqueued.Add(1)
		return true
	default:
		q.dropped.Add(1)
		q.log.Warn("queue overflow: dropped document",
			zap.String("dataset", doc.Dataset))
		return false
	}
}

// Documents returns the channel for consuming documents
func (q *Queue) Documents() <-chan *structs.Document {
	return q.docs
}

// Stats returns queue statistics
func (q *Queue) Stats() (enqueued, dropped int64, pending int) {
	return q.enqueued.Load(), q.dropped.Load(), len(q.docs)
}

// Close closes the queue channel
func (q *Queue) Close() {
	close(q.docs)
}
