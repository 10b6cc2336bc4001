package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rivlab/analytics-core/structs"
)

// Writer is the interface for writing document batches, grouped by dataset
type Writer interface {
	WriteBatch(ctx context.Context, dataset string, docs []structs.Row) error
}

// Batcher collects documents and flushes them in batches
type Batcher struct {
	queue         *Queue
	writer        Writer
	batchSize     int
	flushInterval time.Duration
	batch         []*structs.Document
	log           *zap.Logger
}

// NewBatcher creates a new batcher
func NewBatcher(queue *Queue, writer Writer, batchSize int, flushInterval time.Duration, log *zap.Logger) *Batcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Batcher{
		queue:         queue,
		writer:        writer,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		batch:         make([]*structs.Document, 0, batchSize),
		log:           log,
	}
}

// Run starts the batcher loop
func (b *Batcher) Run(ctx context.Context) {
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if len(b.batch) > 0 {
				b.flush(context.Background())
			}
			return

		case doc, ok := <-b.queue.Documents():
			if !ok {
				if len(b.batch) > 0 {
					b.flush(ctx)
				}
				return
			}
			b.batch = append(b.batch, doc)
			if len(b.batch) >= b.batchSize {
				b.flush(ctx)
			}

		case <-ticker.C:
			if len(b.batch) > 0 {
				b.flush(ctx)
			}
		}
	}
}

// flush writes the pending batch, one write per dataset
func (b *Batcher) flush(ctx context.Context) {
	if len(b.batch) == 0 {
		return
	}

	byDataset := make(map[string][]structs.Row)
	for _, doc := range b.batch {
		byDataset[doc.Dataset] = append(byDataset[doc.Dataset], doc.Fields)
	}

	start := time.Now()
	for dataset, docs := range byDataset {
		if err := b.writer.WriteBatch(ctx, dataset, docs); err != nil {
			b.log.Error("failed to write batch",
				zap.String("dataset", dataset),
				zap.Int("documents", len(docs)),
				zap.Error(err))
			continue
		}
		b.log.Debug("flushed batch",
			zap.String("dataset", dataset),
			zap.Int("documents", len(docs)),
			zap.Duration("took", time.Since(start)))
	}

	b.batch = b.batch[:0]
}
