package routes

import (
	"net/http"

	"github.com/rivlab/analytics-core/responder"
	"github.com/rivlab/analytics-core/services"
	"github.com/rivlab/analytics-core/structs"
)

// Queue receives ingest documents for async flushing, set by main
var Queue *services.Queue

// IngestHandler handles POST /v1/datasets/{dataset}/insert
// Documents are acknowledged once queued, not once written.
func IngestHandler(w http.ResponseWriter, r *http.Request) {
	dataset := datasetID(r)
	if err := Analytics.CanInsert(dataset); err != nil {
		respondError(w, err, "ingest documents")
		return
	}

	var docs []structs.Row
	if !decodeBody(w, r, &docs) {
		return
	}
	if len(docs) == 0 {
		responder.Error(w, http.StatusBadRequest, "at least one document is required")
		return
	}

	accepted := 0
	for _, fields := range docs {
		if Queue.Enqueue(&structs.Document{Dataset: dataset, Fields: fields}) {
			accepted++
		}
	}
	if accepted < len(docs) {
		responder.Status(w, http.StatusServiceUnavailable, map[string]any{
			"accepted": accepted,
			"dropped":  len(docs) - accepted,
		})
		return
	}
	responder.Status(w, http.StatusAccepted, map[string]any{"accepted": accepted})
}

// QueueStatsHandler handles GET /v1/queue/stats
func QueueStatsHandler(w http.ResponseWriter, r *http.Request) {
	enqueued, dropped, pending := Queue.Stats()
	responder.New(w, map[string]any{
		"enqueued": enqueued,
		"dropped":  dropped,
		"pending":  pending,
	})
}
