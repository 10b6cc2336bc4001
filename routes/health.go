package routes

import (
	"net/http"

	"github.com/rivlab/analytics-core/responder"
)

// HealthHandler handles GET /health
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	responder.New(w, map[string]string{"status": "ok"})
}
