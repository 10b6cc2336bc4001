package routes

import (
	"net/http"

	"github.com/rivlab/analytics-core/responder"
	"github.com/rivlab/analytics-core/settings"
)

// defaultUser scopes settings when the caller sends no identity
const defaultUser = "default"

func settingsUser(r *http.Request) string {
	if user := r.Header.Get("X-User"); user != "" {
		return user
	}
	return defaultUser
}

// GetSettingsHandler handles GET /v1/datasets/{dataset}/settings
// First access bootstraps settings from the dataset's discovered shape.
func GetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	s, err := Analytics.Settings(r.Context(), settingsUser(r), datasetID(r))
	if err != nil {
		respondError(w, err, "load settings")
		return
	}
	responder.New(w, s)
}

// PutSettingsHandler handles PUT /v1/datasets/{dataset}/settings
func PutSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var s settings.QuerySettings
	if !decodeBody(w, r, &s) {
		return
	}
	if err := Analytics.SaveSettings(r.Context(), settingsUser(r), datasetID(r), &s); err != nil {
		respondError(w, err, "save settings")
		return
	}
	responder.New(w, &s)
}
