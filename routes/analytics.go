package routes

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/rivlab/analytics-core/responder"
	"github.com/rivlab/analytics-core/services"
	"github.com/rivlab/analytics-core/structs"
)

// maxRequestBodySize limits request body to 1MB
const maxRequestBodySize = 1 << 20

// Analytics is the coordinator every handler dispatches through, set by
// main before the server starts
var Analytics *services.Coordinator

// decodeBody decodes a JSON request body into dst, writing the error
// response itself on failure
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if err == io.EOF {
			responder.Error(w, http.StatusBadRequest, "request body is required")
			return false
		}
		responder.Error(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// respondError maps domain errors onto HTTP statuses
func respondError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, structs.ErrInvalidDataset):
		responder.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, structs.ErrInvalidRange),
		errors.Is(err, structs.ErrMissingRequiredField):
		responder.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, structs.ErrUnsupportedCapability):
		responder.Error(w, http.StatusNotImplemented, err.Error())
	default:
		responder.ErrorWithCause(w, http.StatusInternalServerError, "failed to "+action, err)
	}
}

func datasetID(r *http.Request) string {
	return mux.Vars(r)["dataset"]
}

// DatasetsHandler handles GET /v1/datasets
func DatasetsHandler(w http.ResponseWriter, r *http.Request) {
	responder.New(w, Analytics.Datasets())
}

// RollupHandler handles POST /v1/datasets/{dataset}/rollup
func RollupHandler(w http.ResponseWriter, r *http.Request) {
	var query structs.Query
	if !decodeBody(w, r, &query) {
		return
	}
	rows, err := Analytics.Rollup(r.Context(), datasetID(r), query)
	if err != nil {
		respondError(w, err, "execute rollup query")
		return
	}
	responder.New(w, rows)
}

// ScanHandler handles POST /v1/datasets/{dataset}/scan
func ScanHandler(w http.ResponseWriter, r *http.Request) {
	var query structs.Query
	if !decodeBody(w, r, &query) {
		return
	}
	rows, err := Analytics.Scan(r.Context(), datasetID(r), query)
	if err != nil {
		respondError(w, err, "execute scan query")
		return
	}
	responder.New(w, rows)
}

// TimeseriesHandler handles POST /v1/datasets/{dataset}/timeseries
func TimeseriesHandler(w http.ResponseWriter, r *http.Request) {
	var query structs.Query
	if !decodeBody(w, r, &query) {
		return
	}
	rows, err := Analytics.Timeseries(r.Context(), datasetID(r), query)
	if err != nil {
		respondError(w, err, "execute timeseries query")
		return
	}
	responder.New(w, rows)
}

// ValuesHandler handles GET /v1/datasets/{dataset}/values
// Query params: field (required), search, range, limit.
func ValuesHandler(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := structs.ValuesQuery{
		Field:  params.Get("field"),
		Search: params.Get("search"),
	}
	if preset := params.Get("range"); preset != "" {
		query.Range.Preset = preset
	}
	if limit := params.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			query.Limit = n
		}
	}
	rows, err := Analytics.Values(r.Context(), datasetID(r), query)
	if err != nil {
		respondError(w, err, "execute values query")
		return
	}
	responder.New(w, rows)
}

// SchemaHandler handles GET /v1/datasets/{dataset}/schema
func SchemaHandler(w http.ResponseWriter, r *http.Request) {
	var rng structs.RangeSpec
	if preset := r.URL.Query().Get("range"); preset != "" {
		rng.Preset = preset
	}
	schema, err := Analytics.Schema(r.Context(), datasetID(r), rng)
	if err != nil {
		respondError(w, err, "discover schema")
		return
	}
	responder.New(w, schema)
}

// RangeHandler handles GET /v1/datasets/{dataset}/range
func RangeHandler(w http.ResponseWriter, r *http.Request) {
	rng, err := Analytics.Range(r.Context(), datasetID(r))
	if err != nil {
		respondError(w, err, "discover range")
		return
	}
	responder.New(w, rng)
}
