package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/magnusohlin/numba/internal/app"
	"github.com/magnusohlin/numba/internal/domain"
)

const (
	defaultResultsLimit = 20
	maxResultsLimit     = 100
)

// ResultsHandler serves archived game results over plain HTTP.
type ResultsHandler struct {
	results app.ResultReader
}

func NewResultsHandler(results app.ResultReader) *ResultsHandler {
	return &ResultsHandler{results: results}
}

// Register mounts the handler on mux.
func (h *ResultsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /results", h.list)
	mux.HandleFunc("GET /results/{id}", h.get)
}

func (h *ResultsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := defaultResultsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Message: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxResultsLimit)
	}

	results, err := h.results.RecentResults(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("list results failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: "failed to load results"})
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *ResultsHandler) get(w http.ResponseWriter, r *http.Request) {
	result, err := h.results.Result(r.Context(), r.PathValue("id"))
	if errors.Is(err, domain.ErrResultNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Message: err.Error()})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("load result failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: "failed to load result"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug().Err(err).Msg("write response failed")
	}
}
