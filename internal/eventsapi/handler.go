package eventsapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

type countResponse struct {
	Count int `json:"count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter wires the events routes. Ids may be negative; anything that is not an
// integer never matches and gets the router's 404.
func NewRouter(store Store, logger *log.Logger) *mux.Router {
	h := &handler{store: store, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/events/{user_id:-?[0-9]+}", h.latestEvents).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	return r
}

type handler struct {
	store  Store
	logger *log.Logger
}

func (h *handler) latestEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(mux.Vars(r)["user_id"], 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	events, err := h.store.LatestEvents(r.Context(), userID, DefaultLimit)
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("GET %s: %v", r.URL.Path, err)
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load events"})
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: len(events)})
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
