// Package httpapi is the thin HTTP render layer over the live-state
// projector and history store (§6.2). It serializes state to JSON; it does
// not own any domain logic.
package httpapi

import (
	"log"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/coachpo/meltica/internal/feed"
	"github.com/coachpo/meltica/internal/history"
	"github.com/coachpo/meltica/internal/jsonutil"
)

const matchHistoryPrefix = "/matchhistory/"

// ProjectorView is the subset of live.Projector the render layer needs.
type ProjectorView interface {
	Current() map[string]feed.MappedMatch
}

// HistoryView is the subset of history.Store the render layer needs.
type HistoryView interface {
	AllIDs() []string
	Current(id string) (history.Entry, bool)
	History(id string) []history.Entry
}

// historyItem is the rendered shape for one /matchhistory/{id} array element.
type historyItem struct {
	StateTimeStamp string          `json:"stateTimeStamp"`
	State          json.RawMessage `json:"state"`
}

// Handler implements the three public endpoints of §6.2.
type Handler struct {
	projector ProjectorView
	store     HistoryView
	logger    *log.Logger
}

// New constructs a Handler rendering projector and store state.
func New(projector ProjectorView, store HistoryView, logger *log.Logger) *Handler {
	return &Handler{projector: projector, store: store, logger: logger}
}

// Routes builds an http.ServeMux with all three endpoints registered.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/state", h.handleState)
	mux.HandleFunc("/internalstate", h.handleInternalState)
	mux.HandleFunc(matchHistoryPrefix, h.handleMatchHistory)
	return mux
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.projector.Current())
}

func (h *Handler) handleInternalState(w http.ResponseWriter, r *http.Request) {
	merged := make(map[string]json.RawMessage)
	for _, id := range h.store.AllIDs() {
		entry, ok := h.store.Current(id)
		if !ok || entry.RenderedJSON == nil {
			continue
		}
		merged[id] = json.RawMessage(entry.RenderedJSON)
	}
	writeJSON(w, http.StatusOK, merged)
}

func (h *Handler) handleMatchHistory(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, matchHistoryPrefix)
	if id == "" {
		writeError(w, http.StatusNotFound, "no history for empty match id")
		return
	}

	entries := h.store.History(id)
	if len(entries) == 0 {
		writeError(w, http.StatusNotFound, "no history for match id: "+id)
		return
	}

	items := make([]historyItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, historyItem{
			StateTimeStamp: formatTimestamp(entry.TimestampMS),
			State:          json.RawMessage(entry.RenderedJSON),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonutil.WriteIndented(w, payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func formatTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}
