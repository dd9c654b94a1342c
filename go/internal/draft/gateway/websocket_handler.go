package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/mcdev12/livedraft/go/internal/draft/draft"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles websocket upgrade requests for draft boards
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	drafts            draft.DraftApp
}

// NewWebSocketHandler creates a new websocket handler
func NewWebSocketHandler(cm *ConnectionManager, drafts draft.DraftApp) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		drafts:            drafts,
	}
}

// HandleDraftConnection handles GET /drafts/{id}/ws. The board snapshot is
// read before upgrading so an unknown draft gets a plain error response.
func (h *WebSocketHandler) HandleDraftConnection(w http.ResponseWriter, r *http.Request) {
	draftID := r.PathValue("id")

	view, err := h.drafts.GetDraftState(r.Context(), draftID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snapshot, err := NewSnapshot(view)
	if err != nil {
		writeError(w, r, err)
		return
	}
	initial, err := json.Marshal(snapshot)
	if err != nil {
		writeError(w, r, err)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "anonymous"
	}

	// the upgrader has already written an HTTP error on failure
	if _, err := h.connectionManager.UpgradeConnection(w, r, draftID, userID, initial); err != nil {
		log.Error().
			Err(err).
			Str("draft_id", draftID).
			Str("user_id", userID).
			Msg("failed to upgrade websocket connection")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connectionManager.Stats())
}

// RegisterRoutes registers websocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /drafts/{id}/ws", h.HandleDraftConnection)
	mux.HandleFunc("GET /ws/stats", h.HandleConnectionStats)
}
