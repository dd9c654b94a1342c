package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mcdev12/livedraft/go/internal/draft/draft"
	"github.com/mcdev12/livedraft/go/internal/draft/drafterrors"
	"github.com/mcdev12/livedraft/go/internal/draft/pick"
	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Picks is the part of the pick application the REST surface calls
type Picks interface {
	MakePick(ctx context.Context, req pick.MakePickRequest) (*models.DraftState, error)
	AutoPick(ctx context.Context, draftID string) (*pick.AutoPickResult, error)
}

// Handler serves the draft REST routes
type Handler struct {
	drafts draft.DraftApp
	picks  Picks
}

// NewHandler creates a new REST handler
func NewHandler(drafts draft.DraftApp, picks Picks) *Handler {
	return &Handler{drafts: drafts, picks: picks}
}

type actorRequest struct {
	Actor string `json:"actor,omitempty"`
}

type pickRequest struct {
	TeamID         string `json:"team_id"`
	PlayerID       string `json:"player_id"`
	Actor          string `json:"actor,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type stateResponse struct {
	DraftState *models.DraftState `json:"draft_state"`
}

type autoPickResponse struct {
	DraftState *models.DraftState `json:"draft_state,omitempty"`
	Skipped    bool               `json:"skipped,omitempty"`
	PlayerID   string             `json:"player_id,omitempty"`
	Tier       string             `json:"tier,omitempty"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type errorBody struct {
	Kind      drafterrors.Kind `json:"kind"`
	Message   string           `json:"message"`
	Retryable bool             `json:"retryable"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// RegisterRoutes registers the REST routes with mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /drafts", h.HandleCreateDraft)
	mux.HandleFunc("GET /drafts/{id}", h.HandleGetDraft)
	mux.HandleFunc("GET /drafts/{id}/replay", h.HandleReplay)
	mux.HandleFunc("POST /drafts/{id}/start", h.HandleStart)
	mux.HandleFunc("POST /drafts/{id}/pick", h.HandlePick)
	mux.HandleFunc("POST /drafts/{id}/autopick", h.HandleAutoPick)
	mux.HandleFunc("POST /drafts/{id}/pause", h.HandlePause)
	mux.HandleFunc("POST /drafts/{id}/resume", h.HandleResume)
}

// HandleCreateDraft handles POST /drafts
func (h *Handler) HandleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var cfg models.DraftConfig
	if err := decodeBody(r, &cfg); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.drafts.CreateDraft(r.Context(), cfg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stateResponse{DraftState: created})
}

// HandleGetDraft handles GET /drafts/{id}
func (h *Handler) HandleGetDraft(w http.ResponseWriter, r *http.Request) {
	view, err := h.drafts.GetDraftState(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleReplay handles GET /drafts/{id}/replay
func (h *Handler) HandleReplay(w http.ResponseWriter, r *http.Request) {
	report, err := h.drafts.RebuildState(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleStart handles POST /drafts/{id}/start
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	next, err := h.drafts.StartDraft(r.Context(), r.PathValue("id"), req.Actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{DraftState: next})
}

// HandlePick handles POST /drafts/{id}/pick
func (h *Handler) HandlePick(w http.ResponseWriter, r *http.Request) {
	var req pickRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}
	next, err := h.picks.MakePick(r.Context(), pick.MakePickRequest{
		DraftID:        r.PathValue("id"),
		TeamID:         req.TeamID,
		PlayerID:       req.PlayerID,
		Actor:          req.Actor,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{DraftState: next})
}

// HandleAutoPick handles POST /drafts/{id}/autopick
func (h *Handler) HandleAutoPick(w http.ResponseWriter, r *http.Request) {
	result, err := h.picks.AutoPick(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if result.Skipped {
		writeJSON(w, http.StatusOK, autoPickResponse{Skipped: true})
		return
	}
	writeJSON(w, http.StatusOK, autoPickResponse{
		DraftState: result.State,
		PlayerID:   result.Selection.PlayerID,
		Tier:       string(result.Selection.Tier),
	})
}

// HandlePause handles POST /drafts/{id}/pause
func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.drafts.PauseDraft(r.Context(), r.PathValue("id"), req.Actor); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// HandleResume handles POST /drafts/{id}/resume
func (h *Handler) HandleResume(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.drafts.ResumeDraft(r.Context(), r.PathValue("id"), req.Actor); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// decodeBody reads an optional JSON body into v.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return drafterrors.New(drafterrors.KindInvalidArgument, "invalid request body: %v", err)
	}
	return nil
}

// StatusFor maps an error kind onto an HTTP status.
func StatusFor(kind drafterrors.Kind) int {
	switch kind {
	case drafterrors.KindNotFound:
		return http.StatusNotFound
	case drafterrors.KindLockContention, drafterrors.KindVersionConflict, drafterrors.KindPlayerAlreadyDrafted:
		return http.StatusConflict
	case drafterrors.KindWrongTurn, drafterrors.KindDeadlinePassed, drafterrors.KindInvalidState,
		drafterrors.KindNoPlayersAvailable:
		return http.StatusUnprocessableEntity
	case drafterrors.KindInvalidArgument:
		return http.StatusBadRequest
	case drafterrors.KindDependencyUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := drafterrors.KindOf(err)
	status := StatusFor(kind)

	message := "internal error"
	var de *drafterrors.Error
	if errors.As(err, &de) {
		message = de.Message
	}

	ev := log.Debug()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("kind", string(kind)).
		Msg("request failed")

	if kind == drafterrors.KindLockContention {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, errorResponse{Error: errorBody{
		Kind:      kind,
		Message:   message,
		Retryable: drafterrors.Retryable(err),
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
