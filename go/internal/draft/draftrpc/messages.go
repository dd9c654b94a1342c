package draftrpc

import (
	"time"

	"github.com/mcdev12/livedraft/go/internal/models"
)

const (
	DraftServiceName = "livedraft.draft.v1.DraftService"
	PickServiceName  = "livedraft.draft.v1.PickService"
)

const (
	DraftServiceCreateDraftProcedure   = "/" + DraftServiceName + "/CreateDraft"
	DraftServiceStartDraftProcedure    = "/" + DraftServiceName + "/StartDraft"
	DraftServicePauseDraftProcedure    = "/" + DraftServiceName + "/PauseDraft"
	DraftServiceResumeDraftProcedure   = "/" + DraftServiceName + "/ResumeDraft"
	DraftServiceGetDraftStateProcedure = "/" + DraftServiceName + "/GetDraftState"
	DraftServiceRebuildStateProcedure  = "/" + DraftServiceName + "/RebuildState"

	PickServiceMakePickProcedure              = "/" + PickServiceName + "/MakePick"
	PickServiceAutoPickProcedure              = "/" + PickServiceName + "/AutoPick"
	PickServiceFetchNextDeadlineProcedure     = "/" + PickServiceName + "/FetchNextDeadline"
	PickServiceFetchDraftsDueForPickProcedure = "/" + PickServiceName + "/FetchDraftsDueForPick"
)

type CreateDraftRequest struct {
	Config models.DraftConfig `json:"config"`
}

type DraftRequest struct {
	DraftID string `json:"draft_id"`
	Actor   string `json:"actor,omitempty"`
}

type DraftStateResponse struct {
	DraftState *models.DraftState `json:"draft_state"`
}

type GetDraftStateResponse struct {
	DraftState  *models.DraftState `json:"draft_state"`
	RecentPicks []models.DraftPick `json:"recent_picks"`
	ServerNow   time.Time          `json:"server_now"`
}

type RebuildStateResponse struct {
	Rebuilt    *models.DraftState `json:"rebuilt"`
	Stored     *models.DraftState `json:"stored"`
	Events     int                `json:"events"`
	Consistent bool               `json:"consistent"`
}

type MakePickRequest struct {
	DraftID        string `json:"draft_id"`
	TeamID         string `json:"team_id"`
	PlayerID       string `json:"player_id"`
	Actor          string `json:"actor,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type AutoPickRequest struct {
	DraftID string `json:"draft_id"`
}

type AutoPickResponse struct {
	DraftState *models.DraftState `json:"draft_state"`
	Skipped    bool               `json:"skipped"`
	PlayerID   string             `json:"player_id,omitempty"`
	Tier       string             `json:"tier,omitempty"`
}

type FetchNextDeadlineRequest struct{}

type FetchNextDeadlineResponse struct {
	DraftID  string     `json:"draft_id,omitempty"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

type FetchDraftsDueForPickRequest struct {
	Limit int `json:"limit"`
	// Exclude names drafts the caller is backing off from
	Exclude []string `json:"exclude,omitempty"`
}

type FetchDraftsDueForPickResponse struct {
	DraftIDs []string `json:"draft_ids"`
}
