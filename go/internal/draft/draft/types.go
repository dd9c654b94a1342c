package draft

import (
	"time"

	"github.com/mcdev12/livedraft/go/internal/models"
)

// RecentPicksLimit is how many ledger rows GetDraftState returns.
const RecentPicksLimit = 10

// DraftView is the read model served to boards and clients.
type DraftView struct {
	DraftState  *models.DraftState `json:"draft_state"`
	RecentPicks []models.DraftPick `json:"recent_picks"`
	ServerNow   time.Time          `json:"server_now"`
}

// RebuildReport compares the stored state with one rebuilt from events.
type RebuildReport struct {
	Rebuilt    *models.DraftState `json:"rebuilt"`
	Stored     *models.DraftState `json:"stored"`
	Events     int                `json:"events"`
	Consistent bool               `json:"consistent"`
}
