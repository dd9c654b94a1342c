// Package autopick chooses a player for a team whose pick clock ran out.
package autopick

import (
	"context"
	"errors"

	"github.com/mcdev12/livedraft/go/internal/draft/drafterrors"
	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Tier names the rule that produced a selection.
type Tier string

const (
	TierADP        Tier = "adp"
	TierProjection Tier = "projection"
	TierPoolOrder  Tier = "pool_order"
	TierCatalog    Tier = "catalog"
)

// Selection is the player an autopick will commit.
type Selection struct {
	PlayerID string
	Tier     Tier
}

// Strategy picks the best available player for a draft state.
type Strategy interface {
	Select(ctx context.Context, s *models.DraftState) (Selection, error)
}

// Ranked prefers the draft's own pool, in tiers: lowest ADP, then highest
// projection, then pool order. Only when the pool has nothing left does it
// ask the catalog. Ties break on player ID ascending.
type Ranked struct {
	catalog Catalog
}

// NewRanked creates the default strategy. catalog may be nil when the
// draft pool is the only source of players.
func NewRanked(catalog Catalog) *Ranked {
	return &Ranked{catalog: catalog}
}

func (r *Ranked) Select(ctx context.Context, s *models.DraftState) (Selection, error) {
	if s == nil {
		return Selection{}, drafterrors.ErrNotFound
	}

	var available []models.RankedPlayer
	for _, p := range s.AvailablePlayerPool {
		if p.PlayerID != "" && !s.IsPicked(p.PlayerID) {
			available = append(available, p)
		}
	}

	if id := bestByADP(available); id != "" {
		return Selection{PlayerID: id, Tier: TierADP}, nil
	}
	if id := bestByProjection(available); id != "" {
		return Selection{PlayerID: id, Tier: TierProjection}, nil
	}
	if len(available) > 0 {
		return Selection{PlayerID: available[0].PlayerID, Tier: TierPoolOrder}, nil
	}

	if r.catalog == nil {
		return Selection{}, drafterrors.New(drafterrors.KindNoPlayersAvailable, "draft %s has no players left", s.DraftID)
	}
	id, err := r.catalog.BestAvailable(ctx, s.PickedPlayerIDs)
	if errors.Is(err, ErrExhausted) {
		return Selection{}, drafterrors.New(drafterrors.KindNoPlayersAvailable, "draft %s has no players left", s.DraftID)
	}
	if err != nil {
		log.Warn().Err(err).Str("draft_id", s.DraftID).Msg("player catalog lookup failed")
		return Selection{}, drafterrors.Unavailable(err, "player catalog unavailable")
	}
	return Selection{PlayerID: id, Tier: TierCatalog}, nil
}

func bestByADP(players []models.RankedPlayer) string {
	var best *models.RankedPlayer
	for i := range players {
		p := &players[i]
		if p.ADP == nil {
			continue
		}
		if best == nil || *p.ADP < *best.ADP || (*p.ADP == *best.ADP && p.PlayerID < best.PlayerID) {
			best = p
		}
	}
	if best == nil {
		return ""
	}
	return best.PlayerID
}

func bestByProjection(players []models.RankedPlayer) string {
	var best *models.RankedPlayer
	for i := range players {
		p := &players[i]
		if p.Projection == nil {
			continue
		}
		if best == nil || *p.Projection > *best.Projection || (*p.Projection == *best.Projection && p.PlayerID < best.PlayerID) {
			best = p
		}
	}
	if best == nil {
		return ""
	}
	return best.PlayerID
}
