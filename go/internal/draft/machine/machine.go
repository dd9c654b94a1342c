// Package machine holds the draft state machine. Apply is the only function
// that mutates a DraftState; live commands and replay both go through it.
package machine

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/draft/drafterrors"
	"github.com/mcdev12/livedraft/go/internal/draft/sequencer"
	"github.com/mcdev12/livedraft/go/internal/models"
)

// Normalize truncates t to the precision the durable store keeps.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// NewEvent builds the next event for cur. Seq follows cur.Version.
func NewEvent(cur *models.DraftState, typ models.DraftEventType, now time.Time) models.DraftEvent {
	ev := models.DraftEvent{
		ID:        uuid.New(),
		Type:      typ,
		Timestamp: Normalize(now),
		Seq:       1,
	}
	if cur != nil {
		ev.DraftID = cur.DraftID
		ev.Seq = cur.Version + 1
		ev.Round = cur.Round
		ev.Pick = cur.PickIndex
		if cur.Round > 0 && cur.TotalTeams() > 0 {
			ev.Overall = sequencer.Overall(cur.Round, cur.PickIndex, cur.TotalTeams())
		}
		ev.TeamID = cur.OnClockTeamID
	}
	return ev
}

// Apply folds ev into cur and returns the resulting state. cur is not
// modified. cur may be nil only for a start event.
func Apply(cur *models.DraftState, ev models.DraftEvent) (*models.DraftState, error) {
	next := cur.Clone()

	var version int64
	if next != nil {
		version = next.Version
	}
	if ev.Seq != version+1 {
		return nil, drafterrors.New(drafterrors.KindVersionConflict,
			"event seq %d does not follow version %d", ev.Seq, version)
	}

	var err error
	switch ev.Type {
	case models.DraftEventStart:
		next, err = applyStart(next, ev)
	case models.DraftEventPick, models.DraftEventAutopick:
		err = applyPick(next, ev)
	case models.DraftEventPause:
		err = applyPause(next, ev)
	case models.DraftEventResume:
		err = applyResume(next, ev)
	case models.DraftEventComplete:
		err = applyComplete(next, ev)
	default:
		err = drafterrors.New(drafterrors.KindInvalidArgument, "unknown event type %q", ev.Type)
	}
	if err != nil {
		return nil, err
	}

	next.Version = ev.Seq
	next.UpdatedAt = ev.Timestamp
	return next, nil
}

func applyStart(s *models.DraftState, ev models.DraftEvent) (*models.DraftState, error) {
	if s != nil && s.Status != models.DraftStatusPreDraft {
		return nil, drafterrors.New(drafterrors.KindInvalidState, "draft %s is %s, not pre-draft", s.DraftID, s.Status)
	}

	var cfg models.DraftConfig
	switch {
	case ev.Config != nil:
		cfg = *ev.Config
	case s != nil:
		cfg = s.Config()
	default:
		return nil, drafterrors.New(drafterrors.KindInvalidArgument, "start event for %s carries no config", ev.DraftID)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	next := models.NewPreDraftState(cfg, ev.Timestamp)
	if s != nil {
		next.Version = s.Version
	}
	next.Status = models.DraftStatusDrafting
	next.Round = 1
	next.PickIndex = 1
	next.OnClockTeamID = cfg.DraftOrder[0]
	deadline := ev.Timestamp.Add(time.Duration(cfg.PickTimeSeconds) * time.Second)
	next.DeadlineAt = &deadline
	return next, nil
}

func applyPick(s *models.DraftState, ev models.DraftEvent) error {
	if err := checkDrafting(s); err != nil {
		return err
	}
	if ev.TeamID != s.OnClockTeamID {
		return drafterrors.New(drafterrors.KindWrongTurn, "team %s is not on the clock, %s is", ev.TeamID, s.OnClockTeamID)
	}
	n := s.TotalTeams()
	if ev.Round != s.Round || ev.Pick != s.PickIndex || ev.Overall != sequencer.Overall(s.Round, s.PickIndex, n) {
		return drafterrors.New(drafterrors.KindVersionConflict,
			"pick event targets %d.%d (overall %d) but draft is at %d.%d", ev.Round, ev.Pick, ev.Overall, s.Round, s.PickIndex)
	}
	if ev.PlayerID == "" {
		return drafterrors.New(drafterrors.KindInvalidArgument, "player_id is required")
	}
	if s.IsPicked(ev.PlayerID) {
		return drafterrors.New(drafterrors.KindPlayerAlreadyDrafted, "player %s already drafted", ev.PlayerID)
	}

	s.PickedPlayerIDs = append(s.PickedPlayerIDs, ev.PlayerID)
	s.LastIdempotencyKey = ev.IdempotencyKey
	s.LastPickTeamID = ev.TeamID
	s.Round, s.PickIndex = sequencer.Advance(s.Round, s.PickIndex, n)
	team, err := sequencer.OnClock(s.DraftOrder, s.Round, s.PickIndex)
	if err != nil {
		return drafterrors.Wrap(drafterrors.KindInternal, err, "failed to compute on-clock team")
	}
	s.OnClockTeamID = team
	deadline := ev.Timestamp.Add(time.Duration(s.PickTimeSeconds) * time.Second)
	s.DeadlineAt = &deadline
	s.RemainingSeconds = nil
	return nil
}

func applyPause(s *models.DraftState, ev models.DraftEvent) error {
	if err := checkDrafting(s); err != nil {
		return err
	}
	remaining := 0.0
	if s.DeadlineAt != nil {
		remaining = max(0, s.DeadlineAt.Sub(ev.Timestamp).Seconds())
	}
	s.RemainingSeconds = &remaining
	s.DeadlineAt = nil
	s.Status = models.DraftStatusPaused
	return nil
}

func applyResume(s *models.DraftState, ev models.DraftEvent) error {
	if s == nil {
		return drafterrors.ErrNotFound
	}
	if s.Status != models.DraftStatusPaused {
		return drafterrors.New(drafterrors.KindInvalidState, "draft %s is %s, not paused", s.DraftID, s.Status)
	}
	base := float64(s.PickTimeSeconds)
	if s.RemainingSeconds != nil {
		base = *s.RemainingSeconds
	}
	deadline := Normalize(ev.Timestamp.Add(time.Duration(base * float64(time.Second))))
	s.DeadlineAt = &deadline
	s.RemainingSeconds = nil
	s.Status = models.DraftStatusDrafting
	return nil
}

func applyComplete(s *models.DraftState, _ models.DraftEvent) error {
	if err := checkDrafting(s); err != nil {
		return err
	}
	if !Finished(s) {
		return drafterrors.New(drafterrors.KindInvalidState,
			"draft %s has %d of %d picks", s.DraftID, len(s.PickedPlayerIDs), s.TotalPicks())
	}
	s.Status = models.DraftStatusComplete
	s.DeadlineAt = nil
	s.RemainingSeconds = nil
	s.OnClockTeamID = ""
	return nil
}

func checkDrafting(s *models.DraftState) error {
	if s == nil {
		return drafterrors.ErrNotFound
	}
	if s.Status != models.DraftStatusDrafting {
		return drafterrors.New(drafterrors.KindInvalidState, "draft %s is %s, not drafting", s.DraftID, s.Status)
	}
	return nil
}

// Finished reports whether the last configured pick has been committed.
func Finished(s *models.DraftState) bool {
	return sequencer.Overall(s.Round, s.PickIndex, s.TotalTeams())-1 >= s.TotalPicks()
}

// ValidateConfig checks a draft setup before it can start.
func ValidateConfig(cfg models.DraftConfig) error {
	if cfg.DraftID == "" {
		return drafterrors.New(drafterrors.KindInvalidArgument, "draft_id is required")
	}
	if len(cfg.DraftOrder) == 0 {
		return drafterrors.New(drafterrors.KindInvalidArgument, "draft_order must not be empty")
	}
	seen := make(map[string]bool, len(cfg.DraftOrder))
	for _, team := range cfg.DraftOrder {
		if team == "" {
			return drafterrors.New(drafterrors.KindInvalidArgument, "draft_order contains an empty team id")
		}
		if seen[team] {
			return drafterrors.New(drafterrors.KindInvalidArgument, "team %s appears twice in draft_order", team)
		}
		seen[team] = true
	}
	if cfg.Rounds < 1 {
		return drafterrors.New(drafterrors.KindInvalidArgument, "rounds must be at least 1")
	}
	if cfg.PickTimeSeconds < 1 {
		return drafterrors.New(drafterrors.KindInvalidArgument, "pick_time_seconds must be at least 1")
	}
	return nil
}
