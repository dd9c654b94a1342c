package machine

import (
	"time"

	"github.com/mcdev12/livedraft/go/internal/draft/drafterrors"
	"github.com/mcdev12/livedraft/go/internal/models"
)

// Transition is the outcome of one command: the new state and the events
// that produced it, in order.
type Transition struct {
	State  *models.DraftState
	Events []models.DraftEvent
}

// PickInput describes a pick to commit.
type PickInput struct {
	Type           models.DraftEventType // pick or autopick
	TeamID         string
	PlayerID       string
	Actor          string
	IdempotencyKey string
}

// Start moves a pre-draft state to drafting.
func Start(cur *models.DraftState, actor string, now time.Time) (*Transition, error) {
	if cur == nil {
		return nil, drafterrors.ErrNotFound
	}
	ev := NewEvent(cur, models.DraftEventStart, now)
	ev.Round, ev.Pick, ev.Overall = 1, 1, 1
	if len(cur.DraftOrder) > 0 {
		ev.TeamID = cur.DraftOrder[0]
	}
	ev.Actor = actor
	cfg := cur.Config()
	ev.Config = &cfg
	return step(cur, ev)
}

// CheckPick runs the manual pick preconditions after the lock is held, in
// order: state exists, drafting, on the clock, before the deadline, player
// not yet drafted.
func CheckPick(s *models.DraftState, teamID, playerID string, now time.Time) error {
	if err := checkDrafting(s); err != nil {
		return err
	}
	if teamID != s.OnClockTeamID {
		return drafterrors.New(drafterrors.KindWrongTurn, "team %s is not on the clock, %s is", teamID, s.OnClockTeamID)
	}
	if s.DeadlineAt != nil && now.After(*s.DeadlineAt) {
		return drafterrors.New(drafterrors.KindDeadlinePassed,
			"deadline for pick %d passed at %s", len(s.PickedPlayerIDs)+1, s.DeadlineAt.Format(time.RFC3339))
	}
	if s.IsPicked(playerID) {
		return drafterrors.New(drafterrors.KindPlayerAlreadyDrafted, "player %s already drafted", playerID)
	}
	return nil
}

// AutopickDue reports whether the on-clock team's deadline has elapsed.
// Only a drafting state can be autopicked.
func AutopickDue(s *models.DraftState, now time.Time) (bool, error) {
	if err := checkDrafting(s); err != nil {
		return false, err
	}
	if s.DeadlineAt == nil {
		return false, nil
	}
	return now.After(*s.DeadlineAt), nil
}

// Pick commits a player for the on-clock team and, when that was the final
// pick, completes the draft in the same transition.
func Pick(cur *models.DraftState, in PickInput, now time.Time) (*Transition, error) {
	typ := in.Type
	if typ == "" {
		typ = models.DraftEventPick
	}
	if typ != models.DraftEventPick && typ != models.DraftEventAutopick {
		return nil, drafterrors.New(drafterrors.KindInvalidArgument, "%q is not a pick event", typ)
	}
	if cur == nil {
		return nil, drafterrors.ErrNotFound
	}

	ev := NewEvent(cur, typ, now)
	ev.TeamID = in.TeamID
	ev.PlayerID = in.PlayerID
	ev.Actor = in.Actor
	ev.IdempotencyKey = in.IdempotencyKey

	t, err := step(cur, ev)
	if err != nil {
		return nil, err
	}
	if Finished(t.State) {
		done := NewEvent(t.State, models.DraftEventComplete, now)
		done.TeamID = ""
		next, err := Apply(t.State, done)
		if err != nil {
			return nil, err
		}
		t.State = next
		t.Events = append(t.Events, done)
	}
	return t, nil
}

// Pause stops the clock and records the time left.
func Pause(cur *models.DraftState, actor string, now time.Time) (*Transition, error) {
	if cur == nil {
		return nil, drafterrors.ErrNotFound
	}
	ev := NewEvent(cur, models.DraftEventPause, now)
	ev.Actor = actor
	return step(cur, ev)
}

// Resume restarts the clock from the time left at pause.
func Resume(cur *models.DraftState, actor string, now time.Time) (*Transition, error) {
	if cur == nil {
		return nil, drafterrors.ErrNotFound
	}
	ev := NewEvent(cur, models.DraftEventResume, now)
	ev.Actor = actor
	return step(cur, ev)
}

func step(cur *models.DraftState, ev models.DraftEvent) (*Transition, error) {
	next, err := Apply(cur, ev)
	if err != nil {
		return nil, err
	}
	return &Transition{State: next, Events: []models.DraftEvent{ev}}, nil
}
