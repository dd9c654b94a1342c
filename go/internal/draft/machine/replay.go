package machine

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/livedraft/go/internal/models"
)

// Replay rebuilds a draft from its full event history, starting from nothing.
func Replay(events []models.DraftEvent) (*models.DraftState, error) {
	return Fold(nil, events)
}

// Fold applies events to cur in order.
func Fold(cur *models.DraftState, events []models.DraftEvent) (*models.DraftState, error) {
	s := cur
	for _, ev := range events {
		next, err := Apply(s, ev)
		if err != nil {
			return nil, fmt.Errorf("failed to apply event %d (%s): %w", ev.Seq, ev.Type, err)
		}
		s = next
	}
	return s, nil
}

// Equivalent compares two states by their serialized form, which ignores
// monotonic clock readings and pointer identity.
func Equivalent(a, b *models.DraftState) bool {
	ja, err := json.Marshal(a)
	if err != nil {
		return false
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}
