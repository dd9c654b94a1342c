package models

// Player is a catalog entry as seen by the draft engine.
type Player struct {
	ID         string   `json:"id" bson:"_id"`
	FullName   string   `json:"full_name" bson:"full_name"`
	Position   string   `json:"position" bson:"position"`
	Team       string   `json:"team" bson:"team"`
	Draftable  bool     `json:"draftable" bson:"draftable"`
	ADP        *float64 `json:"adp,omitempty" bson:"adp,omitempty"`
	Projection *float64 `json:"projection,omitempty" bson:"projection,omitempty"`
}

// PlayerSnapshot is the metadata frozen onto a ledger row at pick time.
type PlayerSnapshot struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	Team     string `json:"team"`
}

// Snapshot captures the ledger metadata for p.
func (p *Player) Snapshot() *PlayerSnapshot {
	if p == nil {
		return nil
	}
	return &PlayerSnapshot{Name: p.FullName, Position: p.Position, Team: p.Team}
}
