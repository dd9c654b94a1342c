package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type DraftStateRow struct {
	DraftID    string
	LeagueID   string
	Status     string
	Version    int64
	DeadlineAt sql.NullTime
	State      json.RawMessage
	UpdatedAt  time.Time
}

type DraftEventRow struct {
	ID             uuid.UUID
	DraftID        string
	Seq            int64
	EventType      string
	Round          int32
	Pick           int32
	Overall        int32
	TeamID         sql.NullString
	PlayerID       sql.NullString
	Actor          sql.NullString
	IdempotencyKey sql.NullString
	Config         pqtype.NullRawMessage
	OccurredAt     time.Time
	PublishedAt    sql.NullTime
}

type DraftPickRow struct {
	DraftID  string
	Overall  int32
	Round    int32
	Pick     int32
	TeamID   string
	PlayerID string
	Player   pqtype.NullRawMessage
	Autopick bool
	PickedAt time.Time
}
