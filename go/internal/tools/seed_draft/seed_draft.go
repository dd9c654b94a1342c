package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mcdev12/livedraft/go/internal/config"
	"github.com/mcdev12/livedraft/go/internal/draft/machine"
	statedb "github.com/mcdev12/livedraft/go/internal/draft/state/db"
	"github.com/mcdev12/livedraft/go/internal/models"
)

// Seed is the layout of the seed file: one draft plus the catalog it drafts from.
type Seed struct {
	Draft   models.DraftConfig `json:"draft"`
	Players []models.Player    `json:"players"`
}

func main() {
	ctx := context.Background()

	// 1) Load the seed file
	path := "go/internal/assets/draft_seed.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		os.Exit(1)
	}
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal seed: %v\n", err)
		os.Exit(1)
	}

	st, err := buildState(seed, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid draft: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// 2) Seed the draft
	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, statedb.Schema); err != nil {
		fmt.Fprintf(os.Stderr, "apply schema: %v\n", err)
		os.Exit(1)
	}
	inserted, err := seedDraft(ctx, pool, st)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed draft: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Draft seed: draft=%s teams=%d rounds=%d pool=%d inserted=%t\n",
		st.DraftID, st.TotalTeams(), st.Rounds, len(st.AvailablePlayerPool), inserted)

	// 3) Seed the catalog
	if cfg.Mongo.URI == "" {
		fmt.Println("Catalog seed: skipped (MONGO_URI not set)")
		return
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		fmt.Fprintf(os.Stderr, "mongo connect error: %v\n", err)
		os.Exit(1)
	}
	defer client.Disconnect(ctx)

	res, err := seedCatalog(ctx, client.Database(cfg.Mongo.Database).Collection("players"), seed.Players)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed catalog: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Catalog seed: total=%d inserted=%d updated=%d\n",
		len(seed.Players), res.UpsertedCount, res.ModifiedCount)
}

// buildState validates the draft and, when it has no pool of its own, ranks
// the draftable catalog players into one.
func buildState(seed Seed, now time.Time) (*models.DraftState, error) {
	cfg := seed.Draft
	if cfg.LeagueID == "" {
		return nil, fmt.Errorf("league_id is required")
	}
	if len(cfg.AvailablePlayerPool) == 0 {
		for _, p := range seed.Players {
			if !p.Draftable {
				continue
			}
			cfg.AvailablePlayerPool = append(cfg.AvailablePlayerPool, models.RankedPlayer{
				PlayerID:   p.ID,
				ADP:        p.ADP,
				Projection: p.Projection,
			})
		}
	}
	if err := machine.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return models.NewPreDraftState(cfg, machine.Normalize(now)), nil
}

func seedDraft(ctx context.Context, pool *pgxpool.Pool, st *models.DraftState) (bool, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return false, fmt.Errorf("marshal state: %w", err)
	}
	tag, err := pool.Exec(ctx, `
        INSERT INTO draft_states (
          draft_id, league_id, status, version, deadline_at, state, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (draft_id) DO NOTHING
    `, st.DraftID, st.LeagueID, string(st.Status), st.Version, st.DeadlineAt, data, st.UpdatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func seedCatalog(ctx context.Context, coll *mongo.Collection, players []models.Player) (*mongo.BulkWriteResult, error) {
	if len(players) == 0 {
		return &mongo.BulkWriteResult{}, nil
	}
	writes := make([]mongo.WriteModel, 0, len(players))
	for _, p := range players {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": p.ID}).
			SetReplacement(p).
			SetUpsert(true))
	}
	return coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
}
