package autopick

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/mcdev12/livedraft/go/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrExhausted means the catalog has no draftable player left.
var ErrExhausted = errors.New("no draftable players left in catalog")

// Catalog is the league-wide player directory.
type Catalog interface {
	// BestAvailable returns the best-ranked draftable player not in exclude.
	BestAvailable(ctx context.Context, exclude []string) (string, error)
	// Lookup returns nil, nil when the player is unknown.
	Lookup(ctx context.Context, playerID string) (*models.Player, error)
}

// MongoCatalog reads players from a MongoDB collection.
type MongoCatalog struct {
	collection *mongo.Collection
}

func NewMongoCatalog(client *mongo.Client, database string) *MongoCatalog {
	return &MongoCatalog{
		collection: client.Database(database).Collection("players"),
	}
}

func (c *MongoCatalog) BestAvailable(ctx context.Context, exclude []string) (string, error) {
	if exclude == nil {
		exclude = []string{}
	}
	byADP := bson.M{
		"draftable": true,
		"adp":       bson.M{"$ne": nil},
		"_id":       bson.M{"$nin": exclude},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "adp", Value: 1}, {Key: "_id", Value: 1}})

	var p models.Player
	err := c.collection.FindOne(ctx, byADP, opts).Decode(&p)
	if err == nil {
		return p.ID, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return "", fmt.Errorf("failed to query players by adp: %w", err)
	}

	anyLeft := bson.M{
		"draftable": true,
		"_id":       bson.M{"$nin": exclude},
	}
	opts = options.FindOne().SetSort(bson.D{{Key: "projection", Value: -1}, {Key: "_id", Value: 1}})
	err = c.collection.FindOne(ctx, anyLeft, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrExhausted
	}
	if err != nil {
		return "", fmt.Errorf("failed to query players by projection: %w", err)
	}
	return p.ID, nil
}

func (c *MongoCatalog) Lookup(ctx context.Context, playerID string) (*models.Player, error) {
	var p models.Player
	err := c.collection.FindOne(ctx, bson.M{"_id": playerID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up player %s: %w", playerID, err)
	}
	return &p, nil
}

// StaticCatalog serves a fixed player list. Used for development and tests.
type StaticCatalog struct {
	players []models.Player
}

func NewStaticCatalog(players []models.Player) *StaticCatalog {
	sorted := slices.Clone(players)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		switch {
		case a.ADP != nil && b.ADP != nil && *a.ADP != *b.ADP:
			return *a.ADP < *b.ADP
		case (a.ADP == nil) != (b.ADP == nil):
			return a.ADP != nil
		}
		ap, bp := projection(a), projection(b)
		if ap != bp {
			return ap > bp
		}
		return a.ID < b.ID
	})
	return &StaticCatalog{players: sorted}
}

func projection(p models.Player) float64 {
	if p.Projection == nil {
		return 0
	}
	return *p.Projection
}

func (c *StaticCatalog) BestAvailable(_ context.Context, exclude []string) (string, error) {
	for _, p := range c.players {
		if p.Draftable && !slices.Contains(exclude, p.ID) {
			return p.ID, nil
		}
	}
	return "", ErrExhausted
}

func (c *StaticCatalog) Lookup(_ context.Context, playerID string) (*models.Player, error) {
	for i := range c.players {
		if c.players[i].ID == playerID {
			p := c.players[i]
			return &p, nil
		}
	}
	return nil, nil
}
