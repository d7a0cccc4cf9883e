// internal/app/store/guidance/guidancestore.go

// Package guidancestore persists the guidance records of a question set.
// Guidance is keyed by (set, name) and upserted on import, so re-importing
// a set is idempotent.
package guidancestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/tierhub/internal/app/system/qgraph"
	"github.com/dalemusser/tierhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrNotFound = errors.New("guidance not found")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("classification_guidance")}
}

// Upsert writes one guidance record, replacing any existing record with
// the same name in the set.
func (s *Store) Upsert(ctx context.Context, setID primitive.ObjectID, g qgraph.ImportGuidance) error {
	now := time.Now().UTC()
	_, err := s.c.UpdateOne(ctx,
		bson.M{"set_id": setID, "name": g.Name},
		bson.M{
			"$set": bson.M{
				"body":           g.Guidance,
				"guidance_names": g.Links,
				"updated_at":     now,
			},
			"$setOnInsert": bson.M{
				"_id":        primitive.NewObjectID(),
				"set_id":     setID,
				"name":       g.Name,
				"created_at": now,
			},
		},
		options.Update().SetUpsert(true))
	return err
}

// GetByName returns one guidance record of a set or ErrNotFound.
func (s *Store) GetByName(ctx context.Context, setID primitive.ObjectID, name string) (models.ClassificationGuidance, error) {
	var g models.ClassificationGuidance
	err := s.c.FindOne(ctx, bson.M{"set_id": setID, "name": name}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ClassificationGuidance{}, ErrNotFound
	}
	if err != nil {
		return models.ClassificationGuidance{}, err
	}
	return g, nil
}

// ListBySet returns every guidance record of a set, name ordered.
func (s *Store) ListBySet(ctx context.Context, setID primitive.ObjectID) ([]models.ClassificationGuidance, error) {
	cur, err := s.c.Find(ctx, bson.M{"set_id": setID},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.ClassificationGuidance
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
