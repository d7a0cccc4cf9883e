// internal/app/store/policies/policystore.go

// Package policystore persists the tier→policy table. The table ships with
// the binary and is seeded into the database on first start so operators
// can inspect and report on it with ordinary queries.
package policystore

import (
	"context"

	"github.com/dalemusser/tierhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tier_policies")}
}

// SeedIfEmpty inserts the given rows when the collection has none. It
// reports whether seeding happened.
func (s *Store) SeedIfEmpty(ctx context.Context, rows []models.TierPolicy) (bool, error) {
	n, err := s.c.EstimatedDocumentCount(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	docs := make([]any, 0, len(rows))
	for _, r := range rows {
		r.ID = primitive.NewObjectID()
		docs = append(docs, r)
	}
	if _, err := s.c.InsertMany(ctx, docs); err != nil {
		return false, err
	}
	return true, nil
}

// Replace swaps the whole table for the given rows. Used by the operator
// CLI when a revised policy table is rolled out.
func (s *Store) Replace(ctx context.Context, rows []models.TierPolicy) error {
	if _, err := s.c.DeleteMany(ctx, bson.M{}); err != nil {
		return err
	}
	docs := make([]any, 0, len(rows))
	for _, r := range rows {
		r.ID = primitive.NewObjectID()
		docs = append(docs, r)
	}
	_, err := s.c.InsertMany(ctx, docs)
	return err
}

// ListByTier returns the policy rows of one tier, group ordered.
func (s *Store) ListByTier(ctx context.Context, tier int) ([]models.TierPolicy, error) {
	cur, err := s.c.Find(ctx, bson.M{"tier": tier},
		options.Find().SetSort(bson.D{{Key: "group", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.TierPolicy
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the whole table, tier then group ordered.
func (s *Store) List(ctx context.Context) ([]models.TierPolicy, error) {
	cur, err := s.c.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "tier", Value: 1}, {Key: "group", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.TierPolicy
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
