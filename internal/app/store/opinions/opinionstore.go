// internal/app/store/opinions/opinionstore.go
package opinionstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/tierhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrAlreadyClassified = errors.New("this classifier already recorded an opinion for the work package")
	ErrNotFound          = errors.New("opinion not found")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("classification_opinions")}
}

// Create inserts an opinion. Exactly one opinion per
// (work package, classifier); validation of the opinion itself is the
// consensus engine's job.
func (s *Store) Create(ctx context.Context, o models.ClassificationOpinion) (models.ClassificationOpinion, error) {
	o.ID = primitive.NewObjectID()
	o.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, o); err != nil {
		if wafflemongo.IsDup(err) {
			return models.ClassificationOpinion{}, ErrAlreadyClassified
		}
		return models.ClassificationOpinion{}, err
	}
	return o, nil
}

func (s *Store) Get(ctx context.Context, wpID, classifierID primitive.ObjectID) (models.ClassificationOpinion, error) {
	var o models.ClassificationOpinion
	err := s.c.FindOne(ctx, bson.M{
		"work_package_id": wpID,
		"classifier_id":   classifierID,
	}).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ClassificationOpinion{}, ErrNotFound
	}
	if err != nil {
		return models.ClassificationOpinion{}, err
	}
	return o, nil
}

func (s *Store) ListByWorkPackage(ctx context.Context, wpID primitive.ObjectID) ([]models.ClassificationOpinion, error) {
	cur, err := s.c.Find(ctx, bson.M{"work_package_id": wpID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.ClassificationOpinion
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, wpID, classifierID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{
		"work_package_id": wpID,
		"classifier_id":   classifierID,
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByWorkPackage erases every opinion on a work package, used by the
// clear-classifications transition.
func (s *Store) DeleteByWorkPackage(ctx context.Context, wpID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"work_package_id": wpID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
