// internal/app/store/approvals/approvalstore.go
package approvalstore

import (
	"context"
	"time"

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
	return &Store{c: db.Collection("work_package_participation_approvals")}
}

// Grant records an approval. Granting the same
// (participation, dataset, approver) twice is a no-op, so approvals are
// idempotent assertions rather than a counter.
func (s *Store) Grant(ctx context.Context, a models.WorkPackageParticipationApproval) error {
	filter := bson.M{
		"work_package_participation_id": a.WorkPackageParticipationID,
		"dataset_id":                    a.DatasetID,
		"approver_id":                   a.ApproverID,
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":             primitive.NewObjectID(),
			"work_package_id": a.WorkPackageID,
			"created_at":      time.Now().UTC(),
		},
	}
	_, err := s.c.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (s *Store) ListByWorkPackage(ctx context.Context, wpID primitive.ObjectID) ([]models.WorkPackageParticipationApproval, error) {
	cur, err := s.c.Find(ctx, bson.M{"work_package_id": wpID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.WorkPackageParticipationApproval
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByParticipation removes every approval held by a work-package
// participation, used when the participation itself is removed.
func (s *Store) DeleteByParticipation(ctx context.Context, wpParticipationID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"work_package_participation_id": wpParticipationID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
