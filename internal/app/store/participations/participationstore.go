// internal/app/store/participations/participationstore.go

// Package participationstore persists the two membership joins: users on
// projects (participations) and participations on work packages. Both are
// unique pairs, enforced by indexes.
package participationstore

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
	parts   *mongo.Collection // participations
	wpParts *mongo.Collection // work_package_participations
}

var (
	ErrAlreadyParticipant   = errors.New("the user is already a participant of this project")
	ErrAlreadyOnWorkPackage = errors.New("the participation is already on this work package")
	ErrNotFound             = errors.New("participation not found")
)

func New(db *mongo.Database) *Store {
	return &Store{
		parts:   db.Collection("participations"),
		wpParts: db.Collection("work_package_participations"),
	}
}

func (s *Store) Create(ctx context.Context, p models.Participation) (models.Participation, error) {
	p.ID = primitive.NewObjectID()
	p.CreatedAt = time.Now().UTC()
	if _, err := s.parts.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Participation{}, ErrAlreadyParticipant
		}
		return models.Participation{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Participation, error) {
	var p models.Participation
	if err := s.parts.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return models.Participation{}, err
	}
	return p, nil
}

// GetByProjectUser returns the user's participation in a project, or
// ErrNotFound.
func (s *Store) GetByProjectUser(ctx context.Context, projectID, userID primitive.ObjectID) (models.Participation, error) {
	var p models.Participation
	err := s.parts.FindOne(ctx, bson.M{"project_id": projectID, "user_id": userID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Participation{}, ErrNotFound
	}
	if err != nil {
		return models.Participation{}, err
	}
	return p, nil
}

// SharesProject reports whether two users participate in at least one
// common project. Used by the stranger rule: an actor without the
// view_all_users permission may only add users already visible to them.
func (s *Store) SharesProject(ctx context.Context, userA, userB primitive.ObjectID) (bool, error) {
	projectIDs, err := s.parts.Distinct(ctx, "project_id", bson.M{"user_id": userA})
	if err != nil {
		return false, err
	}
	if len(projectIDs) == 0 {
		return false, nil
	}
	n, err := s.parts.CountDocuments(ctx, bson.M{
		"user_id":    userB,
		"project_id": bson.M{"$in": projectIDs},
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Participation, error) {
	cur, err := s.parts.Find(ctx, bson.M{"project_id": projectID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Participation
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a project participation and all of its work-package
// memberships. Opinions recorded by the user survive; their role snapshot
// stays authoritative.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	if _, err := s.wpParts.DeleteMany(ctx, bson.M{"participation_id": id}); err != nil {
		return 0, err
	}
	res, err := s.parts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// AddToWorkPackage joins a participation to a work package.
func (s *Store) AddToWorkPackage(ctx context.Context, wpp models.WorkPackageParticipation) (models.WorkPackageParticipation, error) {
	wpp.ID = primitive.NewObjectID()
	wpp.CreatedAt = time.Now().UTC()
	if _, err := s.wpParts.InsertOne(ctx, wpp); err != nil {
		if wafflemongo.IsDup(err) {
			return models.WorkPackageParticipation{}, ErrAlreadyOnWorkPackage
		}
		return models.WorkPackageParticipation{}, err
	}
	return wpp, nil
}

func (s *Store) GetWorkPackageParticipation(ctx context.Context, wpID, participationID primitive.ObjectID) (models.WorkPackageParticipation, error) {
	var wpp models.WorkPackageParticipation
	err := s.wpParts.FindOne(ctx, bson.M{
		"work_package_id":  wpID,
		"participation_id": participationID,
	}).Decode(&wpp)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.WorkPackageParticipation{}, ErrNotFound
	}
	if err != nil {
		return models.WorkPackageParticipation{}, err
	}
	return wpp, nil
}

func (s *Store) RemoveFromWorkPackage(ctx context.Context, wpID, participationID primitive.ObjectID) (int64, error) {
	res, err := s.wpParts.DeleteMany(ctx, bson.M{
		"work_package_id":  wpID,
		"participation_id": participationID,
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) ListByWorkPackage(ctx context.Context, wpID primitive.ObjectID) ([]models.WorkPackageParticipation, error) {
	cur, err := s.wpParts.Find(ctx, bson.M{"work_package_id": wpID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.WorkPackageParticipation
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
