// internal/app/store/datasets/datasetstore.go

// Package datasetstore persists datasets and their project associations.
// TierHub never touches the data itself; a dataset here is an opaque
// UUID-keyed handle plus the representative bookkeeping.
package datasetstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/tierhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	datasets *mongo.Collection
	assoc    *mongo.Collection // project_datasets
}

var (
	ErrDuplicateUUID       = errors.New("a dataset with this uuid already exists")
	ErrAlreadyOnProject    = errors.New("the dataset is already associated with this project")
	ErrAssociationNotFound = errors.New("the dataset is not associated with this project")
)

func New(db *mongo.Database) *Store {
	return &Store{
		datasets: db.Collection("datasets"),
		assoc:    db.Collection("project_datasets"),
	}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Dataset, error) {
	var d models.Dataset
	if err := s.datasets.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return models.Dataset{}, err
	}
	return d, nil
}

func (s *Store) GetByUUID(ctx context.Context, id string) (models.Dataset, error) {
	var d models.Dataset
	if err := s.datasets.FindOne(ctx, bson.M{"uuid": id}).Decode(&d); err != nil {
		return models.Dataset{}, err
	}
	return d, nil
}

// Create inserts a dataset, minting a UUID when none is supplied.
func (s *Store) Create(ctx context.Context, d models.Dataset) (models.Dataset, error) {
	now := time.Now().UTC()
	d.ID = primitive.NewObjectID()
	if d.UUID == "" {
		d.UUID = uuid.NewString()
	}
	d.NameCI = text.Fold(d.Name)
	d.CreatedAt = now
	d.UpdatedAt = now
	if _, err := s.datasets.InsertOne(ctx, d); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Dataset{}, ErrDuplicateUUID
		}
		return models.Dataset{}, err
	}
	return d, nil
}

// Associate links a dataset to a project with the per-project
// representative. Exactly one association per (project, dataset).
func (s *Store) Associate(ctx context.Context, projectID, datasetID, representativeID primitive.ObjectID) (models.ProjectDataset, error) {
	pd := models.ProjectDataset{
		ID:               primitive.NewObjectID(),
		ProjectID:        projectID,
		DatasetID:        datasetID,
		RepresentativeID: representativeID,
		CreatedAt:        time.Now().UTC(),
	}
	if _, err := s.assoc.InsertOne(ctx, pd); err != nil {
		if wafflemongo.IsDup(err) {
			return models.ProjectDataset{}, ErrAlreadyOnProject
		}
		return models.ProjectDataset{}, err
	}
	return pd, nil
}

func (s *Store) GetAssociation(ctx context.Context, projectID, datasetID primitive.ObjectID) (models.ProjectDataset, error) {
	var pd models.ProjectDataset
	err := s.assoc.FindOne(ctx, bson.M{"project_id": projectID, "dataset_id": datasetID}).Decode(&pd)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ProjectDataset{}, ErrAssociationNotFound
	}
	if err != nil {
		return models.ProjectDataset{}, err
	}
	return pd, nil
}

func (s *Store) Dissociate(ctx context.Context, projectID, datasetID primitive.ObjectID) (int64, error) {
	res, err := s.assoc.DeleteMany(ctx, bson.M{"project_id": projectID, "dataset_id": datasetID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// UpdateRepresentative replaces the per-project representative for one
// dataset. Re-approval consequences are the consensus engine's concern.
func (s *Store) UpdateRepresentative(ctx context.Context, projectID, datasetID, representativeID primitive.ObjectID) error {
	res, err := s.assoc.UpdateOne(ctx,
		bson.M{"project_id": projectID, "dataset_id": datasetID},
		bson.M{"$set": bson.M{"representative_id": representativeID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrAssociationNotFound
	}
	return nil
}

// ListByProject returns the project's dataset associations in creation
// order.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.ProjectDataset, error) {
	cur, err := s.assoc.Find(ctx, bson.M{"project_id": projectID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.ProjectDataset
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
