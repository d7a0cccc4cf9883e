// internal/app/store/workpackages/wpstore.go
package wpstore

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
	wps      *mongo.Collection
	datasets *mongo.Collection // work_package_datasets
}

var (
	ErrDatasetAlreadyAdded = errors.New("the dataset is already on this work package")
	ErrStateMismatch       = errors.New("the work package is not in the expected state")
)

func New(db *mongo.Database) *Store {
	return &Store{
		wps:      db.Collection("work_packages"),
		datasets: db.Collection("work_package_datasets"),
	}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.WorkPackage, error) {
	var wp models.WorkPackage
	if err := s.wps.FindOne(ctx, bson.M{"_id": id}).Decode(&wp); err != nil {
		return models.WorkPackage{}, err
	}
	return wp, nil
}

func (s *Store) Create(ctx context.Context, wp models.WorkPackage) (models.WorkPackage, error) {
	now := time.Now().UTC()
	wp.ID = primitive.NewObjectID()
	wp.State = models.StateNew
	wp.Tier = nil
	wp.CreatedAt = now
	wp.UpdatedAt = now
	if _, err := s.wps.InsertOne(ctx, wp); err != nil {
		return models.WorkPackage{}, err
	}
	return wp, nil
}

func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, name, desc string) error {
	_, err := s.wps.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"name":        name,
		"description": desc,
		"updated_at":  time.Now().UTC(),
	}})
	return err
}

// TransitionState moves the work package from one state to another,
// compare-and-swap style: the update only applies while the current state
// still matches, so two concurrent transitions cannot both win.
func (s *Store) TransitionState(ctx context.Context, id primitive.ObjectID, from, to string) error {
	set := bson.M{"state": to, "updated_at": time.Now().UTC()}
	update := bson.M{"$set": set}
	if to == models.StateNew {
		update["$unset"] = bson.M{"tier": ""}
	}
	res, err := s.wps.UpdateOne(ctx, bson.M{"_id": id, "state": from}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrStateMismatch
	}
	return nil
}

// Close marks the work package classified at the agreed tier. Like
// TransitionState it only applies while the state is still underway.
func (s *Store) Close(ctx context.Context, id primitive.ObjectID, tier int) error {
	res, err := s.wps.UpdateOne(ctx,
		bson.M{"_id": id, "state": models.StateUnderway},
		bson.M{"$set": bson.M{
			"state":      models.StateClassified,
			"tier":       tier,
			"updated_at": time.Now().UTC(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrStateMismatch
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.wps.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	if _, err := s.datasets.DeleteMany(ctx, bson.M{"work_package_id": id}); err != nil {
		return res.DeletedCount, err
	}
	return res.DeletedCount, nil
}

func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.WorkPackage, error) {
	cur, err := s.wps.Find(ctx, bson.M{"project_id": projectID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.WorkPackage
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddDataset links a dataset to the work package. Exactly one link per
// (work package, dataset).
func (s *Store) AddDataset(ctx context.Context, wpd models.WorkPackageDataset) (models.WorkPackageDataset, error) {
	wpd.ID = primitive.NewObjectID()
	wpd.CreatedAt = time.Now().UTC()
	if _, err := s.datasets.InsertOne(ctx, wpd); err != nil {
		if wafflemongo.IsDup(err) {
			return models.WorkPackageDataset{}, ErrDatasetAlreadyAdded
		}
		return models.WorkPackageDataset{}, err
	}
	return wpd, nil
}

func (s *Store) RemoveDataset(ctx context.Context, wpID, datasetID primitive.ObjectID) (int64, error) {
	res, err := s.datasets.DeleteMany(ctx, bson.M{"work_package_id": wpID, "dataset_id": datasetID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) ListDatasets(ctx context.Context, wpID primitive.ObjectID) ([]models.WorkPackageDataset, error) {
	cur, err := s.datasets.Find(ctx, bson.M{"work_package_id": wpID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.WorkPackageDataset
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountUsingDataset counts work packages past state new that use the
// dataset anywhere. The dataset lifecycle guard consults it before
// deletion.
func (s *Store) CountUsingDataset(ctx context.Context, datasetID primitive.ObjectID) (int64, error) {
	cur, err := s.datasets.Find(ctx, bson.M{"dataset_id": datasetID})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)
	var links []models.WorkPackageDataset
	if err := cur.All(ctx, &links); err != nil {
		return 0, err
	}
	var n int64
	for _, l := range links {
		wp, err := s.GetByID(ctx, l.WorkPackageID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				continue
			}
			return 0, err
		}
		if wp.State != models.StateNew {
			n++
		}
	}
	return n, nil
}
