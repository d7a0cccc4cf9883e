// internal/app/store/projects/projectstore.go
package projectstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/tierhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrDuplicateProjectName = errors.New("a project with this name already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("projects")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.NameCI = text.Fold(p.Name)
	p.Archived = false
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Project{}, ErrDuplicateProjectName
		}
		return models.Project{}, err
	}
	return p, nil
}

func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, name, desc string, programmes []string) error {
	set := bson.M{
		"updated_at":  time.Now().UTC(),
		"description": desc,
		"programmes":  programmes,
	}
	if strings.TrimSpace(name) != "" {
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil && wafflemongo.IsDup(err) {
		return ErrDuplicateProjectName
	}
	return err
}

// Archive hides the project from default listings. There is no unarchive;
// archiving is one-way in the core.
func (s *Store) Archive(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"archived":   true,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// List returns projects ordered by folded name. Archived projects are
// excluded unless includeArchived is set. A non-empty programme filters to
// projects carrying that label.
func (s *Store) List(ctx context.Context, includeArchived bool, programme string) ([]models.Project, error) {
	filter := bson.M{}
	if !includeArchived {
		filter["archived"] = false
	}
	if programme != "" {
		filter["programmes"] = programme
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var projects []models.Project
	if err := cur.All(ctx, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}
