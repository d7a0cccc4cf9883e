// internal/app/store/questions/questionstore.go

// Package questionstore persists classification question sets, their
// questions, and the append-only version history. Mutations never rewrite
// history: every observed field change allocates the set's next version id
// and appends a snapshot, so recorded opinions stay resolvable forever.
package questionstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/tierhub/internal/app/system/qgraph"
	"github.com/dalemusser/tierhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	sets      *mongo.Collection // question_sets
	questions *mongo.Collection // questions
	versions  *mongo.Collection // question_versions
	opinions  *mongo.Collection // classification_opinions, read-only delete guard
}

var (
	ErrSetNotFound          = errors.New("question set not found")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrReferencedByQuestion = errors.New("the question is targeted by another visible question")
	ErrReferencedByOpinion  = errors.New("the question is referenced by a recorded opinion")
)

func New(db *mongo.Database) *Store {
	return &Store{
		sets:      db.Collection("question_sets"),
		questions: db.Collection("questions"),
		versions:  db.Collection("question_versions"),
		opinions:  db.Collection("classification_opinions"),
	}
}

// EnsureSet finds or creates a question set by name.
func (s *Store) EnsureSet(ctx context.Context, name string) (models.ClassificationQuestionSet, error) {
	var set models.ClassificationQuestionSet
	err := s.sets.FindOne(ctx, bson.M{"name": name}).Decode(&set)
	if err == nil {
		return set, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.ClassificationQuestionSet{}, err
	}
	now := time.Now().UTC()
	set = models.ClassificationQuestionSet{
		ID:            primitive.NewObjectID(),
		Name:          name,
		NameCI:        text.Fold(name),
		NextVersionID: 1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := s.sets.InsertOne(ctx, set); err != nil {
		return models.ClassificationQuestionSet{}, err
	}
	return set, nil
}

// GetSetByName returns the named set or ErrSetNotFound.
func (s *Store) GetSetByName(ctx context.Context, name string) (models.ClassificationQuestionSet, error) {
	var set models.ClassificationQuestionSet
	err := s.sets.FindOne(ctx, bson.M{"name": name}).Decode(&set)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ClassificationQuestionSet{}, ErrSetNotFound
	}
	if err != nil {
		return models.ClassificationQuestionSet{}, err
	}
	return set, nil
}

// allocVersion hands out the set's next monotonically increasing version
// id.
func (s *Store) allocVersion(ctx context.Context, setID primitive.ObjectID) (int64, error) {
	var set models.ClassificationQuestionSet
	err := s.sets.FindOneAndUpdate(ctx,
		bson.M{"_id": setID},
		bson.M{
			"$inc": bson.M{"next_version_id": 1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		}).Decode(&set)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, ErrSetNotFound
	}
	if err != nil {
		return 0, err
	}
	// FindOneAndUpdate returns the pre-update document by default.
	return set.NextVersionID, nil
}

// ListQuestions returns every question of a set, hidden ones included.
func (s *Store) ListQuestions(ctx context.Context, setID primitive.ObjectID) ([]models.ClassificationQuestion, error) {
	cur, err := s.questions.Find(ctx, bson.M{"set_id": setID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.ClassificationQuestion
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Graph loads a set snapshot as an in-memory graph with targets resolved.
func (s *Store) Graph(ctx context.Context, setID primitive.ObjectID) (*qgraph.Graph, error) {
	questions, err := s.ListQuestions(ctx, setID)
	if err != nil {
		return nil, err
	}
	return qgraph.New(setID, questions)
}

// Version resolves a historical question version. It satisfies the
// traversal engine's resolver interface; a missing version surfaces as
// qgraph.ErrVersionNotFound so callers can report unretrievable answers.
func (s *Store) Version(ctx context.Context, questionID primitive.ObjectID, versionID int64) (models.QuestionVersion, error) {
	var v models.QuestionVersion
	err := s.versions.FindOne(ctx, bson.M{
		"question_id": questionID,
		"version_id":  versionID,
	}).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.QuestionVersion{}, qgraph.ErrVersionNotFound
	}
	if err != nil {
		return models.QuestionVersion{}, err
	}
	return v, nil
}

// SetHidden retires or restores a question without touching history.
func (s *Store) SetHidden(ctx context.Context, questionID primitive.ObjectID, hidden bool) error {
	res, err := s.questions.UpdateByID(ctx, questionID, bson.M{"$set": bson.M{
		"hidden":     hidden,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

// Delete removes a question and its version history. It refuses while any
// visible question still targets it or any recorded opinion answers it,
// since deleting the history would make those opinions unreplayable.
// Hiding is the expected retirement path.
func (s *Store) Delete(ctx context.Context, questionID primitive.ObjectID) error {
	n, err := s.questions.CountDocuments(ctx, bson.M{
		"hidden": false,
		"$or": bson.A{
			bson.M{"yes_question_id": questionID},
			bson.M{"no_question_id": questionID},
		},
	})
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrReferencedByQuestion
	}
	n, err = s.opinions.CountDocuments(ctx, bson.M{"answers.question_id": questionID})
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrReferencedByOpinion
	}
	res, err := s.questions.DeleteOne(ctx, bson.M{"_id": questionID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrQuestionNotFound
	}
	_, err = s.versions.DeleteMany(ctx, bson.M{"question_id": questionID})
	return err
}

// Import loads a parsed import file into a set, idempotently against
// question name. Unchanged questions are left alone; new and changed ones
// get the set's next version id and an appended version snapshot.
func (s *Store) Import(ctx context.Context, file *qgraph.ImportFile) error {
	set, err := s.EnsureSet(ctx, file.Set)
	if err != nil {
		return err
	}

	// First pass: make sure a document exists for every imported name so
	// edges can resolve regardless of declaration order. Skeletons carry
	// version 0 until the second pass fills them in.
	ids := make(map[string]primitive.ObjectID, len(file.Questions))
	for _, iq := range file.Questions {
		var existing models.ClassificationQuestion
		err := s.questions.FindOne(ctx, bson.M{"set_id": set.ID, "name": iq.Name}).Decode(&existing)
		switch {
		case err == nil:
			ids[iq.Name] = existing.ID
		case errors.Is(err, mongo.ErrNoDocuments):
			now := time.Now().UTC()
			skeleton := models.ClassificationQuestion{
				ID:        primitive.NewObjectID(),
				SetID:     set.ID,
				Name:      iq.Name,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if _, err := s.questions.InsertOne(ctx, skeleton); err != nil {
				return fmt.Errorf("import question %q: %w", iq.Name, err)
			}
			ids[iq.Name] = skeleton.ID
		default:
			return err
		}
	}

	// Second pass: reconcile each document with the import record.
	for _, iq := range file.Questions {
		if err := s.reconcile(ctx, set.ID, ids, iq); err != nil {
			return fmt.Errorf("import question %q: %w", iq.Name, err)
		}
	}
	return nil
}

func (s *Store) reconcile(ctx context.Context, setID primitive.ObjectID, ids map[string]primitive.ObjectID, iq qgraph.ImportQuestion) error {
	var current models.ClassificationQuestion
	if err := s.questions.FindOne(ctx, bson.M{"_id": ids[iq.Name]}).Decode(&current); err != nil {
		return err
	}

	desired := current
	desired.Body = iq.Question
	desired.GuidanceNames = iq.Guidance
	desired.YesQuestionID, desired.YesTier = importEdge(ids, iq.YesQuestion, iq.YesTier)
	desired.NoQuestionID, desired.NoTier = importEdge(ids, iq.NoQuestion, iq.NoTier)

	if current.VersionID > 0 && !questionChanged(current, desired) {
		return nil
	}

	version, err := s.allocVersion(ctx, setID)
	if err != nil {
		return err
	}
	desired.VersionID = version
	desired.UpdatedAt = time.Now().UTC()

	_, err = s.questions.UpdateByID(ctx, desired.ID, bson.M{"$set": bson.M{
		"body":            desired.Body,
		"guidance_names":  desired.GuidanceNames,
		"yes_question_id": desired.YesQuestionID,
		"yes_tier":        desired.YesTier,
		"no_question_id":  desired.NoQuestionID,
		"no_tier":         desired.NoTier,
		"version_id":      desired.VersionID,
		"updated_at":      desired.UpdatedAt,
	}})
	if err != nil {
		return err
	}

	_, err = s.versions.InsertOne(ctx, models.QuestionVersion{
		ID:            primitive.NewObjectID(),
		QuestionID:    desired.ID,
		SetID:         setID,
		VersionID:     version,
		Name:          desired.Name,
		Body:          desired.Body,
		YesQuestionID: desired.YesQuestionID,
		YesTier:       desired.YesTier,
		NoQuestionID:  desired.NoQuestionID,
		NoTier:        desired.NoTier,
		CreatedAt:     desired.UpdatedAt,
	})
	return err
}

func importEdge(ids map[string]primitive.ObjectID, target string, tier *int) (*primitive.ObjectID, *int) {
	if target != "" {
		id := ids[target]
		return &id, nil
	}
	return nil, tier
}

func questionChanged(current, desired models.ClassificationQuestion) bool {
	return current.Body != desired.Body ||
		!oidPtrEqual(current.YesQuestionID, desired.YesQuestionID) ||
		!intPtrEqual(current.YesTier, desired.YesTier) ||
		!oidPtrEqual(current.NoQuestionID, desired.NoQuestionID) ||
		!intPtrEqual(current.NoTier, desired.NoTier) ||
		!stringsEqual(current.GuidanceNames, desired.GuidanceNames)
}

func oidPtrEqual(a, b *primitive.ObjectID) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func intPtrEqual(a, b *int) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
