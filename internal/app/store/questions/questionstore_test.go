package questionstore_test

import (
	"errors"
	"strings"
	"testing"

	questionstore "github.com/dalemusser/tierhub/internal/app/store/questions"
	"github.com/dalemusser/tierhub/internal/app/system/qgraph"
	"github.com/dalemusser/tierhub/internal/domain/models"
	"github.com/dalemusser/tierhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func tierPtr(t int) *int { return &t }

func importFile() *qgraph.ImportFile {
	return &qgraph.ImportFile{
		Set: "test",
		Questions: []qgraph.ImportQuestion{
			{Name: "personal", Question: "<p>Does the data describe people?</p>", YesQuestion: "identifiable", NoTier: tierPtr(0)},
			{Name: "identifiable", Question: "<p>Could individuals be identified?</p>", YesTier: tierPtr(3), NoTier: tierPtr(1)},
		},
	}
}

func questionByName(t *testing.T, s *questionstore.Store, setID primitive.ObjectID, name string) models.ClassificationQuestion {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	qs, err := s.ListQuestions(ctx, setID)
	if err != nil {
		t.Fatalf("ListQuestions failed: %v", err)
	}
	for _, q := range qs {
		if q.Name == name {
			return q
		}
	}
	t.Fatalf("question %q not found", name)
	return models.ClassificationQuestion{}
}

func TestImport_ChangeAdvancesVersion(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	s := questionstore.New(db)

	if err := s.Import(ctx, importFile()); err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	set, err := s.GetSetByName(ctx, "test")
	if err != nil {
		t.Fatalf("GetSetByName failed: %v", err)
	}

	before := questionByName(t, s, set.ID, "identifiable")
	personalBefore := questionByName(t, s, set.ID, "personal")

	// Reword one question and re-import.
	changed := importFile()
	changed.Questions[1].Question = "<p>Could individuals be singled out?</p>"
	if err := s.Import(ctx, changed); err != nil {
		t.Fatalf("second import failed: %v", err)
	}

	after := questionByName(t, s, set.ID, "identifiable")
	if after.VersionID <= before.VersionID {
		t.Errorf("expected version to advance past %d, got %d", before.VersionID, after.VersionID)
	}
	if !strings.Contains(after.Body, "singled out") {
		t.Errorf("body was not updated: %q", after.Body)
	}

	// The untouched question keeps its version.
	personalAfter := questionByName(t, s, set.ID, "personal")
	if personalAfter.VersionID != personalBefore.VersionID {
		t.Errorf("unchanged question version moved from %d to %d",
			personalBefore.VersionID, personalAfter.VersionID)
	}

	// Both the old and the new snapshot stay resolvable for replay.
	oldV, err := s.Version(ctx, after.ID, before.VersionID)
	if err != nil {
		t.Fatalf("old version not resolvable: %v", err)
	}
	if !strings.Contains(oldV.Body, "identified") {
		t.Errorf("old version body wrong: %q", oldV.Body)
	}
	if _, err := s.Version(ctx, after.ID, after.VersionID); err != nil {
		t.Fatalf("new version not resolvable: %v", err)
	}
}

func TestVersion_Missing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	s := questionstore.New(db)

	_, err := s.Version(ctx, primitive.NewObjectID(), 42)
	if !errors.Is(err, qgraph.ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestSetHidden_RetiresFromGraph(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	s := questionstore.New(db)

	// A second root that nothing targets, so it can be retired.
	file := importFile()
	file.Questions = append(file.Questions, qgraph.ImportQuestion{
		Name: "orphan", Question: "<p>Standalone?</p>", YesTier: tierPtr(2), NoTier: tierPtr(0),
	})
	if err := s.Import(ctx, file); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	set, err := s.GetSetByName(ctx, "test")
	if err != nil {
		t.Fatalf("GetSetByName failed: %v", err)
	}
	orphan := questionByName(t, s, set.ID, "orphan")

	if err := s.SetHidden(ctx, orphan.ID, true); err != nil {
		t.Fatalf("SetHidden failed: %v", err)
	}

	g, err := s.Graph(ctx, set.ID)
	if err != nil {
		t.Fatalf("Graph failed: %v", err)
	}
	entry, err := g.Entry()
	if err != nil {
		t.Fatalf("Entry failed: %v", err)
	}
	if entry.Name != "personal" {
		t.Errorf("entry: got %q, want %q", entry.Name, "personal")
	}

	// Hidden questions stay resolvable for historical walks.
	if _, ok := g.ByID(orphan.ID); !ok {
		t.Error("hidden question not resolvable by id")
	}
}

func TestDelete_RefusedWhileReferenced(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	s := questionstore.New(db)

	if err := s.Import(ctx, importFile()); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	set, err := s.GetSetByName(ctx, "test")
	if err != nil {
		t.Fatalf("GetSetByName failed: %v", err)
	}
	target := questionByName(t, s, set.ID, "identifiable")

	err = s.Delete(ctx, target.ID)
	if !errors.Is(err, questionstore.ErrReferencedByQuestion) {
		t.Fatalf("expected ErrReferencedByQuestion, got %v", err)
	}
}

func TestDelete_RefusedWhileOpinionAnswers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	s := questionstore.New(db)
	f := testutil.NewFixtures(t, db)

	if err := s.Import(ctx, importFile()); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	set, err := s.GetSetByName(ctx, "test")
	if err != nil {
		t.Fatalf("GetSetByName failed: %v", err)
	}

	// The root is targeted by no question, so only the recorded opinion
	// stands between it and deletion.
	root := questionByName(t, s, set.ID, "personal")
	f.CreateOpinion(ctx, models.ClassificationOpinion{
		WorkPackageID: primitive.NewObjectID(),
		ClassifierID:  primitive.NewObjectID(),
		RoleSnapshot:  models.RoleInvestigator,
		Tier:          0,
		Answers: []models.OpinionAnswer{
			{Order: 0, QuestionID: root.ID, VersionID: root.VersionID, Answer: false},
		},
	})

	err = s.Delete(ctx, root.ID)
	if !errors.Is(err, questionstore.ErrReferencedByOpinion) {
		t.Fatalf("expected ErrReferencedByOpinion, got %v", err)
	}

	// The question and its history survive so the opinion stays replayable.
	if _, err := s.Version(ctx, root.ID, root.VersionID); err != nil {
		t.Fatalf("version no longer resolvable after refused delete: %v", err)
	}
}
