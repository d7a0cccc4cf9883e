package walk

import (
	"errors"
	"testing"

	"github.com/dalemusser/tierhub/internal/app/system/qgraph"
	"github.com/dalemusser/tierhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func tierPtr(t int) *int { return &t }

// testGraph builds root -(yes)-> mid -(yes)-> tier 3, with every no edge
// terminating at tier 0.
func testGraph(t *testing.T) *qgraph.Graph {
	t.Helper()
	setID := primitive.NewObjectID()
	rootID := primitive.NewObjectID()
	midID := primitive.NewObjectID()
	g, err := qgraph.New(setID, []models.ClassificationQuestion{
		{
			ID: rootID, SetID: setID, Name: "root", VersionID: 1,
			YesQuestionID: &midID, NoTier: tierPtr(0),
		},
		{
			ID: midID, SetID: setID, Name: "mid", VersionID: 2,
			YesTier: tierPtr(3), NoTier: tierPtr(0),
		},
	})
	if err != nil {
		t.Fatalf("building test graph: %v", err)
	}
	return g
}

func TestWalkToTerminal(t *testing.T) {
	g := testGraph(t)
	w, err := Start(g)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if w.Current() == nil || w.Current().Name != "root" {
		t.Fatalf("expected walk to start at root, got %v", w.Current())
	}

	next, tier, err := w.Answer(true)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if tier != nil || next.Name != "mid" {
		t.Fatalf("expected to advance to mid, got next=%v tier=%v", next, tier)
	}

	next, tier, err = w.Answer(true)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if next != nil || tier == nil || *tier != 3 {
		t.Fatalf("expected terminal tier 3, got next=%v tier=%v", next, tier)
	}
	if !w.Finished() {
		t.Error("walk should be finished")
	}

	if _, _, err := w.Answer(true); err == nil {
		t.Error("expected error answering a finished walk")
	}
}

func TestAnswersPinVersions(t *testing.T) {
	g := testGraph(t)
	w, _ := Start(g)
	w.Answer(true)
	w.Answer(false)

	answers := w.Answers()
	if len(answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(answers))
	}
	if answers[0].Order != 0 || answers[0].VersionID != 1 || !answers[0].Answer {
		t.Errorf("answer 0 wrong: %+v", answers[0])
	}
	if answers[1].Order != 1 || answers[1].VersionID != 2 || answers[1].Answer {
		t.Errorf("answer 1 wrong: %+v", answers[1])
	}
}

func TestGoBack(t *testing.T) {
	g := testGraph(t)
	root, _ := g.ByName("root")
	w, _ := Start(g)
	w.Answer(true)
	w.Answer(true)
	if !w.Finished() {
		t.Fatal("walk should be finished")
	}

	if err := w.GoBack(root.ID, false); err != nil {
		t.Fatalf("GoBack failed: %v", err)
	}
	if w.Finished() {
		t.Error("walk should no longer be finished")
	}
	if w.Current().Name != "root" {
		t.Errorf("current: got %q, want %q", w.Current().Name, "root")
	}
	if len(w.Steps()) != 0 {
		t.Errorf("expected history truncated, got %d steps", len(w.Steps()))
	}

	// Answer differently this time.
	_, tier, err := w.Answer(false)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if tier == nil || *tier != 0 {
		t.Errorf("expected tier 0 after re-answer, got %v", tier)
	}
}

func TestGoBack_IllegalJump(t *testing.T) {
	g := testGraph(t)
	mid, _ := g.ByName("mid")
	w, _ := Start(g)

	err := w.GoBack(mid.ID, false)
	var ij *IllegalJumpError
	if !errors.As(err, &ij) {
		t.Fatalf("expected IllegalJumpError, got %v", err)
	}

	// Repair mode restarts at the target instead.
	if err := w.GoBack(mid.ID, true); err != nil {
		t.Fatalf("repair GoBack failed: %v", err)
	}
	if w.Current().Name != "mid" || len(w.Steps()) != 0 {
		t.Errorf("expected repaired walk at mid with empty history")
	}
}

func TestRestart(t *testing.T) {
	g := testGraph(t)
	w, _ := Start(g)
	w.Answer(true)
	w.Answer(true)

	if err := w.Restart(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if w.Current().Name != "root" || len(w.Steps()) != 0 || w.Finished() {
		t.Error("expected a fresh walk at root")
	}
}
