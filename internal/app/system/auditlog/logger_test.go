package auditlog_test

import (
	"testing"

	"github.com/dalemusser/tierhub/internal/app/store/audit"
	"github.com/dalemusser/tierhub/internal/app/system/auditlog"
	"github.com/dalemusser/tierhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestLogger_NilLogger(t *testing.T) {
	// nil logger should be a no-op (not panic)
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.ClassificationOpened(ctx, primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID())
	logger.ParticipantAdded(ctx, primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), "researcher")
}

func TestLogger_Log_ConfigOff(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zapLog, auditlog.Config{
		Admin:      "off",
		Membership: "off",
		Classify:   "off",
	})

	logger.Log(ctx, audit.Event{
		Category:  audit.CategoryClassify,
		EventType: audit.EventClassificationOpened,
		Success:   true,
	})

	events, err := store.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(events) != 0 {
		t.Error("expected no events when config is 'off'")
	}
}

func TestLogger_Log_ConfigDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	actorID := primitive.NewObjectID()
	logger := auditlog.New(store, zapLog, auditlog.Config{
		Admin:      "db",
		Membership: "db",
		Classify:   "db",
	})

	logger.Log(ctx, audit.Event{
		Category:  audit.CategoryClassify,
		EventType: audit.EventOpinionRecorded,
		ActorID:   &actorID,
		Success:   true,
	})

	events, err := store.GetByActor(ctx, actorID, 10)
	if err != nil {
		t.Fatalf("GetByActor failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 event, got %d", len(events))
	}
}

func TestLogger_Log_ConfigLogOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zapLog, auditlog.Config{
		Admin:      "log",
		Membership: "log",
		Classify:   "log",
	})

	logger.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserCreated,
		Success:   true,
	})

	events, err := store.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(events) != 0 {
		t.Error("expected no DB events when config is 'log'")
	}
}

func TestLogger_Log_PerCategoryConfig(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zapLog, auditlog.Config{
		Admin:      "off",
		Membership: "db",
		Classify:   "all",
	})

	logger.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserCreated,
		Success:   true,
	})
	logger.Log(ctx, audit.Event{
		Category:  audit.CategoryMembership,
		EventType: audit.EventParticipantAdded,
		Success:   true,
	})
	logger.Log(ctx, audit.Event{
		Category:  audit.CategoryClassify,
		EventType: audit.EventOpinionRecorded,
		Success:   true,
	})

	events, err := store.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 stored events, got %d", len(events))
	}
}

func TestLogger_ClassificationClosed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zapLog, auditlog.Config{Classify: "db"})

	actorID := primitive.NewObjectID()
	projectID := primitive.NewObjectID()
	wpID := primitive.NewObjectID()
	logger.ClassificationClosed(ctx, actorID, projectID, wpID, 3)

	events, err := store.GetByProject(ctx, projectID, 10)
	if err != nil {
		t.Fatalf("GetByProject failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Details["tier"] != "3" {
		t.Errorf("expected tier detail 3, got %q", events[0].Details["tier"])
	}
	if events[0].EntityID == nil || *events[0].EntityID != wpID {
		t.Error("expected work package entity id to be preserved")
	}
}
