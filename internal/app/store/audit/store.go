// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAdmin      = "admin"      // users, question sets, policies
	CategoryMembership = "membership" // project and work package membership
	CategoryClassify   = "classify"   // classification lifecycle
)

// Admin event types
const (
	EventUserCreated       = "user_created"
	EventUserRoleChanged   = "user_role_changed"
	EventProjectCreated    = "project_created"
	EventProjectUpdated    = "project_updated"
	EventProjectArchived   = "project_archived"
	EventDatasetCreated    = "dataset_created"
	EventQuestionsImported = "questions_imported"
	EventQuestionHidden    = "question_hidden"
	EventQuestionDeleted   = "question_deleted"
	EventPoliciesSeeded    = "policies_seeded"
)

// Membership event types
const (
	EventParticipantAdded          = "participant_added"
	EventParticipantRemoved        = "participant_removed"
	EventDatasetAdded              = "dataset_added"
	EventDatasetRemoved            = "dataset_removed"
	EventRepresentativeChanged     = "representative_changed"
	EventWorkPackageCreated        = "work_package_created"
	EventWorkPackageUpdated        = "work_package_updated"
	EventWorkPackageDeleted        = "work_package_deleted"
	EventWorkPackageMemberAdded    = "work_package_member_added"
	EventWorkPackageMemberRemoved  = "work_package_member_removed"
	EventWorkPackageDatasetAdded   = "work_package_dataset_added"
	EventWorkPackageDatasetRemoved = "work_package_dataset_removed"
)

// Classification event types
const (
	EventClassificationOpened  = "classification_opened"
	EventClassificationCleared = "classification_cleared"
	EventClassificationClosed  = "classification_closed"
	EventOpinionRecorded       = "opinion_recorded"
	EventOpinionDeleted        = "opinion_deleted"
	EventParticipantApproved   = "participant_approved"
)

// Entity kinds an event may refer to.
const (
	EntityUser        = "user"
	EntityProject     = "project"
	EntityDataset     = "dataset"
	EntityWorkPackage = "work_package"
	EntityQuestionSet = "question_set"
	EntityQuestion    = "question"
)

// Event represents an audit event.
type Event struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty"`
	Timestamp time.Time           `bson:"timestamp"`
	ProjectID *primitive.ObjectID `bson:"project_id,omitempty"`

	// Event classification
	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// Who and what
	ActorID    *primitive.ObjectID `bson:"actor_id,omitempty"` // who performed the action
	EntityKind string              `bson:"entity_kind,omitempty"`
	EntityID   *primitive.ObjectID `bson:"entity_id,omitempty"`

	// Outcome
	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	// Additional details (varies by event type)
	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	ProjectID  *primitive.ObjectID
	ProjectIDs []primitive.ObjectID // multiple projects (for programme reporting)
	ActorID    *primitive.ObjectID
	EntityID   *primitive.ObjectID
	Category   string
	EventType  string
	StartTime  *time.Time
	EndTime    *time.Time
	Limit      int64
	Offset     int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// EnsureIndexes creates necessary indexes for efficient querying.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// Query by time range (most recent first)
		{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		},
		// Query by project
		{
			Keys: bson.D{
				{Key: "project_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		// Query by actor
		{
			Keys: bson.D{
				{Key: "actor_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		// Query by event type
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

func (f QueryFilter) query() bson.M {
	query := bson.M{}

	if len(f.ProjectIDs) > 0 {
		query["project_id"] = bson.M{"$in": f.ProjectIDs}
	} else if f.ProjectID != nil {
		query["project_id"] = f.ProjectID
	}
	if f.ActorID != nil {
		query["actor_id"] = f.ActorID
	}
	if f.EntityID != nil {
		query["entity_id"] = f.EntityID
	}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if f.EventType != "" {
		query["event_type"] = f.EventType
	}

	// Time range
	if f.StartTime != nil || f.EndTime != nil {
		timeQuery := bson.M{}
		if f.StartTime != nil {
			timeQuery["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			timeQuery["$lte"] = *f.EndTime
		}
		query["timestamp"] = timeQuery
	}

	return query
}

// Query retrieves audit events matching the given filter.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.c.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByFilter returns the count of events matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.query())
}

// GetByActor retrieves recent audit events performed by a specific user.
func (s *Store) GetByActor(ctx context.Context, actorID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{
		ActorID: &actorID,
		Limit:   limit,
	})
}

// GetByProject retrieves recent audit events for a specific project.
func (s *Store) GetByProject(ctx context.Context, projectID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{
		ProjectID: &projectID,
		Limit:     limit,
	})
}

// GetRecent retrieves the most recent audit events.
func (s *Store) GetRecent(ctx context.Context, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{
		Limit: limit,
	})
}

// GetDeniedActions retrieves recent failed events, typically permission
// denials surfaced by the policy layer.
func (s *Store) GetDeniedActions(ctx context.Context, since time.Time, limit int64) ([]Event, error) {
	query := bson.M{
		"success":   false,
		"timestamp": bson.M{"$gte": since},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
