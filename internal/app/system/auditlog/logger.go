// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"strconv"

	"github.com/dalemusser/tierhub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Admin controls logging for administrative events (users, question
	// sets, policies).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
	// Membership controls logging for project and work package membership
	// events.
	Membership string
	// Classify controls logging for classification lifecycle events
	// (open, clear, close, opinions, approvals).
	Classify string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}

	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.ProjectID != nil {
		fields = append(fields, zap.String("project_id", event.ProjectID.Hex()))
	}
	if event.EntityKind != "" {
		fields = append(fields, zap.String("entity_kind", event.EntityKind))
	}
	if event.EntityID != nil {
		fields = append(fields, zap.String("entity_id", event.EntityID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	// Determine which config setting applies based on event category
	var setting string
	switch event.Category {
	case audit.CategoryAdmin:
		setting = l.config.Admin
	case audit.CategoryMembership:
		setting = l.config.Membership
	case audit.CategoryClassify:
		setting = l.config.Classify
	default:
		setting = "all" // Default to logging everything for unknown categories
	}

	// Check if logging is disabled for this category
	if setting == "off" {
		return
	}

	// Log to zap if configured
	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	// Log to MongoDB if configured
	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Admin Events ---

// UserCreated logs creation of a user account.
func (l *Logger) UserCreated(ctx context.Context, actorID, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventUserCreated,
		ActorID:    &actorID,
		EntityKind: audit.EntityUser,
		EntityID:   &userID,
		Success:    true,
		Details: map[string]string{
			"email": email,
		},
	})
}

// UserRoleChanged logs a system role assignment.
func (l *Logger) UserRoleChanged(ctx context.Context, actorID, userID primitive.ObjectID, role string) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventUserRoleChanged,
		ActorID:    &actorID,
		EntityKind: audit.EntityUser,
		EntityID:   &userID,
		Success:    true,
		Details: map[string]string{
			"role": role,
		},
	})
}

// ProjectCreated logs creation of a project.
func (l *Logger) ProjectCreated(ctx context.Context, actorID, projectID primitive.ObjectID, name string) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventProjectCreated,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityProject,
		EntityID:   &projectID,
		Success:    true,
		Details: map[string]string{
			"name": name,
		},
	})
}

// ProjectUpdated logs an edit to a project's details.
func (l *Logger) ProjectUpdated(ctx context.Context, actorID, projectID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventProjectUpdated,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityProject,
		EntityID:   &projectID,
		Success:    true,
	})
}

// ProjectArchived logs archival of a project.
func (l *Logger) ProjectArchived(ctx context.Context, actorID, projectID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventProjectArchived,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityProject,
		EntityID:   &projectID,
		Success:    true,
	})
}

// DatasetCreated logs registration of a dataset.
func (l *Logger) DatasetCreated(ctx context.Context, actorID, datasetID primitive.ObjectID, uuid string) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventDatasetCreated,
		ActorID:    &actorID,
		EntityKind: audit.EntityDataset,
		EntityID:   &datasetID,
		Success:    true,
		Details: map[string]string{
			"uuid": uuid,
		},
	})
}

// QuestionsImported logs an import of a question set.
func (l *Logger) QuestionsImported(ctx context.Context, actorID, setID primitive.ObjectID, setName string, count int) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventQuestionsImported,
		ActorID:    &actorID,
		EntityKind: audit.EntityQuestionSet,
		EntityID:   &setID,
		Success:    true,
		Details: map[string]string{
			"set":       setName,
			"questions": strconv.Itoa(count),
		},
	})
}

// QuestionHidden logs hiding or restoring a question.
func (l *Logger) QuestionHidden(ctx context.Context, actorID, questionID primitive.ObjectID, hidden bool) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventQuestionHidden,
		ActorID:    &actorID,
		EntityKind: audit.EntityQuestion,
		EntityID:   &questionID,
		Success:    true,
		Details: map[string]string{
			"hidden": strconv.FormatBool(hidden),
		},
	})
}

// --- Membership Events ---

// ParticipantAdded logs adding a user to a project.
func (l *Logger) ParticipantAdded(ctx context.Context, actorID, projectID, userID primitive.ObjectID, role string) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryMembership,
		EventType:  audit.EventParticipantAdded,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityUser,
		EntityID:   &userID,
		Success:    true,
		Details: map[string]string{
			"role": role,
		},
	})
}

// ParticipantRemoved logs removing a user from a project.
func (l *Logger) ParticipantRemoved(ctx context.Context, actorID, projectID, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryMembership,
		EventType:  audit.EventParticipantRemoved,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityUser,
		EntityID:   &userID,
		Success:    true,
	})
}

// DatasetAdded logs associating a dataset with a project.
func (l *Logger) DatasetAdded(ctx context.Context, actorID, projectID, datasetID, representativeID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryMembership,
		EventType:  audit.EventDatasetAdded,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityDataset,
		EntityID:   &datasetID,
		Success:    true,
		Details: map[string]string{
			"representative_id": representativeID.Hex(),
		},
	})
}

// DatasetRemoved logs removing a dataset from a project.
func (l *Logger) DatasetRemoved(ctx context.Context, actorID, projectID, datasetID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryMembership,
		EventType:  audit.EventDatasetRemoved,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityDataset,
		EntityID:   &datasetID,
		Success:    true,
	})
}

// RepresentativeChanged logs a change of a dataset's representative on a
// project.
func (l *Logger) RepresentativeChanged(ctx context.Context, actorID, projectID, datasetID, representativeID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryMembership,
		EventType:  audit.EventRepresentativeChanged,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityDataset,
		EntityID:   &datasetID,
		Success:    true,
		Details: map[string]string{
			"representative_id": representativeID.Hex(),
		},
	})
}

// WorkPackageCreated logs creation of a work package.
func (l *Logger) WorkPackageCreated(ctx context.Context, actorID, projectID, wpID primitive.ObjectID, name string) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryMembership,
		EventType:  audit.EventWorkPackageCreated,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityWorkPackage,
		EntityID:   &wpID,
		Success:    true,
		Details: map[string]string{
			"name": name,
		},
	})
}

// WorkPackageUpdated logs an edit to a work package's name or description.
func (l *Logger) WorkPackageUpdated(ctx context.Context, actorID, projectID, wpID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryMembership,
		EventType:  audit.EventWorkPackageUpdated,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityWorkPackage,
		EntityID:   &wpID,
		Success:    true,
	})
}

// WorkPackageDeleted logs deletion of a work package.
func (l *Logger) WorkPackageDeleted(ctx context.Context, actorID, projectID, wpID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryMembership,
		EventType:  audit.EventWorkPackageDeleted,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityWorkPackage,
		EntityID:   &wpID,
		Success:    true,
	})
}

// WorkPackageMemberAdded logs adding a participant to a work package.
func (l *Logger) WorkPackageMemberAdded(ctx context.Context, actorID, projectID, wpID, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryMembership,
		EventType:  audit.EventWorkPackageMemberAdded,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityWorkPackage,
		EntityID:   &wpID,
		Success:    true,
		Details: map[string]string{
			"user_id": userID.Hex(),
		},
	})
}

// WorkPackageMemberRemoved logs removing a participant from a work package.
func (l *Logger) WorkPackageMemberRemoved(ctx context.Context, actorID, projectID, wpID, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryMembership,
		EventType:  audit.EventWorkPackageMemberRemoved,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityWorkPackage,
		EntityID:   &wpID,
		Success:    true,
		Details: map[string]string{
			"user_id": userID.Hex(),
		},
	})
}

// WorkPackageDatasetAdded logs adding a dataset to a work package.
func (l *Logger) WorkPackageDatasetAdded(ctx context.Context, actorID, projectID, wpID, datasetID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryMembership,
		EventType:  audit.EventWorkPackageDatasetAdded,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityWorkPackage,
		EntityID:   &wpID,
		Success:    true,
		Details: map[string]string{
			"dataset_id": datasetID.Hex(),
		},
	})
}

// WorkPackageDatasetRemoved logs removing a dataset from a work package.
func (l *Logger) WorkPackageDatasetRemoved(ctx context.Context, actorID, projectID, wpID, datasetID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryMembership,
		EventType:  audit.EventWorkPackageDatasetRemoved,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityWorkPackage,
		EntityID:   &wpID,
		Success:    true,
		Details: map[string]string{
			"dataset_id": datasetID.Hex(),
		},
	})
}

// --- Classification Events ---

// ClassificationOpened logs opening classification on a work package.
func (l *Logger) ClassificationOpened(ctx context.Context, actorID, projectID, wpID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryClassify,
		EventType:  audit.EventClassificationOpened,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityWorkPackage,
		EntityID:   &wpID,
		Success:    true,
	})
}

// ClassificationCleared logs clearing the classification of a work package.
func (l *Logger) ClassificationCleared(ctx context.Context, actorID, projectID, wpID primitive.ObjectID, opinionsDeleted int64) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryClassify,
		EventType:  audit.EventClassificationCleared,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityWorkPackage,
		EntityID:   &wpID,
		Success:    true,
		Details: map[string]string{
			"opinions_deleted": strconv.FormatInt(opinionsDeleted, 10),
		},
	})
}

// ClassificationClosed logs closing classification with an agreed tier.
func (l *Logger) ClassificationClosed(ctx context.Context, actorID, projectID, wpID primitive.ObjectID, tier int) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryClassify,
		EventType:  audit.EventClassificationClosed,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityWorkPackage,
		EntityID:   &wpID,
		Success:    true,
		Details: map[string]string{
			"tier": strconv.Itoa(tier),
		},
	})
}

// ClassificationCloseDenied logs a refused close, with the reason.
func (l *Logger) ClassificationCloseDenied(ctx context.Context, actorID, projectID, wpID primitive.ObjectID, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryClassify,
		EventType:     audit.EventClassificationClosed,
		ActorID:       &actorID,
		ProjectID:     &projectID,
		EntityKind:    audit.EntityWorkPackage,
		EntityID:      &wpID,
		Success:       false,
		FailureReason: reason,
	})
}

// OpinionRecorded logs a recorded classification opinion.
func (l *Logger) OpinionRecorded(ctx context.Context, actorID, projectID, wpID primitive.ObjectID, role string, tier int) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryClassify,
		EventType:  audit.EventOpinionRecorded,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityWorkPackage,
		EntityID:   &wpID,
		Success:    true,
		Details: map[string]string{
			"role": role,
			"tier": strconv.Itoa(tier),
		},
	})
}

// OpinionDeleted logs deletion of a classification opinion.
func (l *Logger) OpinionDeleted(ctx context.Context, actorID, projectID, wpID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryClassify,
		EventType:  audit.EventOpinionDeleted,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityWorkPackage,
		EntityID:   &wpID,
		Success:    true,
	})
}

// ParticipantApproved logs a representative approving a participant.
func (l *Logger) ParticipantApproved(ctx context.Context, actorID, projectID, wpID, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryClassify,
		EventType:  audit.EventParticipantApproved,
		ActorID:    &actorID,
		ProjectID:  &projectID,
		EntityKind: audit.EntityWorkPackage,
		EntityID:   &wpID,
		Success:    true,
		Details: map[string]string{
			"user_id": userID.Hex(),
		},
	})
}
