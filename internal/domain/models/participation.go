// internal/domain/models/participation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Participation is the authoritative join between users and projects.
// Exactly one document per (user_id, project_id); role is a single project
// role token.
type Participation struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID primitive.ObjectID `bson:"project_id" json:"project_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role      string             `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// WorkPackageParticipation joins a project participation to a work package.
// The participation must belong to the same project as the work package.
// Exactly one document per (participation_id, work_package_id).
type WorkPackageParticipation struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkPackageID   primitive.ObjectID `bson:"work_package_id" json:"work_package_id"`
	ParticipationID primitive.ObjectID `bson:"participation_id" json:"participation_id"`
	ProjectID       primitive.ObjectID `bson:"project_id" json:"project_id"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
}
