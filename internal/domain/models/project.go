// internal/domain/models/project.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project owns a set of work packages and a set of dataset associations.
//
// NOTE:
//   - Participant lists are not embedded on Project.
//     All membership is stored in the participations collection.
//   - Archived projects are hidden from default listings but never deleted,
//     and cannot be un-archived from the core.
type Project struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"name_ci"`
	Description string             `bson:"description" json:"description"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"created_by"`

	// Programmes holds zero or more programme labels used for grouping
	// projects in listings and reports.
	Programmes []string `bson:"programmes,omitempty" json:"programmes,omitempty"`

	Archived bool `bson:"archived" json:"archived"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
