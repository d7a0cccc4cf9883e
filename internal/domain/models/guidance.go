// internal/domain/models/guidance.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClassificationGuidance is supporting rich text that questions and other
// guidance may link to by name. The link closure must terminate; the import
// path rejects reference cycles.
type ClassificationGuidance struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SetID primitive.ObjectID `bson:"set_id" json:"set_id"`

	// Name is the stable string identifier, unique within the set.
	Name string `bson:"name" json:"name"`

	// Body is sanitized rich text (HTML).
	Body string `bson:"body" json:"body"`

	// GuidanceNames lists other guidance records linked from the body.
	GuidanceNames []string `bson:"guidance_names,omitempty" json:"guidance_names,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
