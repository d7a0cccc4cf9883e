// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents any account known to TierHub. Authentication itself is
// handled by the external identity provider; TierHub only records the stable
// identity and the account-wide system role it supplies.
//
// NOTE:
//   - Project membership is not embedded on User.
//     Use the participations collection to discover a user's projects.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"full_name_ci"` // lowercase, diacritics-stripped
	Email      string             `bson:"email" json:"email"`

	// SystemRole is "system_manager", "programme_manager", or "" (none).
	SystemRole string `bson:"system_role" json:"system_role"`

	Status string `bson:"status,omitempty" json:"status,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
