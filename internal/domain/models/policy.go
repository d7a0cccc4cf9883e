// internal/domain/models/policy.go
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TierPolicy is one row of the fixed tier→policy table: for a given tier,
// the policy chosen from one policy group (connection, copy, egress, ...).
type TierPolicy struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	Tier        int    `bson:"tier" json:"tier"`
	Name        string `bson:"name" json:"name"`
	Group       string `bson:"group" json:"group"`
	Description string `bson:"description" json:"description"`
}

// PolicyAssignment is the value emitted for a classified work package: the
// policy selected for each group at the work package's tier.
type PolicyAssignment struct {
	Tier        int    `json:"tier"`
	Group       string `json:"group"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
