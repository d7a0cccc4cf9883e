// internal/domain/models/approval.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkPackageParticipationApproval is an assertion by a specific data
// provider representative that a specific work-package participation is
// approved for access to a specific dataset.
//
// A participation counts as fully approved when the dataset set of its
// approvals covers every dataset of the work package (derived by set
// comparison, never cached).
type WorkPackageParticipationApproval struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	WorkPackageParticipationID primitive.ObjectID `bson:"work_package_participation_id" json:"work_package_participation_id"`
	WorkPackageID              primitive.ObjectID `bson:"work_package_id" json:"work_package_id"`
	DatasetID                  primitive.ObjectID `bson:"dataset_id" json:"dataset_id"`

	// ApproverID is the user id of the data provider representative who
	// granted the approval.
	ApproverID primitive.ObjectID `bson:"approver_id" json:"approver_id"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
