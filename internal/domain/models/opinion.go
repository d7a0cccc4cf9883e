// internal/domain/models/opinion.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OpinionAnswer is one recorded step of a classifier's walk through the
// question graph. VersionID pins the exact question wording in force when
// the answer was given, so the walk stays replayable even after the current
// graph text diverges.
type OpinionAnswer struct {
	Order      int                `bson:"order" json:"order"`
	QuestionID primitive.ObjectID `bson:"question_id" json:"question_id"`
	VersionID  int64              `bson:"question_version_id" json:"question_version_id"`
	Answer     bool               `bson:"answer" json:"answer"`
}

// ClassificationOpinion is one classifier's recorded walk through the
// question graph for one work package, yielding a tier. Exactly one
// document per (work_package_id, classifier_id).
//
// RoleSnapshot is the classifier's project role at the time the opinion was
// recorded and stays authoritative even if the role later changes.
type ClassificationOpinion struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkPackageID primitive.ObjectID `bson:"work_package_id" json:"work_package_id"`
	ClassifierID  primitive.ObjectID `bson:"classifier_id" json:"classifier_id"`

	RoleSnapshot string `bson:"role_snapshot" json:"role_snapshot"`
	Tier         int    `bson:"tier" json:"tier"`

	Answers []OpinionAnswer `bson:"answers" json:"answers"`

	// DatasetIDs is populated only for data_provider_representative
	// opinions and enumerates the work-package datasets this representative
	// represents. It is projected once at record time, not maintained
	// reactively.
	DatasetIDs []primitive.ObjectID `bson:"dataset_ids,omitempty" json:"dataset_ids,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
