// internal/domain/models/workpackage.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Work package states. These are the exact persisted tokens.
const (
	StateNew        = "new"
	StateUnderway   = "underway"
	StateClassified = "classified"
)

// WorkPackage is the unit of classification: a subset of a project's
// datasets plus the participants permitted to handle them.
//
// Tier stays nil until the work package reaches the classified state; no
// cached tier is ever trusted for readiness checks, which are derived from
// the opinion set on read.
type WorkPackage struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	ProjectID   primitive.ObjectID `bson:"project_id" json:"project_id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`

	State string `bson:"state" json:"state"` // new | underway | classified
	Tier  *int   `bson:"tier,omitempty" json:"tier,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// WorkPackageDataset associates a dataset with a work package. The dataset
// must already be associated with the work package's project.
type WorkPackageDataset struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkPackageID primitive.ObjectID `bson:"work_package_id" json:"work_package_id"`
	ProjectID     primitive.ObjectID `bson:"project_id" json:"project_id"`
	DatasetID     primitive.ObjectID `bson:"dataset_id" json:"dataset_id"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}
