// internal/domain/models/dataset.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Dataset is a globally known dataset. TierHub never stores or transports
// the data itself; a Dataset is an opaque handle plus bookkeeping.
type Dataset struct {
	ID primitive.ObjectID `bson:"_id" json:"id"`

	// UUID is the globally unique opaque identifier used when talking to
	// external systems about this dataset.
	UUID string `bson:"uuid" json:"uuid"`

	Name   string `bson:"name" json:"name"`
	NameCI string `bson:"name_ci" json:"name_ci"`

	// DefaultRepresentativeID is the user who acts as the data provider
	// representative unless a project overrides it.
	DefaultRepresentativeID primitive.ObjectID `bson:"default_representative_id" json:"default_representative_id"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ProjectDataset associates a dataset with a project and names the
// per-project data provider representative, which may differ from the
// dataset's default. Exactly one document per (project_id, dataset_id).
type ProjectDataset struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID primitive.ObjectID `bson:"project_id" json:"project_id"`
	DatasetID primitive.ObjectID `bson:"dataset_id" json:"dataset_id"`

	// RepresentativeID must refer to a project participant holding the
	// data_provider_representative role.
	RepresentativeID primitive.ObjectID `bson:"representative_id" json:"representative_id"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
