// internal/domain/models/question.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClassificationQuestionSet is a named, versioned universe of questions and
// guidance. A work package is always classified against a single set.
type ClassificationQuestionSet struct {
	ID     primitive.ObjectID `bson:"_id" json:"id"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"name_ci"`

	// NextVersionID is the monotonically increasing counter handed out to
	// question versions within this set.
	NextVersionID int64 `bson:"next_version_id" json:"next_version_id"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ClassificationQuestion is a node of the question graph. Each of the yes
// and no edges points at exactly one of: another question in the same set,
// or a terminal tier. Hidden questions are retired without deletion so that
// historical opinions stay resolvable.
type ClassificationQuestion struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	SetID primitive.ObjectID `bson:"set_id" json:"set_id"`

	// Name is the stable string identifier, unique within the set.
	Name string `bson:"name" json:"name"`

	// Body is sanitized rich text (HTML).
	Body string `bson:"body" json:"body"`

	YesQuestionID *primitive.ObjectID `bson:"yes_question_id,omitempty" json:"yes_question_id,omitempty"`
	YesTier       *int                `bson:"yes_tier,omitempty" json:"yes_tier,omitempty"`
	NoQuestionID  *primitive.ObjectID `bson:"no_question_id,omitempty" json:"no_question_id,omitempty"`
	NoTier        *int                `bson:"no_tier,omitempty" json:"no_tier,omitempty"`

	// GuidanceNames lists guidance records linked from the question body.
	GuidanceNames []string `bson:"guidance_names,omitempty" json:"guidance_names,omitempty"`

	Hidden bool `bson:"hidden" json:"hidden"`

	// VersionID is the current version of this question. Every field change
	// appends a QuestionVersion and advances this value.
	VersionID int64 `bson:"version_id" json:"version_id"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// QuestionVersion is the append-only history record for one question.
// Opinions reference (question_id, version_id) pairs, and such versions can
// never be deleted while referenced.
type QuestionVersion struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	QuestionID primitive.ObjectID `bson:"question_id" json:"question_id"`
	SetID      primitive.ObjectID `bson:"set_id" json:"set_id"`
	VersionID  int64              `bson:"version_id" json:"version_id"`

	Name string `bson:"name" json:"name"`
	Body string `bson:"body" json:"body"`

	YesQuestionID *primitive.ObjectID `bson:"yes_question_id,omitempty" json:"yes_question_id,omitempty"`
	YesTier       *int                `bson:"yes_tier,omitempty" json:"yes_tier,omitempty"`
	NoQuestionID  *primitive.ObjectID `bson:"no_question_id,omitempty" json:"no_question_id,omitempty"`
	NoTier        *int                `bson:"no_tier,omitempty" json:"no_tier,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
