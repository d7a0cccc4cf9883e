// internal/testutil/fixtures.go
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/tierhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a user with the given system role ("" for none).
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, systemRole string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		SystemRole: systemRole,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateSystemManager creates a user holding the system manager role.
func (f *Fixtures) CreateSystemManager(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleSystemManager)
}

// CreateProgrammeManager creates a user holding the programme manager role.
func (f *Fixtures) CreateProgrammeManager(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleProgrammeManager)
}

// CreateProject creates an active project.
func (f *Fixtures) CreateProject(ctx context.Context, name string) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Project{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("projects").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}
	return p
}

// CreateArchivedProject creates a project already in the archived state.
func (f *Fixtures) CreateArchivedProject(ctx context.Context, name string) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Project{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Archived:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("projects").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}
	return p
}

// CreateDataset creates a dataset whose default representative is the
// given user.
func (f *Fixtures) CreateDataset(ctx context.Context, name string, defaultRepID primitive.ObjectID) models.Dataset {
	f.t.Helper()

	now := time.Now().UTC()
	d := models.Dataset{
		ID:                      primitive.NewObjectID(),
		UUID:                    uuid.NewString(),
		Name:                    name,
		NameCI:                  text.Fold(name),
		DefaultRepresentativeID: defaultRepID,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if _, err := f.db.Collection("datasets").InsertOne(ctx, d); err != nil {
		f.t.Fatalf("failed to create test dataset: %v", err)
	}
	return d
}

// CreateParticipation joins a user to a project with the given role.
func (f *Fixtures) CreateParticipation(ctx context.Context, projectID, userID primitive.ObjectID, role string) models.Participation {
	f.t.Helper()

	p := models.Participation{
		ID:        primitive.NewObjectID(),
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("participations").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test participation: %v", err)
	}
	return p
}

// CreateProjectDataset associates a dataset with a project under the given
// representative.
func (f *Fixtures) CreateProjectDataset(ctx context.Context, projectID, datasetID, repID primitive.ObjectID) models.ProjectDataset {
	f.t.Helper()

	pd := models.ProjectDataset{
		ID:               primitive.NewObjectID(),
		ProjectID:        projectID,
		DatasetID:        datasetID,
		RepresentativeID: repID,
		CreatedAt:        time.Now().UTC(),
	}
	if _, err := f.db.Collection("project_datasets").InsertOne(ctx, pd); err != nil {
		f.t.Fatalf("failed to create test project dataset: %v", err)
	}
	return pd
}

// CreateWorkPackage creates a work package in the given state.
func (f *Fixtures) CreateWorkPackage(ctx context.Context, projectID primitive.ObjectID, name, state string) models.WorkPackage {
	f.t.Helper()

	now := time.Now().UTC()
	wp := models.WorkPackage{
		ID:        primitive.NewObjectID(),
		ProjectID: projectID,
		Name:      name,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("work_packages").InsertOne(ctx, wp); err != nil {
		f.t.Fatalf("failed to create test work package: %v", err)
	}
	return wp
}

// CreateWorkPackageParticipation puts a participation onto a work package.
func (f *Fixtures) CreateWorkPackageParticipation(ctx context.Context, wpID primitive.ObjectID, p models.Participation) models.WorkPackageParticipation {
	f.t.Helper()

	wpp := models.WorkPackageParticipation{
		ID:              primitive.NewObjectID(),
		WorkPackageID:   wpID,
		ParticipationID: p.ID,
		ProjectID:       p.ProjectID,
		CreatedAt:       time.Now().UTC(),
	}
	if _, err := f.db.Collection("work_package_participations").InsertOne(ctx, wpp); err != nil {
		f.t.Fatalf("failed to create test work package participation: %v", err)
	}
	return wpp
}

// CreateWorkPackageDataset attaches a dataset to a work package.
func (f *Fixtures) CreateWorkPackageDataset(ctx context.Context, wpID, projectID, datasetID primitive.ObjectID) models.WorkPackageDataset {
	f.t.Helper()

	wpd := models.WorkPackageDataset{
		ID:            primitive.NewObjectID(),
		WorkPackageID: wpID,
		ProjectID:     projectID,
		DatasetID:     datasetID,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := f.db.Collection("work_package_datasets").InsertOne(ctx, wpd); err != nil {
		f.t.Fatalf("failed to create test work package dataset: %v", err)
	}
	return wpd
}

// CreateOpinion records a classification opinion directly.
func (f *Fixtures) CreateOpinion(ctx context.Context, o models.ClassificationOpinion) models.ClassificationOpinion {
	f.t.Helper()

	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if _, err := f.db.Collection("classification_opinions").InsertOne(ctx, o); err != nil {
		f.t.Fatalf("failed to create test opinion: %v", err)
	}
	return o
}

// CreateApproval grants a dataset approval for a work package
// participation directly.
func (f *Fixtures) CreateApproval(ctx context.Context, wppID, wpID, datasetID, approverID primitive.ObjectID) models.WorkPackageParticipationApproval {
	f.t.Helper()

	a := models.WorkPackageParticipationApproval{
		ID:                         primitive.NewObjectID(),
		WorkPackageParticipationID: wppID,
		WorkPackageID:              wpID,
		DatasetID:                  datasetID,
		ApproverID:                 approverID,
		CreatedAt:                  time.Now().UTC(),
	}
	if _, err := f.db.Collection("work_package_participation_approvals").InsertOne(ctx, a); err != nil {
		f.t.Fatalf("failed to create test approval: %v", err)
	}
	return a
}
