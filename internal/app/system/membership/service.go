// internal/app/system/membership/service.go

// Package membership is the entity and membership model: projects, their
// participants, their dataset associations, and work package composition.
// It enforces the structural invariants the stores alone cannot express:
// work package participants must be project participants, work package
// datasets must be project datasets, dataset representatives must hold the
// representative role, and archived projects accept no further mutation.
package membership

import (
	"context"
	"errors"

	"github.com/dalemusser/tierhub/internal/app/policy/projectpolicy"
	"github.com/dalemusser/tierhub/internal/app/policy/wppolicy"
	"github.com/dalemusser/tierhub/internal/app/store/approvals"
	"github.com/dalemusser/tierhub/internal/app/store/datasets"
	"github.com/dalemusser/tierhub/internal/app/store/participations"
	"github.com/dalemusser/tierhub/internal/app/store/projects"
	"github.com/dalemusser/tierhub/internal/app/store/users"
	"github.com/dalemusser/tierhub/internal/app/store/workpackages"
	"github.com/dalemusser/tierhub/internal/app/system/auditlog"
	"github.com/dalemusser/tierhub/internal/app/system/authz"
	"github.com/dalemusser/tierhub/internal/app/system/faults"
	"github.com/dalemusser/tierhub/internal/app/system/txn"
	"github.com/dalemusser/tierhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Service carries the stores and policy inputs for membership operations.
type Service struct {
	db     *mongo.Database
	client *mongo.Client
	matrix *authz.Matrix
	audit  *auditlog.Logger

	users     *userstore.Store
	projects  *projectstore.Store
	datasets  *datasetstore.Store
	wps       *wpstore.Store
	parts     *participationstore.Store
	approvals *approvalstore.Store
}

func New(db *mongo.Database, client *mongo.Client, matrix *authz.Matrix, audit *auditlog.Logger) *Service {
	return &Service{
		db:        db,
		client:    client,
		matrix:    matrix,
		audit:     audit,
		users:     userstore.New(db),
		projects:  projectstore.New(db),
		datasets:  datasetstore.New(db),
		wps:       wpstore.New(db),
		parts:     participationstore.New(db),
		approvals: approvalstore.New(db),
	}
}

// activeProject loads a project and refuses mutation when it is archived.
func (s *Service) activeProject(ctx context.Context, projectID primitive.ObjectID) (models.Project, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return models.Project{}, err
	}
	if p.Archived {
		return models.Project{}, faults.Statef("project %q is archived", p.Name)
	}
	return p, nil
}

/* ------------------------------- projects ------------------------------- */

// CreateProject registers a new project. Names are unique across the
// system, folded for case and diacritics.
func (s *Service) CreateProject(ctx context.Context, actor models.User, name, description string, programmes []string) (models.Project, error) {
	if err := projectpolicy.RequireGlobal(s.matrix, actor, "create_projects"); err != nil {
		return models.Project{}, err
	}
	if name == "" {
		return models.Project{}, faults.Validationf("a project needs a name")
	}
	p, err := s.projects.Create(ctx, models.Project{
		Name:        name,
		Description: description,
		Programmes:  programmes,
		CreatedBy:   actor.ID,
	})
	if errors.Is(err, projectstore.ErrDuplicateProjectName) {
		return models.Project{}, faults.Validationf("a project named %q already exists", name)
	}
	if err != nil {
		return models.Project{}, err
	}
	s.audit.ProjectCreated(ctx, actor.ID, p.ID, p.Name)
	return p, nil
}

// EditProject updates a project's details. Archived projects stay frozen.
func (s *Service) EditProject(ctx context.Context, actor models.User, projectID primitive.ObjectID, name, description string, programmes []string) error {
	if _, err := s.activeProject(ctx, projectID); err != nil {
		return err
	}
	if _, err := projectpolicy.Require(ctx, s.db, s.matrix, actor, projectID, "edit_project"); err != nil {
		return err
	}
	if err := s.projects.UpdateInfo(ctx, projectID, name, description, programmes); err != nil {
		return err
	}
	s.audit.ProjectUpdated(ctx, actor.ID, projectID)
	return nil
}

// ArchiveProject hides a project from default listings and freezes its
// membership. Archiving is one-way.
func (s *Service) ArchiveProject(ctx context.Context, actor models.User, projectID primitive.ObjectID) error {
	if _, err := projectpolicy.Require(ctx, s.db, s.matrix, actor, projectID, "archive_projects"); err != nil {
		return err
	}
	if err := s.projects.Archive(ctx, projectID); err != nil {
		return err
	}
	s.audit.ProjectArchived(ctx, actor.ID, projectID)
	return nil
}

/* ----------------------------- participants ----------------------------- */

// AddUser makes a user a participant of a project with one project role.
// Investigators cascade into every existing work package of the project.
func (s *Service) AddUser(ctx context.Context, actor models.User, projectID, userID primitive.ObjectID, role string) (models.Participation, error) {
	if !models.IsProjectRole(role) {
		return models.Participation{}, faults.Validationf("%q is not a project role", role)
	}
	if _, err := s.activeProject(ctx, projectID); err != nil {
		return models.Participation{}, err
	}
	actorRole, err := projectpolicy.Require(ctx, s.db, s.matrix, actor, projectID, "add_participants")
	if err != nil {
		return models.Participation{}, err
	}
	if _, err := projectpolicy.RequireAssign(ctx, s.db, s.matrix, actor, projectID, role); err != nil {
		return models.Participation{}, err
	}

	// Without view_all_users the actor can only add users they already
	// share a project with, not strangers.
	if !s.matrix.Allows("view_all_users", actor.SystemRole, actorRole) {
		known, err := s.parts.SharesProject(ctx, actor.ID, userID)
		if err != nil {
			return models.Participation{}, err
		}
		if !known {
			return models.Participation{}, &faults.AuthorizationError{
				Permission: "view_all_users",
				Role:       actorRole,
			}
		}
	}

	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.Participation{}, err
	}
	if err := s.checkManagerRule(actor, target); err != nil {
		return models.Participation{}, err
	}

	var created models.Participation
	err = txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		created, err = s.parts.Create(ctx, models.Participation{
			ProjectID: projectID,
			UserID:    userID,
			Role:      role,
		})
		if errors.Is(err, participationstore.ErrAlreadyParticipant) {
			return faults.Validationf("the user is already a participant of this project")
		}
		if err != nil {
			return err
		}
		if role == models.RoleInvestigator {
			return s.cascadeInvestigator(ctx, created)
		}
		return nil
	})
	if err != nil {
		return models.Participation{}, err
	}
	s.audit.ParticipantAdded(ctx, actor.ID, projectID, userID, role)
	return created, nil
}

// cascadeInvestigator puts an investigator participation onto every
// existing work package of the project.
func (s *Service) cascadeInvestigator(ctx context.Context, p models.Participation) error {
	wps, err := s.wps.ListByProject(ctx, p.ProjectID)
	if err != nil {
		return err
	}
	for _, wp := range wps {
		_, err := s.parts.AddToWorkPackage(ctx, models.WorkPackageParticipation{
			WorkPackageID:   wp.ID,
			ParticipationID: p.ID,
			ProjectID:       p.ProjectID,
		})
		if err != nil && !errors.Is(err, participationstore.ErrAlreadyOnWorkPackage) {
			return err
		}
	}
	return nil
}

// RemoveUser removes a participant from a project, cascading out of every
// work package. Recorded opinions survive removal; a representative of a
// project dataset cannot be removed until replaced.
func (s *Service) RemoveUser(ctx context.Context, actor models.User, projectID, userID primitive.ObjectID) error {
	if _, err := s.activeProject(ctx, projectID); err != nil {
		return err
	}
	if _, err := projectpolicy.Require(ctx, s.db, s.matrix, actor, projectID, "remove_participants"); err != nil {
		return err
	}

	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.checkManagerRule(actor, target); err != nil {
		return err
	}

	p, err := s.parts.GetByProjectUser(ctx, projectID, userID)
	if errors.Is(err, participationstore.ErrNotFound) {
		return faults.Validationf("the user is not a participant of this project")
	}
	if err != nil {
		return err
	}

	// The user must not be the current representative of any project dataset.
	assocs, err := s.datasets.ListByProject(ctx, projectID)
	if err != nil {
		return err
	}
	for _, a := range assocs {
		if a.RepresentativeID == userID {
			return faults.Validationf("the user still represents a dataset on this project; assign a new representative first")
		}
	}

	err = txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		_, err := s.parts.Delete(ctx, p.ID)
		return err
	})
	if err != nil {
		return err
	}
	s.audit.ParticipantRemoved(ctx, actor.ID, projectID, userID)
	return nil
}

// checkManagerRule rejects one system manager editing another system
// manager's membership. Managers can still edit themselves.
func (s *Service) checkManagerRule(actor, target models.User) error {
	if actor.ID == target.ID {
		return nil
	}
	if actor.SystemRole == models.RoleSystemManager && target.SystemRole == models.RoleSystemManager {
		return faults.Validationf("a system manager cannot change another system manager's participation")
	}
	return nil
}

/* ------------------------------- datasets ------------------------------- */

// RegisterDataset creates a dataset record with a fresh external uuid.
func (s *Service) RegisterDataset(ctx context.Context, actor models.User, name string, defaultRepresentativeID primitive.ObjectID) (models.Dataset, error) {
	if err := projectpolicy.RequireGlobal(s.matrix, actor, "add_datasets"); err != nil {
		return models.Dataset{}, err
	}
	if name == "" {
		return models.Dataset{}, faults.Validationf("a dataset needs a name")
	}
	if _, err := s.users.GetByID(ctx, defaultRepresentativeID); err != nil {
		return models.Dataset{}, err
	}
	d, err := s.datasets.Create(ctx, models.Dataset{
		Name:                    name,
		DefaultRepresentativeID: defaultRepresentativeID,
	})
	if err != nil {
		return models.Dataset{}, err
	}
	s.audit.DatasetCreated(ctx, actor.ID, d.ID, d.UUID)
	return d, nil
}

// AddDataset associates a dataset with a project. The representative is
// promoted to a data provider representative participation when they are
// not yet a participant; a participant with any other role cannot also
// represent a dataset.
func (s *Service) AddDataset(ctx context.Context, actor models.User, projectID, datasetID, representativeID primitive.ObjectID) (models.ProjectDataset, error) {
	if _, err := s.activeProject(ctx, projectID); err != nil {
		return models.ProjectDataset{}, err
	}
	if _, err := projectpolicy.Require(ctx, s.db, s.matrix, actor, projectID, "add_datasets"); err != nil {
		return models.ProjectDataset{}, err
	}

	d, err := s.datasets.GetByID(ctx, datasetID)
	if err != nil {
		return models.ProjectDataset{}, err
	}
	if representativeID.IsZero() {
		representativeID = d.DefaultRepresentativeID
	}

	var assoc models.ProjectDataset
	err = txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		if err := s.ensureRepresentative(ctx, projectID, representativeID); err != nil {
			return err
		}
		assoc, err = s.datasets.Associate(ctx, projectID, datasetID, representativeID)
		if errors.Is(err, datasetstore.ErrAlreadyOnProject) {
			return faults.Validationf("the dataset is already associated with this project")
		}
		return err
	})
	if err != nil {
		return models.ProjectDataset{}, err
	}
	s.audit.DatasetAdded(ctx, actor.ID, projectID, datasetID, representativeID)
	return assoc, nil
}

// ensureRepresentative guarantees the user participates in the project
// with the representative role, promoting them when absent.
func (s *Service) ensureRepresentative(ctx context.Context, projectID, userID primitive.ObjectID) error {
	p, err := s.parts.GetByProjectUser(ctx, projectID, userID)
	switch {
	case errors.Is(err, participationstore.ErrNotFound):
		_, err = s.parts.Create(ctx, models.Participation{
			ProjectID: projectID,
			UserID:    userID,
			Role:      models.RoleDataProviderRepresentative,
		})
		return err
	case err != nil:
		return err
	case p.Role != models.RoleDataProviderRepresentative:
		return faults.Validationf("the chosen representative already participates as %s", models.RoleDisplayName(p.Role))
	}
	return nil
}

// RemoveDataset removes a dataset from a project. The dataset must not be
// used by any work package that has started classification; associations
// with work packages still in the new state are removed along the way.
func (s *Service) RemoveDataset(ctx context.Context, actor models.User, projectID, datasetID primitive.ObjectID) error {
	if _, err := s.activeProject(ctx, projectID); err != nil {
		return err
	}
	if _, err := projectpolicy.Require(ctx, s.db, s.matrix, actor, projectID, "remove_datasets"); err != nil {
		return err
	}

	n, err := s.wps.CountUsingDataset(ctx, datasetID)
	if err != nil {
		return err
	}
	if n > 0 {
		return faults.Statef("the dataset is used by a work package that has started classification")
	}

	err = txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		wps, err := s.wps.ListByProject(ctx, projectID)
		if err != nil {
			return err
		}
		for _, wp := range wps {
			if _, err := s.wps.RemoveDataset(ctx, wp.ID, datasetID); err != nil {
				return err
			}
		}
		n, err := s.datasets.Dissociate(ctx, projectID, datasetID)
		if err != nil {
			return err
		}
		if n == 0 {
			return faults.Validationf("the dataset is not associated with this project")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.audit.DatasetRemoved(ctx, actor.ID, projectID, datasetID)
	return nil
}

// UpdateRepresentative replaces the per-project representative of a
// dataset. Approvals already granted by the outgoing representative stop
// counting, since readiness requires approval by the dataset's current
// representative; affected participants must be re-approved.
func (s *Service) UpdateRepresentative(ctx context.Context, actor models.User, projectID, datasetID, representativeID primitive.ObjectID) error {
	if _, err := s.activeProject(ctx, projectID); err != nil {
		return err
	}
	if _, err := projectpolicy.Require(ctx, s.db, s.matrix, actor, projectID, "edit_datasets"); err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, representativeID); err != nil {
		return err
	}

	err := txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		if _, err := s.datasets.GetAssociation(ctx, projectID, datasetID); err != nil {
			if errors.Is(err, datasetstore.ErrAssociationNotFound) {
				return faults.Validationf("the dataset is not associated with this project")
			}
			return err
		}
		if err := s.ensureRepresentative(ctx, projectID, representativeID); err != nil {
			return err
		}
		return s.datasets.UpdateRepresentative(ctx, projectID, datasetID, representativeID)
	})
	if err != nil {
		return err
	}
	s.audit.RepresentativeChanged(ctx, actor.ID, projectID, datasetID, representativeID)
	return nil
}

/* ----------------------------- work packages ---------------------------- */

// AddWorkPackage creates a work package in the new state and cascades
// every existing investigator of the project into it.
func (s *Service) AddWorkPackage(ctx context.Context, actor models.User, projectID primitive.ObjectID, name, description string) (models.WorkPackage, error) {
	if _, err := s.activeProject(ctx, projectID); err != nil {
		return models.WorkPackage{}, err
	}
	if _, err := projectpolicy.Require(ctx, s.db, s.matrix, actor, projectID, "add_work_package"); err != nil {
		return models.WorkPackage{}, err
	}
	if name == "" {
		return models.WorkPackage{}, faults.Validationf("a work package needs a name")
	}

	var wp models.WorkPackage
	err := txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		var err error
		wp, err = s.wps.Create(ctx, models.WorkPackage{
			ProjectID:   projectID,
			Name:        name,
			Description: description,
		})
		if err != nil {
			return err
		}

		participants, err := s.parts.ListByProject(ctx, projectID)
		if err != nil {
			return err
		}
		for _, p := range participants {
			if p.Role != models.RoleInvestigator {
				continue
			}
			_, err := s.parts.AddToWorkPackage(ctx, models.WorkPackageParticipation{
				WorkPackageID:   wp.ID,
				ParticipationID: p.ID,
				ProjectID:       projectID,
			})
			if err != nil && !errors.Is(err, participationstore.ErrAlreadyOnWorkPackage) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.WorkPackage{}, err
	}
	s.audit.WorkPackageCreated(ctx, actor.ID, projectID, wp.ID, wp.Name)
	return wp, nil
}

// EditWorkPackage updates name and description, allowed only while new.
func (s *Service) EditWorkPackage(ctx context.Context, actor models.User, wpID primitive.ObjectID, name, description string) error {
	wp, err := s.wps.GetByID(ctx, wpID)
	if err != nil {
		return err
	}
	if _, err := s.activeProject(ctx, wp.ProjectID); err != nil {
		return err
	}
	if _, err := wppolicy.Require(ctx, s.db, s.matrix, actor, wp, "edit_work_package"); err != nil {
		return err
	}
	if err := s.wps.UpdateInfo(ctx, wpID, name, description); err != nil {
		return err
	}
	s.audit.WorkPackageUpdated(ctx, actor.ID, wp.ProjectID, wpID)
	return nil
}

// DeleteWorkPackage deletes a work package, allowed only while new.
func (s *Service) DeleteWorkPackage(ctx context.Context, actor models.User, wpID primitive.ObjectID) error {
	wp, err := s.wps.GetByID(ctx, wpID)
	if err != nil {
		return err
	}
	if _, err := s.activeProject(ctx, wp.ProjectID); err != nil {
		return err
	}
	if _, err := wppolicy.Require(ctx, s.db, s.matrix, actor, wp, "delete_work_package"); err != nil {
		return err
	}
	if _, err := s.wps.Delete(ctx, wpID); err != nil {
		return err
	}
	s.audit.WorkPackageDeleted(ctx, actor.ID, wp.ProjectID, wpID)
	return nil
}

// AddUserToWorkPackage puts an existing project participant onto a work
// package.
func (s *Service) AddUserToWorkPackage(ctx context.Context, actor models.User, wpID, userID primitive.ObjectID) (models.WorkPackageParticipation, error) {
	wp, err := s.wps.GetByID(ctx, wpID)
	if err != nil {
		return models.WorkPackageParticipation{}, err
	}
	if _, err := s.activeProject(ctx, wp.ProjectID); err != nil {
		return models.WorkPackageParticipation{}, err
	}
	if _, err := projectpolicy.Require(ctx, s.db, s.matrix, actor, wp.ProjectID, "add_participants"); err != nil {
		return models.WorkPackageParticipation{}, err
	}

	p, err := s.parts.GetByProjectUser(ctx, wp.ProjectID, userID)
	if errors.Is(err, participationstore.ErrNotFound) {
		return models.WorkPackageParticipation{}, faults.Validationf("the user must join the project before joining its work packages")
	}
	if err != nil {
		return models.WorkPackageParticipation{}, err
	}

	wpp, err := s.parts.AddToWorkPackage(ctx, models.WorkPackageParticipation{
		WorkPackageID:   wpID,
		ParticipationID: p.ID,
		ProjectID:       wp.ProjectID,
	})
	if errors.Is(err, participationstore.ErrAlreadyOnWorkPackage) {
		return models.WorkPackageParticipation{}, faults.Validationf("the user is already on this work package")
	}
	if err != nil {
		return models.WorkPackageParticipation{}, err
	}
	s.audit.WorkPackageMemberAdded(ctx, actor.ID, wp.ProjectID, wpID, userID)
	return wpp, nil
}

// RemoveUserFromWorkPackage takes a participant off a work package. Their
// approvals on this work package are withdrawn; a recorded opinion stays.
func (s *Service) RemoveUserFromWorkPackage(ctx context.Context, actor models.User, wpID, userID primitive.ObjectID) error {
	wp, err := s.wps.GetByID(ctx, wpID)
	if err != nil {
		return err
	}
	if _, err := s.activeProject(ctx, wp.ProjectID); err != nil {
		return err
	}
	if _, err := projectpolicy.Require(ctx, s.db, s.matrix, actor, wp.ProjectID, "remove_participants"); err != nil {
		return err
	}

	p, err := s.parts.GetByProjectUser(ctx, wp.ProjectID, userID)
	if errors.Is(err, participationstore.ErrNotFound) {
		return faults.Validationf("the user is not a participant of this project")
	}
	if err != nil {
		return err
	}

	err = txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		wpp, err := s.parts.GetWorkPackageParticipation(ctx, wpID, p.ID)
		if errors.Is(err, participationstore.ErrNotFound) {
			return faults.Validationf("the user is not on this work package")
		}
		if err != nil {
			return err
		}
		if _, err := s.approvals.DeleteByParticipation(ctx, wpp.ID); err != nil {
			return err
		}
		_, err = s.parts.RemoveFromWorkPackage(ctx, wpID, p.ID)
		return err
	})
	if err != nil {
		return err
	}
	s.audit.WorkPackageMemberRemoved(ctx, actor.ID, wp.ProjectID, wpID, userID)
	return nil
}

// AddDatasetToWorkPackage attaches one of the project's datasets to a work
// package, allowed only while the work package is new.
func (s *Service) AddDatasetToWorkPackage(ctx context.Context, actor models.User, wpID, datasetID primitive.ObjectID) (models.WorkPackageDataset, error) {
	wp, err := s.wps.GetByID(ctx, wpID)
	if err != nil {
		return models.WorkPackageDataset{}, err
	}
	if _, err := s.activeProject(ctx, wp.ProjectID); err != nil {
		return models.WorkPackageDataset{}, err
	}
	if _, err := wppolicy.Require(ctx, s.db, s.matrix, actor, wp, "edit_work_package"); err != nil {
		return models.WorkPackageDataset{}, err
	}

	if _, err := s.datasets.GetAssociation(ctx, wp.ProjectID, datasetID); err != nil {
		if errors.Is(err, datasetstore.ErrAssociationNotFound) {
			return models.WorkPackageDataset{}, faults.Validationf("the dataset must be associated with the project before its work packages can use it")
		}
		return models.WorkPackageDataset{}, err
	}

	wpd, err := s.wps.AddDataset(ctx, models.WorkPackageDataset{
		WorkPackageID: wpID,
		ProjectID:     wp.ProjectID,
		DatasetID:     datasetID,
	})
	if errors.Is(err, wpstore.ErrDatasetAlreadyAdded) {
		return models.WorkPackageDataset{}, faults.Validationf("the dataset is already on this work package")
	}
	if err != nil {
		return models.WorkPackageDataset{}, err
	}
	s.audit.WorkPackageDatasetAdded(ctx, actor.ID, wp.ProjectID, wpID, datasetID)
	return wpd, nil
}

// RemoveDatasetFromWorkPackage detaches a dataset, allowed only while new.
func (s *Service) RemoveDatasetFromWorkPackage(ctx context.Context, actor models.User, wpID, datasetID primitive.ObjectID) error {
	wp, err := s.wps.GetByID(ctx, wpID)
	if err != nil {
		return err
	}
	if _, err := s.activeProject(ctx, wp.ProjectID); err != nil {
		return err
	}
	if _, err := wppolicy.Require(ctx, s.db, s.matrix, actor, wp, "edit_work_package"); err != nil {
		return err
	}
	n, err := s.wps.RemoveDataset(ctx, wpID, datasetID)
	if err != nil {
		return err
	}
	if n == 0 {
		return faults.Validationf("the dataset is not on this work package")
	}
	s.audit.WorkPackageDatasetRemoved(ctx, actor.ID, wp.ProjectID, wpID, datasetID)
	return nil
}

/* -------------------------------- users --------------------------------- */

// CreateUser registers an account mirrored from the identity provider.
func (s *Service) CreateUser(ctx context.Context, fullName, email, systemRole string) (models.User, error) {
	if email == "" {
		return models.User{}, faults.Validationf("a user needs an email")
	}
	if !validSystemRole(systemRole) {
		return models.User{}, faults.Validationf("%q is not a system role", systemRole)
	}
	u, err := s.users.Create(ctx, models.User{
		FullName:   fullName,
		Email:      email,
		SystemRole: systemRole,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		return models.User{}, faults.Validationf("a user with email %q already exists", email)
	}
	return u, err
}

// SetSystemRole grants or removes an account-wide role. The matrix decides
// who may grant what; nobody can grant system manager this way.
func (s *Service) SetSystemRole(ctx context.Context, actor models.User, userID primitive.ObjectID, role string) error {
	if !validSystemRole(role) {
		return faults.Validationf("%q is not a system role", role)
	}
	if role != models.RoleNone && !s.matrix.CanAssign(actor.SystemRole, "", role) {
		return &faults.AuthorizationError{Permission: "assign_" + role, Role: actor.SystemRole}
	}
	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.checkManagerRule(actor, target); err != nil {
		return err
	}
	if err := s.users.SetSystemRole(ctx, userID, role); err != nil {
		return err
	}
	s.audit.UserRoleChanged(ctx, actor.ID, userID, role)
	return nil
}

func validSystemRole(role string) bool {
	for _, r := range models.SystemRoles {
		if r == role {
			return true
		}
	}
	return false
}
