package membership_test

import (
	"errors"
	"testing"

	"github.com/dalemusser/tierhub/internal/app/store/participations"
	"github.com/dalemusser/tierhub/internal/app/system/authz"
	"github.com/dalemusser/tierhub/internal/app/system/faults"
	"github.com/dalemusser/tierhub/internal/app/system/membership"
	"github.com/dalemusser/tierhub/internal/domain/models"
	"github.com/dalemusser/tierhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func newService(t *testing.T, db *mongo.Database) *membership.Service {
	t.Helper()
	return membership.New(db, db.Client(), authz.Load(), nil)
}

func TestCreateProject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sm := f.CreateSystemManager(ctx, "Sam Manager", "sm@example.org")

	p, err := svc.CreateProject(ctx, sm, "Glacier Melt Survey", "ice cores", []string{"polar"})
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if p.ID.IsZero() {
		t.Error("expected an id to be assigned")
	}
	if p.NameCI != "glacier melt survey" {
		t.Errorf("expected folded name, got %q", p.NameCI)
	}

	// Duplicate name is a validation error, not an internal one.
	_, err = svc.CreateProject(ctx, sm, "Glacier Melt Survey", "", nil)
	var ve *faults.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for duplicate name, got %v", err)
	}
}

func TestCreateProject_RequiresSystemRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	nobody := f.CreateUser(ctx, "Norah Body", "nb@example.org", models.RoleNone)

	_, err := svc.CreateProject(ctx, nobody, "Sneaky Project", "", nil)
	var ae *faults.AuthorizationError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
}

func TestAddUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sm := f.CreateSystemManager(ctx, "Sam Manager", "sm@example.org")
	ira := f.CreateUser(ctx, "Ira Vest", "ira@example.org", models.RoleNone)
	project := f.CreateProject(ctx, "Glacier Melt Survey")

	p, err := svc.AddUser(ctx, sm, project.ID, ira.ID, models.RoleInvestigator)
	if err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}
	if p.Role != models.RoleInvestigator {
		t.Errorf("expected investigator, got %q", p.Role)
	}

	// Adding the same user twice is rejected.
	_, err = svc.AddUser(ctx, sm, project.ID, ira.ID, models.RoleResearcher)
	var ve *faults.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for duplicate participant, got %v", err)
	}
}

func TestAddUser_StrangerRule(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ira := f.CreateUser(ctx, "Ira Vest", "ira@example.org", models.RoleNone)
	sue := f.CreateUser(ctx, "Sue Stranger", "sue@example.org", models.RoleNone)
	project := f.CreateProject(ctx, "Glacier Melt Survey")
	f.CreateParticipation(ctx, project.ID, ira.ID, models.RoleInvestigator)

	// An investigator may add participants but cannot see all users, so a
	// user sharing no project with them is off limits.
	_, err := svc.AddUser(ctx, ira, project.ID, sue.ID, models.RoleResearcher)
	var ae *faults.AuthorizationError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthorizationError for stranger, got %v", err)
	}

	// Once they share a project, the same add succeeds.
	other := f.CreateProject(ctx, "Permafrost Archive")
	f.CreateParticipation(ctx, other.ID, ira.ID, models.RoleResearcher)
	f.CreateParticipation(ctx, other.ID, sue.ID, models.RoleResearcher)

	p, err := svc.AddUser(ctx, ira, project.ID, sue.ID, models.RoleResearcher)
	if err != nil {
		t.Fatalf("AddUser failed for a known user: %v", err)
	}
	if p.Role != models.RoleResearcher {
		t.Errorf("expected researcher, got %q", p.Role)
	}
}

func TestAddUser_InvalidRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sm := f.CreateSystemManager(ctx, "Sam Manager", "sm@example.org")
	u := f.CreateUser(ctx, "Uma User", "uma@example.org", models.RoleNone)
	project := f.CreateProject(ctx, "Glacier Melt Survey")

	_, err := svc.AddUser(ctx, sm, project.ID, u.ID, "system_manager")
	var ve *faults.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for non-project role, got %v", err)
	}
}

func TestAddUser_ArchivedProject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sm := f.CreateSystemManager(ctx, "Sam Manager", "sm@example.org")
	u := f.CreateUser(ctx, "Uma User", "uma@example.org", models.RoleNone)
	project := f.CreateArchivedProject(ctx, "Old Survey")

	_, err := svc.AddUser(ctx, sm, project.ID, u.ID, models.RoleResearcher)
	var se *faults.StateError
	if !errors.As(err, &se) {
		t.Fatalf("expected StateError for archived project, got %v", err)
	}
}

func TestAddUser_ManagerCannotEditManager(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sm1 := f.CreateSystemManager(ctx, "Sam One", "sm1@example.org")
	sm2 := f.CreateSystemManager(ctx, "Sam Two", "sm2@example.org")
	project := f.CreateProject(ctx, "Glacier Melt Survey")

	_, err := svc.AddUser(ctx, sm1, project.ID, sm2.ID, models.RoleResearcher)
	var ve *faults.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	// A manager may still edit their own participation.
	if _, err := svc.AddUser(ctx, sm1, project.ID, sm1.ID, models.RoleResearcher); err != nil {
		t.Fatalf("self add failed: %v", err)
	}
}

func TestAddUser_InvestigatorCascadesIntoWorkPackages(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sm := f.CreateSystemManager(ctx, "Sam Manager", "sm@example.org")
	ira := f.CreateUser(ctx, "Ira Vest", "ira@example.org", models.RoleNone)
	project := f.CreateProject(ctx, "Glacier Melt Survey")
	wp1 := f.CreateWorkPackage(ctx, project.ID, "Cores 2025", models.StateNew)
	wp2 := f.CreateWorkPackage(ctx, project.ID, "Cores 2026", models.StateNew)

	p, err := svc.AddUser(ctx, sm, project.ID, ira.ID, models.RoleInvestigator)
	if err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}

	parts := participationstore.New(db)
	for _, wp := range []models.WorkPackage{wp1, wp2} {
		if _, err := parts.GetWorkPackageParticipation(ctx, wp.ID, p.ID); err != nil {
			t.Errorf("expected investigator on work package %s: %v", wp.Name, err)
		}
	}
}

func TestAddWorkPackage_PullsInExistingInvestigators(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sm := f.CreateSystemManager(ctx, "Sam Manager", "sm@example.org")
	ira := f.CreateUser(ctx, "Ira Vest", "ira@example.org", models.RoleNone)
	ref := f.CreateUser(ctx, "Rene Feree", "rf@example.org", models.RoleNone)
	project := f.CreateProject(ctx, "Glacier Melt Survey")
	ip := f.CreateParticipation(ctx, project.ID, ira.ID, models.RoleInvestigator)
	rp := f.CreateParticipation(ctx, project.ID, ref.ID, models.RoleReferee)

	wp, err := svc.AddWorkPackage(ctx, sm, project.ID, "Cores 2025", "")
	if err != nil {
		t.Fatalf("AddWorkPackage failed: %v", err)
	}
	if wp.State != models.StateNew {
		t.Errorf("expected new state, got %q", wp.State)
	}

	parts := participationstore.New(db)
	if _, err := parts.GetWorkPackageParticipation(ctx, wp.ID, ip.ID); err != nil {
		t.Errorf("expected investigator pulled into the new work package: %v", err)
	}
	if _, err := parts.GetWorkPackageParticipation(ctx, wp.ID, rp.ID); !errors.Is(err, participationstore.ErrNotFound) {
		t.Errorf("referee should not be cascaded, got %v", err)
	}
}

func TestRemoveUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sm := f.CreateSystemManager(ctx, "Sam Manager", "sm@example.org")
	u := f.CreateUser(ctx, "Uma User", "uma@example.org", models.RoleNone)
	project := f.CreateProject(ctx, "Glacier Melt Survey")
	p := f.CreateParticipation(ctx, project.ID, u.ID, models.RoleResearcher)
	wp := f.CreateWorkPackage(ctx, project.ID, "Cores 2025", models.StateNew)
	f.CreateWorkPackageParticipation(ctx, wp.ID, p)

	if err := svc.RemoveUser(ctx, sm, project.ID, u.ID); err != nil {
		t.Fatalf("RemoveUser failed: %v", err)
	}

	// Work package membership goes with the participation.
	n, err := db.Collection("work_package_participations").
		CountDocuments(ctx, bson.M{"participation_id": p.ID})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected work package memberships removed, found %d", n)
	}
}

func TestRemoveUser_BlockedWhileRepresenting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sm := f.CreateSystemManager(ctx, "Sam Manager", "sm@example.org")
	rep := f.CreateUser(ctx, "Dana Rep", "dr@example.org", models.RoleNone)
	project := f.CreateProject(ctx, "Glacier Melt Survey")
	f.CreateParticipation(ctx, project.ID, rep.ID, models.RoleDataProviderRepresentative)
	ds := f.CreateDataset(ctx, "Ice Cores", rep.ID)
	f.CreateProjectDataset(ctx, project.ID, ds.ID, rep.ID)

	err := svc.RemoveUser(ctx, sm, project.ID, rep.ID)
	var ve *faults.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError while representing a dataset, got %v", err)
	}
}

func TestAddDataset_PromotesRepresentative(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sm := f.CreateSystemManager(ctx, "Sam Manager", "sm@example.org")
	rep := f.CreateUser(ctx, "Dana Rep", "dr@example.org", models.RoleNone)
	project := f.CreateProject(ctx, "Glacier Melt Survey")
	ds := f.CreateDataset(ctx, "Ice Cores", rep.ID)

	// The representative is not yet a participant; the default
	// representative from the dataset record is promoted in.
	assoc, err := svc.AddDataset(ctx, sm, project.ID, ds.ID, primitive.NilObjectID)
	if err != nil {
		t.Fatalf("AddDataset failed: %v", err)
	}
	if assoc.RepresentativeID != rep.ID {
		t.Errorf("expected default representative, got %s", assoc.RepresentativeID.Hex())
	}

	parts := participationstore.New(db)
	p, err := parts.GetByProjectUser(ctx, project.ID, rep.ID)
	if err != nil {
		t.Fatalf("expected the representative to be promoted in: %v", err)
	}
	if p.Role != models.RoleDataProviderRepresentative {
		t.Errorf("expected representative role, got %q", p.Role)
	}
}

func TestAddDataset_RoleConflict(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sm := f.CreateSystemManager(ctx, "Sam Manager", "sm@example.org")
	rep := f.CreateUser(ctx, "Dana Rep", "dr@example.org", models.RoleNone)
	project := f.CreateProject(ctx, "Glacier Melt Survey")
	// The chosen representative already participates with another role.
	f.CreateParticipation(ctx, project.ID, rep.ID, models.RoleInvestigator)
	ds := f.CreateDataset(ctx, "Ice Cores", rep.ID)

	_, err := svc.AddDataset(ctx, sm, project.ID, ds.ID, rep.ID)
	var ve *faults.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for role conflict, got %v", err)
	}
}

func TestRemoveDataset_BlockedByStartedWorkPackage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sm := f.CreateSystemManager(ctx, "Sam Manager", "sm@example.org")
	rep := f.CreateUser(ctx, "Dana Rep", "dr@example.org", models.RoleNone)
	project := f.CreateProject(ctx, "Glacier Melt Survey")
	f.CreateParticipation(ctx, project.ID, rep.ID, models.RoleDataProviderRepresentative)
	ds := f.CreateDataset(ctx, "Ice Cores", rep.ID)
	f.CreateProjectDataset(ctx, project.ID, ds.ID, rep.ID)
	wp := f.CreateWorkPackage(ctx, project.ID, "Cores 2025", models.StateUnderway)
	f.CreateWorkPackageDataset(ctx, wp.ID, project.ID, ds.ID)

	err := svc.RemoveDataset(ctx, sm, project.ID, ds.ID)
	var se *faults.StateError
	if !errors.As(err, &se) {
		t.Fatalf("expected StateError while a work package is underway, got %v", err)
	}
}

func TestRemoveDataset_CleansUpNewWorkPackages(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sm := f.CreateSystemManager(ctx, "Sam Manager", "sm@example.org")
	rep := f.CreateUser(ctx, "Dana Rep", "dr@example.org", models.RoleNone)
	project := f.CreateProject(ctx, "Glacier Melt Survey")
	f.CreateParticipation(ctx, project.ID, rep.ID, models.RoleDataProviderRepresentative)
	ds := f.CreateDataset(ctx, "Ice Cores", rep.ID)
	f.CreateProjectDataset(ctx, project.ID, ds.ID, rep.ID)
	wp := f.CreateWorkPackage(ctx, project.ID, "Cores 2025", models.StateNew)
	f.CreateWorkPackageDataset(ctx, wp.ID, project.ID, ds.ID)

	if err := svc.RemoveDataset(ctx, sm, project.ID, ds.ID); err != nil {
		t.Fatalf("RemoveDataset failed: %v", err)
	}

	n, err := db.Collection("work_package_datasets").
		CountDocuments(ctx, bson.M{"dataset_id": ds.ID})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected the dataset removed from new work packages, found %d", n)
	}
}

func TestAddUserToWorkPackage_RequiresProjectMembership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sm := f.CreateSystemManager(ctx, "Sam Manager", "sm@example.org")
	outsider := f.CreateUser(ctx, "Otto Sider", "os@example.org", models.RoleNone)
	project := f.CreateProject(ctx, "Glacier Melt Survey")
	wp := f.CreateWorkPackage(ctx, project.ID, "Cores 2025", models.StateNew)

	_, err := svc.AddUserToWorkPackage(ctx, sm, wp.ID, outsider.ID)
	var ve *faults.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for non-participant, got %v", err)
	}
}

func TestAddDatasetToWorkPackage_RequiresProjectAssociation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sm := f.CreateSystemManager(ctx, "Sam Manager", "sm@example.org")
	rep := f.CreateUser(ctx, "Dana Rep", "dr@example.org", models.RoleNone)
	project := f.CreateProject(ctx, "Glacier Melt Survey")
	ds := f.CreateDataset(ctx, "Ice Cores", rep.ID)
	wp := f.CreateWorkPackage(ctx, project.ID, "Cores 2025", models.StateNew)

	_, err := svc.AddDatasetToWorkPackage(ctx, sm, wp.ID, ds.ID)
	var ve *faults.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for unassociated dataset, got %v", err)
	}
}

func TestEditWorkPackage_BlockedOnceUnderway(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sm := f.CreateSystemManager(ctx, "Sam Manager", "sm@example.org")
	project := f.CreateProject(ctx, "Glacier Melt Survey")
	wp := f.CreateWorkPackage(ctx, project.ID, "Cores 2025", models.StateUnderway)

	err := svc.EditWorkPackage(ctx, sm, wp.ID, "Cores 2025 v2", "")
	var se *faults.StateError
	if !errors.As(err, &se) {
		t.Fatalf("expected StateError once underway, got %v", err)
	}
}

func TestDeleteWorkPackage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sm := f.CreateSystemManager(ctx, "Sam Manager", "sm@example.org")
	project := f.CreateProject(ctx, "Glacier Melt Survey")
	wp := f.CreateWorkPackage(ctx, project.ID, "Cores 2025", models.StateNew)

	if err := svc.DeleteWorkPackage(ctx, sm, wp.ID); err != nil {
		t.Fatalf("DeleteWorkPackage failed: %v", err)
	}

	n, err := db.Collection("work_packages").CountDocuments(ctx, bson.M{"_id": wp.ID})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Error("expected the work package to be gone")
	}
}

func TestSetSystemRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sm := f.CreateSystemManager(ctx, "Sam Manager", "sm@example.org")
	u := f.CreateUser(ctx, "Uma User", "uma@example.org", models.RoleNone)

	if err := svc.SetSystemRole(ctx, sm, u.ID, models.RoleProgrammeManager); err != nil {
		t.Fatalf("SetSystemRole failed: %v", err)
	}

	// Nobody can grant system manager through role assignment.
	err := svc.SetSystemRole(ctx, sm, u.ID, models.RoleSystemManager)
	var ae *faults.AuthorizationError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthorizationError granting system manager, got %v", err)
	}
}
