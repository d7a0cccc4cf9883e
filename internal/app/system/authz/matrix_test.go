package authz

import (
	"testing"

	"github.com/dalemusser/tierhub/internal/domain/models"
)

func TestLoad_TableIsTotal(t *testing.T) {
	m := Load()
	for _, perm := range m.Permissions() {
		for _, col := range RoleColumns() {
			// Allows must give a definite answer for every cell; a missing
			// column would have failed Parse already, so this just proves
			// lookups never panic across the whole table.
			_ = m.Allows(perm, "", col)
		}
	}
}

func TestParse_RejectsPartialRows(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty file", `permissions: {}`},
		{"missing role column", `
permissions:
  create_projects:
    roles: {system_manager: true}
`},
		{"unknown role column", `
permissions:
  create_projects:
    roles: {system_manager: true, programme_manager: true, none: false, project_manager: false, data_provider_representative: false, investigator: false, referee: false, researcher: false, stranger: true}
`},
		{"missing state column", `
permissions:
  classify_data:
    roles: {system_manager: false, programme_manager: false, none: false, project_manager: false, data_provider_representative: true, investigator: true, referee: true, researcher: false}
    states: {underway: true}
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.in)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestAllows(t *testing.T) {
	m := Load()

	cases := []struct {
		perm        string
		systemRole  string
		projectRole string
		want        bool
	}{
		{"create_projects", models.RoleSystemManager, "", true},
		{"create_projects", models.RoleProgrammeManager, "", true},
		{"create_projects", "", models.RoleProjectManager, false},
		{"create_projects", "", "", false},

		// System managers never classify; the classifying roles do.
		{"classify_data", models.RoleSystemManager, "", false},
		{"classify_data", "", models.RoleDataProviderRepresentative, true},
		{"classify_data", "", models.RoleInvestigator, true},
		{"classify_data", "", models.RoleReferee, true},
		{"classify_data", "", models.RoleResearcher, false},

		// Either role suffices.
		{"add_participants", models.RoleSystemManager, models.RoleResearcher, true},
		{"add_participants", "", models.RoleInvestigator, true},

		// Only representatives approve.
		{"approve_participants", models.RoleSystemManager, "", false},
		{"approve_participants", "", models.RoleDataProviderRepresentative, true},

		{"no_such_verb", models.RoleSystemManager, "", false},
	}
	for _, tc := range cases {
		if got := m.Allows(tc.perm, tc.systemRole, tc.projectRole); got != tc.want {
			t.Errorf("Allows(%q, %q, %q) = %v, want %v",
				tc.perm, tc.systemRole, tc.projectRole, got, tc.want)
		}
	}
}

func TestAllowsInState(t *testing.T) {
	m := Load()

	cases := []struct {
		perm        string
		projectRole string
		state       string
		want        bool
	}{
		{"classify_data", models.RoleInvestigator, models.StateUnderway, true},
		{"classify_data", models.RoleInvestigator, models.StateNew, false},
		{"classify_data", models.RoleInvestigator, models.StateClassified, false},

		{"edit_work_package", models.RoleProjectManager, models.StateNew, true},
		{"edit_work_package", models.RoleProjectManager, models.StateUnderway, false},

		{"open_classification", models.RoleProjectManager, models.StateNew, true},
		{"open_classification", models.RoleProjectManager, models.StateUnderway, false},

		{"close_classification", models.RoleProjectManager, models.StateUnderway, true},
		{"close_classification", models.RoleProjectManager, models.StateClassified, false},
	}
	for _, tc := range cases {
		if got := m.AllowsInState(tc.perm, "", tc.projectRole, tc.state); got != tc.want {
			t.Errorf("AllowsInState(%q, %q, %q) = %v, want %v",
				tc.perm, tc.projectRole, tc.state, got, tc.want)
		}
	}

	// Verbs without a states row ignore the state argument.
	if !m.AllowsInState("add_participants", "", models.RoleProjectManager, models.StateClassified) {
		t.Error("add_participants should ignore work-package state")
	}
}

func TestCanAssign(t *testing.T) {
	m := Load()

	// No role, not even system manager, may mint another system manager.
	for _, sys := range models.SystemRoles {
		if m.CanAssign(sys, "", models.RoleSystemManager) {
			t.Errorf("system role %q must not assign system_manager", sys)
		}
	}

	if !m.CanAssign(models.RoleSystemManager, "", models.RoleInvestigator) {
		t.Error("system manager should assign investigator")
	}
	if !m.CanAssign("", models.RoleProjectManager, models.RoleResearcher) {
		t.Error("project manager should assign researcher")
	}
	if m.CanAssign("", models.RoleResearcher, models.RoleResearcher) {
		t.Error("researcher must not assign roles")
	}
}

func TestStateScoped(t *testing.T) {
	m := Load()
	if !m.StateScoped("classify_data") {
		t.Error("classify_data should be state scoped")
	}
	if m.StateScoped("create_projects") {
		t.Error("create_projects should not be state scoped")
	}
}
