// internal/app/system/authz/matrix.go

// Package authz holds the declarative permission matrix consulted by every
// mutating entry point in the core.
//
// The matrix is a dense decision table loaded once at startup from an
// embedded YAML resource. Rows are permission verbs; columns are the union
// of system roles and project roles, plus work-package states for
// state-scoped verbs. Keeping the table in one resource (rather than
// scattered guards) lets a test prove the table is total.
package authz

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/dalemusser/tierhub/internal/domain/models"
	"gopkg.in/yaml.v3"
)

//go:embed matrix.yaml
var matrixYAML []byte

// roleColumns is every column a permission row must define.
var roleColumns = []string{
	models.RoleSystemManager,
	models.RoleProgrammeManager,
	"none",
	models.RoleProjectManager,
	models.RoleDataProviderRepresentative,
	models.RoleInvestigator,
	models.RoleReferee,
	models.RoleResearcher,
}

// stateColumns is every state a state-scoped row must define.
var stateColumns = []string{
	models.StateNew,
	models.StateUnderway,
	models.StateClassified,
}

type matrixRow struct {
	Roles  map[string]bool `yaml:"roles"`
	States map[string]bool `yaml:"states,omitempty"`
}

type matrixFile struct {
	Permissions map[string]matrixRow `yaml:"permissions"`
}

// Matrix is the parsed permission table.
type Matrix struct {
	rows map[string]matrixRow
}

// Parse decodes a matrix resource and verifies that every row is total:
// each permission defines every role column, and state-scoped permissions
// define every work-package state.
func Parse(data []byte) (*Matrix, error) {
	var f matrixFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse permission matrix: %w", err)
	}
	if len(f.Permissions) == 0 {
		return nil, fmt.Errorf("permission matrix is empty")
	}
	for perm, row := range f.Permissions {
		for _, col := range roleColumns {
			if _, ok := row.Roles[col]; !ok {
				return nil, fmt.Errorf("permission %q: missing role column %q", perm, col)
			}
		}
		if len(row.Roles) != len(roleColumns) {
			return nil, fmt.Errorf("permission %q: unknown role column present", perm)
		}
		if row.States != nil {
			for _, st := range stateColumns {
				if _, ok := row.States[st]; !ok {
					return nil, fmt.Errorf("permission %q: missing state column %q", perm, st)
				}
			}
			if len(row.States) != len(stateColumns) {
				return nil, fmt.Errorf("permission %q: unknown state column present", perm)
			}
		}
	}
	return &Matrix{rows: f.Permissions}, nil
}

// Load parses the embedded matrix resource. It panics on a malformed
// resource, which can only mean a build-time defect.
func Load() *Matrix {
	m, err := Parse(matrixYAML)
	if err != nil {
		panic(err)
	}
	return m
}

// normalizeSystem maps the empty system role token onto the "none" column.
func normalizeSystem(systemRole string) string {
	if systemRole == models.RoleNone {
		return "none"
	}
	return systemRole
}

// Allows reports whether a user with the given system role and project role
// (either may be empty) may perform the permission verb. Unknown verbs are
// always denied.
func (m *Matrix) Allows(perm, systemRole, projectRole string) bool {
	row, ok := m.rows[perm]
	if !ok {
		return false
	}
	if row.Roles[normalizeSystem(systemRole)] {
		return true
	}
	if projectRole != "" && row.Roles[projectRole] {
		return true
	}
	return false
}

// AllowsInState is Allows plus the work-package state check for
// state-scoped verbs. Verbs with no states row ignore the state argument.
func (m *Matrix) AllowsInState(perm, systemRole, projectRole, state string) bool {
	row, ok := m.rows[perm]
	if !ok {
		return false
	}
	if row.States != nil && !row.States[state] {
		return false
	}
	return m.Allows(perm, systemRole, projectRole)
}

// CanAssign reports whether an actor with the given roles may assign the
// target role to a participant. The rule is purely declarative: the
// assign_<role> row decides, and the assign_system_manager row is all
// false.
func (m *Matrix) CanAssign(systemRole, projectRole, targetRole string) bool {
	return m.Allows("assign_"+targetRole, systemRole, projectRole)
}

// StateScoped reports whether the verb carries a work-package states row.
func (m *Matrix) StateScoped(perm string) bool {
	row, ok := m.rows[perm]
	return ok && row.States != nil
}

// Permissions returns the sorted list of verbs in the table.
func (m *Matrix) Permissions() []string {
	perms := make([]string, 0, len(m.rows))
	for p := range m.rows {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return perms
}

// RoleColumns returns the column tokens every row defines, in table order.
func RoleColumns() []string {
	cols := make([]string, len(roleColumns))
	copy(cols, roleColumns)
	return cols
}
