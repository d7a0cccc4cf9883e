// internal/app/policy/wppolicy/wppolicy.go

// Package wppolicy checks permissions that are scoped to a work package and
// its lifecycle state. Verbs with a states row in the matrix (edit, delete,
// classify) are refused outright in the wrong state regardless of role.
package wppolicy

import (
	"context"

	"github.com/dalemusser/tierhub/internal/app/policy/projectpolicy"
	"github.com/dalemusser/tierhub/internal/app/system/authz"
	"github.com/dalemusser/tierhub/internal/app/system/faults"
	"github.com/dalemusser/tierhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// Allowed reports whether the user may perform the verb on the work
// package, taking its current state into account.
func Allowed(ctx context.Context, db *mongo.Database, m *authz.Matrix, user models.User, wp models.WorkPackage, perm string) (bool, string, error) {
	role, err := projectpolicy.RoleOn(ctx, db, wp.ProjectID, user.ID)
	if err != nil {
		return false, "", err
	}
	return m.AllowsInState(perm, user.SystemRole, role, wp.State), role, nil
}

// Require is Allowed with denial converted into a fault. A role that would
// be allowed in another state gets a state fault rather than an
// authorization fault, so callers can tell "never" from "not now".
func Require(ctx context.Context, db *mongo.Database, m *authz.Matrix, user models.User, wp models.WorkPackage, perm string) (string, error) {
	role, err := projectpolicy.RoleOn(ctx, db, wp.ProjectID, user.ID)
	if err != nil {
		return "", err
	}
	if m.AllowsInState(perm, user.SystemRole, role, wp.State) {
		return role, nil
	}
	if m.StateScoped(perm) && m.Allows(perm, user.SystemRole, role) {
		return "", faults.Statef("%s is not possible while the work package is %s", perm, wp.State)
	}
	return "", &faults.AuthorizationError{Permission: perm, Role: displayRole(user.SystemRole, role)}
}

func displayRole(systemRole, projectRole string) string {
	if projectRole != "" {
		return projectRole
	}
	if systemRole != "" {
		return systemRole
	}
	return "none"
}
