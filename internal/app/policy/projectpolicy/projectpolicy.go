// internal/app/policy/projectpolicy/projectpolicy.go

// Package projectpolicy answers "may this user do that on this project".
//
// A user's rights come from two places: the account-wide system role on the
// user record, and the project role held in the authoritative participations
// collection. Both feed the permission matrix; the matrix alone decides.
package projectpolicy

import (
	"context"
	"errors"

	"github.com/dalemusser/tierhub/internal/app/system/authz"
	"github.com/dalemusser/tierhub/internal/app/system/faults"
	"github.com/dalemusser/tierhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// RoleOn returns the user's project role, or "" when the user is not a
// participant of the project.
func RoleOn(ctx context.Context, db *mongo.Database, projectID, userID primitive.ObjectID) (string, error) {
	var p models.Participation
	err := db.Collection("participations").FindOne(ctx, bson.M{
		"project_id": projectID,
		"user_id":    userID,
	}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return p.Role, nil
}

// Allowed reports whether the user may perform the permission verb on the
// project. The returned role is the user's project role (possibly empty),
// which callers often need again.
func Allowed(ctx context.Context, db *mongo.Database, m *authz.Matrix, user models.User, projectID primitive.ObjectID, perm string) (bool, string, error) {
	role, err := RoleOn(ctx, db, projectID, user.ID)
	if err != nil {
		return false, "", err
	}
	return m.Allows(perm, user.SystemRole, role), role, nil
}

// Require is Allowed with denial converted into an authorization fault.
func Require(ctx context.Context, db *mongo.Database, m *authz.Matrix, user models.User, projectID primitive.ObjectID, perm string) (string, error) {
	ok, role, err := Allowed(ctx, db, m, user, projectID, perm)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &faults.AuthorizationError{Permission: perm, Role: displayRole(user.SystemRole, role)}
	}
	return role, nil
}

// RequireGlobal checks a verb that is not tied to any project (create
// projects, view all users, import question sets).
func RequireGlobal(m *authz.Matrix, user models.User, perm string) error {
	if !m.Allows(perm, user.SystemRole, "") {
		return &faults.AuthorizationError{Permission: perm, Role: displayRole(user.SystemRole, "")}
	}
	return nil
}

// RequireAssign checks whether the actor may grant the target role on the
// project. System manager can never be granted this way.
func RequireAssign(ctx context.Context, db *mongo.Database, m *authz.Matrix, actor models.User, projectID primitive.ObjectID, targetRole string) (string, error) {
	role, err := RoleOn(ctx, db, projectID, actor.ID)
	if err != nil {
		return "", err
	}
	if !m.CanAssign(actor.SystemRole, role, targetRole) {
		return "", &faults.AuthorizationError{Permission: "assign_" + targetRole, Role: displayRole(actor.SystemRole, role)}
	}
	return role, nil
}

// PermissionsFor lists every verb the user may perform on the project, in
// matrix order. Callers use it to build capability views for a principal.
func PermissionsFor(ctx context.Context, db *mongo.Database, m *authz.Matrix, user models.User, projectID primitive.ObjectID) ([]string, error) {
	role, err := RoleOn(ctx, db, projectID, user.ID)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, perm := range m.Permissions() {
		if m.Allows(perm, user.SystemRole, role) {
			out = append(out, perm)
		}
	}
	return out, nil
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
