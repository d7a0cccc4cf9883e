// internal/domain/models/roles.go
package models

// System roles apply account-wide and come from the identity provider.
// The empty string means "no system role" (an ordinary user).
const (
	RoleSystemManager    = "system_manager"
	RoleProgrammeManager = "programme_manager"
	RoleNone             = ""
)

// Project roles apply to a single project via a Participation.
const (
	RoleProjectManager             = "project_manager"
	RoleDataProviderRepresentative = "data_provider_representative"
	RoleInvestigator               = "investigator"
	RoleReferee                    = "referee"
	RoleResearcher                 = "researcher"
)

// ProjectRoles lists every valid project role token.
var ProjectRoles = []string{
	RoleProjectManager,
	RoleDataProviderRepresentative,
	RoleInvestigator,
	RoleReferee,
	RoleResearcher,
}

// SystemRoles lists every valid system role token, including "none".
var SystemRoles = []string{
	RoleSystemManager,
	RoleProgrammeManager,
	RoleNone,
}

// roleDisplayNames maps role tokens to the names shown in obligation
// messages and audit detail fields.
var roleDisplayNames = map[string]string{
	RoleSystemManager:              "System Manager",
	RoleProgrammeManager:           "Programme Manager",
	RoleProjectManager:             "Project Manager",
	RoleDataProviderRepresentative: "Data Provider Representative",
	RoleInvestigator:               "Investigator",
	RoleReferee:                    "Referee",
	RoleResearcher:                 "Researcher",
}

// RoleDisplayName returns the human-readable name for a role token.
// Unknown tokens are returned unchanged.
func RoleDisplayName(role string) string {
	if name, ok := roleDisplayNames[role]; ok {
		return name
	}
	return role
}

// IsProjectRole reports whether the token is a valid project role.
func IsProjectRole(role string) bool {
	for _, r := range ProjectRoles {
		if r == role {
			return true
		}
	}
	return false
}

// ApprovedByDefault reports whether participants holding this project role
// are authorised for high-tier work packages without per-dataset approvals.
// Referees and researchers need explicit approval once any Data Provider
// Representative opinion reaches tier 3.
func ApprovedByDefault(role string) bool {
	switch role {
	case RoleProjectManager, RoleInvestigator, RoleDataProviderRepresentative:
		return true
	}
	return false
}
