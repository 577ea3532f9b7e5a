package domain

import dErrors "gdpgate/pkg/domain-errors"

// ApproverRole is the closed set of actor roles recognized by the override
// workflow. Authorization is an explicit capability check against this enum,
// evaluated as a pure function.
type ApproverRole string

const (
	RoleComplianceManager ApproverRole = "compliance_manager"
	RoleQAManager         ApproverRole = "qa_manager"
	RoleQAUser            ApproverRole = "qa_user"
	RoleIntegration       ApproverRole = "integration"
)

var validApproverRoles = map[ApproverRole]bool{
	RoleComplianceManager: true,
	RoleQAManager:         true,
	RoleQAUser:            true,
	RoleIntegration:       true,
}

// ParseApproverRole constructs an ApproverRole from external input (JWT role
// claim, config list). Unknown roles are rejected at the boundary.
func ParseApproverRole(s string) (ApproverRole, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "role cannot be empty")
	}
	r := ApproverRole(s)
	if !validApproverRoles[r] {
		return "", dErrors.New(dErrors.CodeValidation, "unknown role: "+s)
	}
	return r, nil
}

// IsValid checks if the role is one of the supported enum values.
func (r ApproverRole) IsValid() bool { return validApproverRoles[r] }

func (r ApproverRole) String() string { return string(r) }

// Actor is the authenticated caller of an override decision.
type Actor struct {
	ID   string
	Role ApproverRole
}

// HasRole reports whether the actor holds the given role.
func (a Actor) HasRole(role ApproverRole) bool { return a.Role == role }

// IsAuthorized reports whether the actor's role is in the configured
// approver set.
func (a Actor) IsAuthorized(approverRoles []ApproverRole) bool {
	for _, r := range approverRoles {
		if a.Role == r {
			return true
		}
	}
	return false
}
