package domain

// Role is the coarse permission level supplied by the auth collaborator.
type Role string

const (
	RoleSubmitter Role = "submitter"
	RoleReviewer  Role = "reviewer"
	RoleAdmin     Role = "admin"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleSubmitter, RoleReviewer, RoleAdmin:
		return true
	}
	return false
}

// Actor identifies who is performing an operation. The auth collaborator is trusted for both fields.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// CanReview reports whether the actor may claim and decide invoices.
func (a Actor) CanReview() bool {
	return a.Role == RoleReviewer || a.Role == RoleAdmin
}

// IsAdmin reports whether the actor is an administrator.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// SystemActorID is recorded as the actor for changes made by background jobs.
const SystemActorID = "system:sweeper"
