package auth

// Role names as stored in Firebase custom claims.
const (
	RoleStandardUser    = "standard_user"
	RoleProClient       = "pro_client"
	RolePzseEngineer    = "pzse_engineer"
	RolePzseAdmin       = "pzse_admin"
	RolePzseCoordinator = "pzse_coordinator"
)

// Actor is the authenticated caller of a workflow operation. Services
// receive it explicitly; nothing reads auth state from globals.
type Actor struct {
	ID              string
	Email           string
	Roles           []string
	ParentAccountID string
}

func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (a Actor) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if a.HasRole(r) {
			return true
		}
	}
	return false
}

// IsClient reports whether the actor is a paying client rather than
// PZSE staff.
func (a Actor) IsClient() bool {
	return a.HasAnyRole(RoleStandardUser, RoleProClient)
}

// IsStaff reports whether the actor belongs to any PZSE-side role.
func (a Actor) IsStaff() bool {
	return a.HasAnyRole(RolePzseAdmin, RolePzseCoordinator, RolePzseEngineer)
}

// IsUnderCompany reports whether the actor is a sub-account billed
// through a parent company account.
func (a Actor) IsUnderCompany() bool {
	return a.ParentAccountID != ""
}

// BillingAccountID is the account charged and refunded for this actor.
func (a Actor) BillingAccountID() string {
	if a.IsUnderCompany() {
		return a.ParentAccountID
	}
	return a.ID
}
