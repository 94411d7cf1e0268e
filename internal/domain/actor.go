package domain

// UserRole is a role carried in the caller's token
type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleSales      UserRole = "sales"
	RoleViewer     UserRole = "viewer"
	RoleAPIService UserRole = "api_service"
)

// Actor identifies who triggered a price change
type Actor struct {
	ID   string
	Name string
	// Privileged actors (admins, the system) may act on any proposal
	Privileged bool
}

// SystemActor is the actor for scheduled and server-to-server changes
func SystemActor() Actor {
	return Actor{ID: SystemActorID, Name: "System", Privileged: true}
}

// CanAccess reports whether the actor may read or change a proposal owned by ownerID.
// Proposals without an owner are open to every actor.
func (a Actor) CanAccess(ownerID string) bool {
	return a.Privileged || ownerID == "" || ownerID == a.ID
}

// IsZero reports whether no actor was given
func (a Actor) IsZero() bool {
	return a.ID == ""
}
