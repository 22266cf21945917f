package model

// Role is the access-level claim held by a session. Unknown values are
// carried as-is and grant nothing.
type Role string

const (
	RoleDeveloper    Role = "developer"
	RoleScrumMaster  Role = "scrum-master"
	RoleProductOwner Role = "product-owner"
)

// User is the session identity. It lives on the client only; the server
// never persists it and sees it solely as a signed claim.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}
