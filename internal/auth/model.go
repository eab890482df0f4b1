package auth

// Roles stored on users.
const (
	RoleDietitian = "DIETITIAN"
	RoleAdmin     = "ADMIN"
)

// User is a dietitian account.
type User struct {
	ID       string
	Name     string
	Email    string
	Password string
	Role     string
}
