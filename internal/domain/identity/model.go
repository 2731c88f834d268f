package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of actor kinds the booking workflow knows about.
type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
	RoleAdmin   Role = "ADMIN"
)

var validRoles = map[Role]bool{
	RolePatient: true, RoleDoctor: true, RoleAdmin: true,
}

// ParseRole accepts the canonical upper-case label or its lower-case form.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !validRoles[r] {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool { return validRoles[r] }

func (r Role) String() string { return string(r) }

// Actor is the identity attached to a request by the identity collaborator.
// The booking core trusts it as given. For a DOCTOR the ID is the catalog id
// of the doctor the user represents.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

func (a Actor) IsZero() bool { return a.ID == uuid.Nil && a.Role == "" }

// User maps to the app_user table. Only DisplayName may change after creation.
type User struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Role        Role      `db:"role" json:"role"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Email       string    `db:"email" json:"email"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Actor returns the identity this user acts as.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}
