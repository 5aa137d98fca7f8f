// Package models defines the core data structures for users, courses,
// tasks, sessions and carts.
package models

import "strings"

// Role is the kind of account a user holds.
type Role string

const (
	// RoleHacker is a learner who buys courses and takes tasks.
	RoleHacker Role = "hacker"
	// RoleCompany is an organisation that posts tasks.
	RoleCompany Role = "company"
	// RoleAdmin manages users, courses and tasks.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleHacker, RoleCompany, RoleAdmin:
		return true
	}
	return false
}

// Skill levels are bounded to this range.
const (
	MinSkillLevel = 1
	MaxSkillLevel = 10
)

// Skill is a named competence with a level between MinSkillLevel and MaxSkillLevel.
type Skill struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// ClampSkillLevel bounds level to the valid skill range.
func ClampSkillLevel(level int) int {
	return min(max(level, MinSkillLevel), MaxSkillLevel)
}

// User represents an application account.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`
	// Username is the display name.
	Username string `json:"username"`
	// Email is unique across users and used as the login key.
	Email string `json:"email"`
	// Role decides which operations the user may perform.
	Role Role `json:"role"`
	// AvatarURL is optional.
	AvatarURL string `json:"avatarUrl,omitempty"`
	// Rating is set by admins.
	Rating float64 `json:"rating"`
	// Balance is in currency units.
	Balance float64 `json:"balance"`
	// CompletedTasks counts tasks finished by the user.
	CompletedTasks int `json:"completedTasks"`
	// Skills is ordered; quiz results update it.
	Skills []Skill `json:"skills"`
	// PurchasedCourses holds course ids.
	PurchasedCourses []string `json:"purchasedCourses"`
	// Banned users cannot log in.
	Banned bool `json:"banned,omitempty"`
}

// HasPurchased reports whether courseID is in the user's purchased list.
func (u *User) HasPurchased(courseID string) bool {
	for _, id := range u.PurchasedCourses {
		if id == courseID {
			return true
		}
	}
	return false
}

// NormalizeEmail is the canonical form used for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
