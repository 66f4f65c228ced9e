package entity

import "github.com/google/uuid"

type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleModerator UserRole = "moderator"
)

type User struct {
	Base
	Username     string   `db:"username"`
	Email        string   `db:"email"`
	PasswordHash string   `db:"password"`
	Role         UserRole `db:"role"`
	IsActive     bool     `db:"is_active"`
	Score        int      `db:"score"` // communication score, written by the score worker only
}

// AuthorProfile is the public slice of a user shown next to a review.
type AuthorProfile struct {
	ID       uuid.UUID `db:"user_id"`
	Username string    `db:"username"`
	Score    int       `db:"user_score"`
}
