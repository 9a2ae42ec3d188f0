package models

import "time"

// User is an account that can sign in. Email is the identity key.
type User struct {
	ID           int64      `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password"` // '-' means don't send in JSON response
	FirstName    string     `json:"first_name" db:"first_name"`
	LastName     string     `json:"last_name" db:"last_name"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	IsStaff      bool       `json:"is_staff" db:"is_staff"`
	IsSuperuser  bool       `json:"is_superuser" db:"is_superuser"`
	DateJoined   time.Time  `json:"date_joined" db:"date_joined"`
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
}

// PublicUser is the identity returned by sign-in and token authentication.
type PublicUser struct {
	ID        int64  `json:"id,omitempty"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Public strips everything but the identity fields.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}

// JWTToken is the single stored access token of a user.
type JWTToken struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// IsValidAt reports whether the token is still usable at now. A token whose
// expiry equals now is already expired.
func (t *JWTToken) IsValidAt(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}

// Credentials for sign-in request
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegistrationPayload for user creation
type RegistrationPayload struct {
	Email     string `json:"email" binding:"required,max=254"`
	FirstName string `json:"first_name" binding:"required,max=30"`
	LastName  string `json:"last_name" binding:"required,max=30"`
	Password  string `json:"password" binding:"required,max=128"`
	IsActive  *bool  `json:"is_active"`
	IsStaff   *bool  `json:"is_staff"`
}
