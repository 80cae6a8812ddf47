package app

import "time"

// User represents an account in the user directory. A user is created on
// first authentication attempt; the password hash stays empty until the
// first password is supplied.
type User struct {
	// Unique user ID assigned by the catalog store.
	ID int64 `json:"id"`

	// Globally unique username, trimmed and non-empty.
	Username string `json:"username"`

	// Bcrypt hash of the password, empty string if never set.
	PasswordHash string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// Image is one catalog entry owned by a user. Ref holds either a full URL
// or a hierarchical object key of the form "username/category/filename".
type Image struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Ref       string    `json:"ref"`
	CreatedAt time.Time `json:"created_at"`
}

// Category names are unique within a user's scope only.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryResult is the outcome of a category creation request. Duplicate
// names are rejected (Success=false) with the existing category id attached.
type CategoryResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	CategoryID int64  `json:"category_id"`
}
