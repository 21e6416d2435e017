package domain

import "github.com/google/uuid"

// Notification is a user-facing message produced by the engine after a
// committed mutation.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Dispatcher delivers notifications best-effort. It is called strictly
// after the unit of work commits; a failure is logged by the caller and
// never rolls anything back.
type Dispatcher interface {
	Notify(userID uuid.UUID, n Notification) error
}
