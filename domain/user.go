package domain

import "time"

// User is the profile slice the relay reads: the identity and the preferred
// reading language that drives message translation.
type User struct {
	ID        string
	FullName  string
	Language  string
	CreatedAt time.Time
}
