// Package queue defines message payloads exchanged over the message broker
// and the consumer that turns them into an audit log.
package queue

// Queue names double as routing keys on the default exchange.
const (
	UserRegisteredQueue = "user.registered"
	UserLoggedInQueue   = "user.logged_in"
)

// UserRegisteredEvent is published after a new row lands in userr.
type UserRegisteredEvent struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	RegisteredAt string `json:"registered_at"`
}

// UserLoggedInEvent is published after a successful login. RemoteIP is the
// client address as seen by the server.
type UserLoggedInEvent struct {
	Username   string `json:"username"`
	RemoteIP   string `json:"remote_ip,omitempty"`
	LoggedInAt string `json:"logged_in_at"`
}
