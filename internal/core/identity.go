package core

import "context"

// Identity is an authenticated user as seen by the core layer.
type Identity struct {
	ID       int64
	Username string
	Role     string
}

// Authenticator verifies a credentials proof presented on a connection.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}
