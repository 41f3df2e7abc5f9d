package domain

import "context"

//go:generate mockgen -source=port.go -destination=../mocks/domain_mocks.go -package=mocks

// TokenStore persists a single Session under a fixed key.
type TokenStore interface {
	// Save overwrites the stored session. No validation is performed.
	Save(ctx context.Context, session *Session) error
	// Load returns the stored session. Missing or malformed data reads as absent.
	Load(ctx context.Context) (*Session, bool)
	// Clear removes the stored session. It is idempotent.
	Clear(ctx context.Context) error
}

// AuthGateway talks to the remote authentication endpoints.
type AuthGateway interface {
	// Login returns the raw bearer token for valid credentials.
	Login(ctx context.Context, email, password string) (string, error)
	// Signup registers a user and returns the new subject id.
	Signup(ctx context.Context, input SignupInput) (string, error)
}

// TokenDecoder turns a raw bearer token into a Session.
type TokenDecoder interface {
	Decode(token string) (*Session, error)
}
