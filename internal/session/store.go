// Package session persists the bearer token that represents the signed-in user.
//
// A session is a single opaque token. The empty string means "no session";
// nothing here decodes, validates or expires the token.
package session

import "context"

// Store holds at most one token. Writes are last-writer-wins and a Get
// observes the most recent completed Set or Clear.
type Store interface {
	// Get returns the current token, or "" when there is none.
	Get(ctx context.Context) (string, error)
	// Set replaces the token. Setting "" is the same as Clear.
	Set(ctx context.Context, token string) error
	// Clear removes the token; clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
