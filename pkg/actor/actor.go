// Package actor identifies the user or system performing an action.
// The payroll service uses it to record who committed a run.
package actor

import (
	"context"
	"fmt"
	"net/http"
)

// Actor represents the entity performing an action in the system.
type Actor struct {
	// ID is the unique identifier of the actor (user ID)
	ID string `json:"id"`

	// Name is the actor's display name
	Name string `json:"name"`

	// Email is the actor's email address
	Email string `json:"email"`
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "system"
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.Email)
}

type contextKey struct{}

// WithActor adds an actor to the context
func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// FromContext extracts the actor from context, or nil if absent
func FromContext(ctx context.Context) *Actor {
	if a, ok := ctx.Value(contextKey{}).(*Actor); ok {
		return a
	}
	return nil
}

// FromHeaders builds an actor from gateway-supplied headers.
// Returns nil when no actor headers are present (system call).
func FromHeaders(r *http.Request) *Actor {
	id := r.Header.Get("X-Actor-ID")
	if id == "" {
		return nil
	}
	return &Actor{
		ID:    id,
		Name:  r.Header.Get("X-Actor-Name"),
		Email: r.Header.Get("X-Actor-Email"),
	}
}

// Middleware extracts the actor from request headers into the context
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a := FromHeaders(r); a != nil {
			r = r.WithContext(WithActor(r.Context(), a))
		}
		next.ServeHTTP(w, r)
	})
}
