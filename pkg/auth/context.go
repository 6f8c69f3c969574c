package auth

import (
	"context"
)

// Context keys for authentication data
type contextKey string

const (
	// ContextKeySubject is the context key for the authenticated subject
	ContextKeySubject contextKey = "subject"
	// ContextKeyAdmin is the context key for the admin flag
	ContextKeyAdmin contextKey = "admin"
)

// WithSubject adds the authenticated subject to the context
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ContextKeySubject, subject)
}

// SubjectFromContext retrieves the authenticated subject from the context
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(ContextKeySubject).(string)
	return subject, ok
}

// WithAdmin marks the context as belonging to the registry admin
func WithAdmin(ctx context.Context, admin bool) context.Context {
	return context.WithValue(ctx, ContextKeyAdmin, admin)
}

// IsAdmin reports whether the context belongs to the registry admin
func IsAdmin(ctx context.Context) bool {
	admin, ok := ctx.Value(ContextKeyAdmin).(bool)
	return ok && admin
}

// Caller contains all authentication information for a request
type Caller struct {
	Subject string
	Admin   bool
}

// WithCaller adds all authentication info to the context
func WithCaller(ctx context.Context, caller *Caller) context.Context {
	ctx = WithSubject(ctx, caller.Subject)
	ctx = WithAdmin(ctx, caller.Admin)
	return ctx
}

// CallerFromContext retrieves all authentication info from the context
func CallerFromContext(ctx context.Context) *Caller {
	caller := &Caller{}
	caller.Subject, _ = SubjectFromContext(ctx)
	caller.Admin = IsAdmin(ctx)
	return caller
}
