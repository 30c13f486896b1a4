package auth

import "context"

type ctxKeySubject struct{}

// DevSubject is the caller recorded when the dev bypass lets a request through.
const DevSubject = "dev"

func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, ctxKeySubject{}, sub)
}

// Subject returns the authenticated caller, or "" when there is none.
func Subject(ctx context.Context) string {
	s, _ := ctx.Value(ctxKeySubject{}).(string)
	return s
}
