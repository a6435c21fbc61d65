package shared

import "context"

type principalContextKey struct{}

// ContextWithPrincipal stores a copy of the authenticated principal in
// context. Later changes to p are not visible through the context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	if p == nil {
		return ctx
	}
	return context.WithValue(ctx, principalContextKey{}, *p.Clone())
}

// PrincipalFromContext extracts the principal from context. Anonymous
// requests carry none. Each call returns a fresh copy.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}
