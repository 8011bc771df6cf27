package shared

import "context"

// Actor identifies the authenticated subject of a request.
type Actor struct {
	ID       string
	Role     string
	SchoolID string
	TokenID  string
}

type actorContextKey struct{}

type originContextKey struct{}

// ContextWithActor stores the authenticated actor in context.
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the authenticated actor from context.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*Actor)
	return actor
}

// ContextWithOrigin stores the request source address in context.
func ContextWithOrigin(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, originContextKey{}, addr)
}

// OriginFromContext extracts the request source address from context.
func OriginFromContext(ctx context.Context) string {
	addr, _ := ctx.Value(originContextKey{}).(string)
	return addr
}
