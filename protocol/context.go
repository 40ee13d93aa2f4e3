package protocol

import "context"

type authTagKey struct{}

// ContextWithAuthTag attaches the verified AuthTag of a request to its
// context. The auth middleware sets it; handlers downstream read it to
// learn the sender identity.
func ContextWithAuthTag(ctx context.Context, tag *AuthTag) context.Context {
	return context.WithValue(ctx, authTagKey{}, tag)
}

// AuthTagFromContext returns the verified AuthTag attached to the context,
// or false when the request never passed the auth middleware.
func AuthTagFromContext(ctx context.Context) (*AuthTag, bool) {
	tag, ok := ctx.Value(authTagKey{}).(*AuthTag)
	return tag, ok
}
