package logging

import (
	"context"

	"github.com/google/uuid"
)

type debugKeyType struct{}

// WithDebug returns a context whose C* log calls are written at any level and tagged with key,
// so that one operation can be traced without turning on debug logging everywhere. An empty key
// is replaced with a random one.
func WithDebug(ctx context.Context, key string) context.Context {
	if key == "" {
		key = uuid.NewString()[:8]
	}
	return context.WithValue(ctx, debugKeyType{}, key)
}

// DebugKey returns the key attached by WithDebug.
func DebugKey(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	key, ok := ctx.Value(debugKeyType{}).(string)
	return key, ok && key != ""
}
