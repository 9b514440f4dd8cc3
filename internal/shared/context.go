package shared

import (
	"context"

	"github.com/sand/preipo-invest/backend/internal/entities"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	clientKey
)

// WithUserID stores the authenticated user id.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the authenticated user id, if any.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}

func WithClient(ctx context.Context, client entities.ClientContext) context.Context {
	return context.WithValue(ctx, clientKey, client)
}

// Client returns the request metadata, or the zero value outside a request.
func Client(ctx context.Context) entities.ClientContext {
	client, _ := ctx.Value(clientKey).(entities.ClientContext)
	return client
}
