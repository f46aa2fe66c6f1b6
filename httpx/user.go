package httpx

import (
	"context"

	"github.com/mbolis/survey-dashboard/model"
)

type ctxKey int

const userKey ctxKey = iota

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the signed in user, or nil outside authorized routes.
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userKey).(*model.User)
	return user
}
