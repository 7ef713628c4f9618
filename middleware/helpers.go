package middleware

import (
	"context"
	"errors"
)

var errNoClaims = errors.New("user claims not found in context")

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(userContextKey).(*Claims)
	return claims, ok && claims != nil
}

func GetUserIDFromContext(ctx context.Context) (int, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return 0, errNoClaims
	}
	return claims.UserID, nil
}
