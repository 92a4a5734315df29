package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/Serrao06/news-aggregator/internal/domain"
)

type ctxKey int

const userCtxKey ctxKey = iota

// AuthMiddleware резолвит bearer-токен в пользователя и кладёт его в контекст.
// Любой сбой резолва отдаётся как 401 Unauthenticated.
func AuthMiddleware(tokens domain.TokenRepo, users domain.UserRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				writeUnauthenticated(w)
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(header, prefix))
			if raw == "" {
				writeUnauthenticated(w)
				return
			}
			userID, err := tokens.UserIDByHash(r.Context(), domain.HashToken(raw))
			if err != nil {
				writeUnauthenticated(w)
				return
			}
			user, err := users.UserByID(r.Context(), userID)
			if err != nil {
				writeUnauthenticated(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser кладёт пользователя в контекст запроса.
func WithUser(ctx context.Context, user domain.User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// UserFromContext возвращает аутентифицированного пользователя.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userCtxKey).(domain.User)
	return user, ok
}

func writeUnauthenticated(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"message":"Unauthenticated."}`))
}
