package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"thepup/internal/auth"
	"thepup/internal/utils"
	"thepup/internal/utils/logger/sl"
)

type ctxKey struct{}

// TokenParser проверяет токен администратора.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// RequireAdmin пропускает только запросы с валидным Bearer-токеном.
func RequireAdmin(log *slog.Logger, parser TokenParser) func(next http.Handler) http.Handler {
	log = log.With(slog.String("component", "middleware/auth"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := parser.Parse(r.Header.Get("Authorization"))
			if err != nil {
				log.Info("unauthorized request", slog.String("path", r.URL.Path), sl.Err(err))
				w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
				if httpErr := utils.Err(w, http.StatusUnauthorized, auth.ErrInvalidToken); httpErr != nil {
					log.Error("error sending http response", sl.Err(httpErr))
				}
				return
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminFromContext возвращает claims администратора, установленные RequireAdmin.
func AdminFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ctxKey{}).(*auth.Claims)
	return claims, ok
}
