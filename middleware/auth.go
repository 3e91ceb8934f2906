package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"dtracker/models"
	"dtracker/utils"
)

type contextKey string

const userIDKey contextKey = "userid"

// UserIDFromContext returns the user authenticated by AuthMiddleware, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// WithUserID stores an authenticated user on ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// AuthMiddleware validates JWT tokens and extracts the userid claim
type AuthMiddleware struct {
	jwtSecret []byte
	required  bool
}

// NewAuthMiddleware creates a new auth middleware. When required is false a
// request without a token passes through unauthenticated; a token that is
// present must still be valid.
func NewAuthMiddleware(jwtSecret string, required bool) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: []byte(jwtSecret),
		required:  required,
	}
}

// Authenticate validates the bearer token and sets the user in the request context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.required {
				respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Authorization header required")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Invalid authorization format. Expected: Bearer <token>")
			return
		}

		userID, err := utils.ParseJWT(parts[1], m.jwtSecret)
		if err != nil {
			log.Debug().Err(err).Str("component", "auth").Msg("token rejected")
			respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func respondWithError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = jsonEncode(w, models.ErrorResponse{Error: errorType, Message: message, Code: statusCode})
}
