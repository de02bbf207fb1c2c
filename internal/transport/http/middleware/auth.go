package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"socialmedia_api/internal/httputil"
	"socialmedia_api/internal/logging"
	"socialmedia_api/internal/model"
)

type contextKey string

const (
	// UserIDKey is the context key for the authenticated user's ID
	UserIDKey contextKey = "user_id"
)

var errNoToken = errors.New("missing token")

// AuthMiddleware rejects requests without a valid access token.
// Checks the Authorization header first (mobile), then the access_token cookie (web).
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := authenticate(r, jwtSecret)
			if err != nil {
				switch {
				case errors.Is(err, errNoToken):
					httputil.WriteUnauthorized(w, "missing authentication token")
				case errors.Is(err, jwt.ErrTokenExpired):
					httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "access token has expired")
				default:
					httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "invalid authentication token")
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), userID)))
		})
	}
}

// OptionalAuthMiddleware attaches the user when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := authenticate(r, jwtSecret); err == nil {
				r = r.WithContext(withUser(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}

// WithUserID is exported for handler tests that bypass the JWT check.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return withUser(ctx, userID)
}

func withUser(ctx context.Context, userID int64) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return logging.ContextWithUserID(ctx, userID)
}

func authenticate(r *http.Request, jwtSecret string) (int64, error) {
	tokenString := bearerToken(r)
	if tokenString == "" {
		return 0, errNoToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, jwt.ErrTokenInvalidClaims
	}
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return 0, jwt.ErrTokenInvalidClaims
	}
	return int64(userIDFloat), nil
}

func bearerToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}
