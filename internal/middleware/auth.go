// Package middleware provides the HTTP middleware of the portal API.
package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/render"

	"github.com/mmynk/ownerportal/internal/auth"
	"github.com/mmynk/ownerportal/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for storing the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// EmailKey is the context key for storing the authenticated user's email.
	EmailKey contextKey = "email"
	// RoleKey is the context key for storing the authenticated user's role.
	RoleKey contextKey = "role"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Email  string
	Role   models.Role
}

// IsStaff reports whether the caller may see every property.
func (id Identity) IsStaff() bool {
	return id.Role.IsStaff()
}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, id.UserID)
	ctx = context.WithValue(ctx, EmailKey, id.Email)
	return context.WithValue(ctx, RoleKey, id.Role)
}

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetEmail extracts the user email from the context.
func GetEmail(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}

// GetRole extracts the user role from the context.
func GetRole(ctx context.Context) models.Role {
	role, _ := ctx.Value(RoleKey).(models.Role)
	return role
}

// GetIdentity collects the caller stored by RequireAuth.
// ok is false for unauthenticated requests.
func GetIdentity(ctx context.Context) (Identity, bool) {
	id := Identity{UserID: GetUserID(ctx), Email: GetEmail(ctx), Role: GetRole(ctx)}
	return id, id.UserID != ""
}

// RequireAuth validates the Bearer token and adds the caller to the request context.
func RequireAuth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", err.Error())
				return
			}

			claims, err := jwtManager.Validate(tokenString)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", auth.ErrInvalidToken.Error())
				return
			}

			ctx := WithIdentity(r.Context(), Identity{
				UserID: claims.UserID,
				Email:  claims.Email,
				Role:   claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth adds the caller to the context when a valid token is present,
// and lets the request through either way.
func OptionalAuth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenString, err := bearerToken(r); err == nil {
				if claims, err := jwtManager.Validate(tokenString); err == nil {
					r = r.WithContext(WithIdentity(r.Context(), Identity{
						UserID: claims.UserID,
						Email:  claims.Email,
						Role:   claims.Role,
					}))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects callers whose role is not listed. It must run after RequireAuth.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetUserID(r.Context()) == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", auth.ErrMissingToken.Error())
				return
			}
			if !slices.Contains(roles, GetRole(r.Context())) {
				writeError(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", auth.ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", auth.ErrInvalidToken
	}
	return strings.TrimSpace(token), nil
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{
		"error": message,
		"code":  code,
	})
}
