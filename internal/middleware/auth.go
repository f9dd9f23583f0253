package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"admin-console/internal/model"
	"admin-console/internal/permission"
)

type tokenVerifier interface {
	Verify(tokenString string) (string, error)
}

type permissionSource interface {
	PermissionsForUser(ctx context.Context, userID string) (string, permission.Set, error)
}

type contextKey string

const (
	identityContextKey  contextKey = "identity"
	privilegeContextKey contextKey = "privilege"
)

// Privilege is the role context resolved by RequirePermission and made
// available to admin handlers.
type Privilege struct {
	Role        string
	Permissions permission.Set
}

type AuthMiddleware struct {
	tokens      tokenVerifier
	permissions permissionSource
}

func NewAuthMiddleware(tokens tokenVerifier, permissions permissionSource) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, permissions: permissions}
}

// RequireAuth is the identity stage: it demands a well-formed bearer
// token, verifies it and attaches the resolved identity to the request
// context. Any failure short-circuits with 401 and the wrapped handler is
// never invoked.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			writeAuthError(w, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "authorization header is required")
			return
		}

		scheme, rawToken, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(rawToken) == "" {
			writeAuthError(w, http.StatusUnauthorized, "AUTH_HEADER_MALFORMED", "authorization header must be 'Bearer <token>'")
			return
		}

		userID, err := m.tokens.Verify(strings.TrimSpace(rawToken))
		if err != nil {
			if errors.Is(err, model.ErrTokenExpired) {
				writeAuthError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "token has expired")
				return
			}
			writeAuthError(w, http.StatusUnauthorized, "TOKEN_INVALID", "token is invalid")
			return
		}

		identity := model.Identity{UserID: userID}
		recordActor(r.Context(), userID)

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission is the privilege stage. It composes strictly after
// RequireAuth and trusts the identity that stage attached; the token is
// never re-derived here.
func (m *AuthMiddleware) RequirePermission(required permission.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			roleName, set, err := m.permissions.PermissionsForUser(r.Context(), identity.UserID)
			if errors.Is(err, model.ErrUserNotFound) || errors.Is(err, model.ErrRoleNotFound) {
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "account is no longer valid")
				return
			}
			if err != nil {
				// Internal details stay on the operator log stream,
				// keyed by the request correlation id.
				slog.Error("permission resolution failed",
					"request_id", RequestIDFromContext(r.Context()),
					"user_id", identity.UserID, "path", r.URL.Path, "error", err)
				writeAuthError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected server error")
				return
			}

			if !set.Contains(required) {
				writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}

			ctx := context.WithValue(r.Context(), privilegeContextKey, Privilege{
				Role:        roleName,
				Permissions: set,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(model.Identity)
	return identity, ok
}

func PrivilegeFromContext(ctx context.Context) (Privilege, bool) {
	privilege, ok := ctx.Value(privilegeContextKey).(Privilege)
	return privilege, ok
}

func writeAuthError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonEncode(w, model.APIResponse{
		Success: false,
		Error:   &model.APIError{Code: code, Message: message},
	})
}
