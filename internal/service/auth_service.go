package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"admin-console/internal/credential"
	"admin-console/internal/model"
	"admin-console/internal/task"
	"admin-console/pkg/apierror"
)

// DefaultRoleName is assigned to accounts created through open
// registration.
const DefaultRoleName = "user"

type userDirectory interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u model.User) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

type roleDirectory interface {
	FindByID(ctx context.Context, id int) (model.Role, error)
	FindByName(ctx context.Context, name string) (model.Role, error)
}

type tokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

type AuthService struct {
	users  userDirectory
	roles  roleDirectory
	tokens tokenIssuer
	runner task.Runner
}

func NewAuthService(users userDirectory, roles roleDirectory, tokens tokenIssuer, runner task.Runner) *AuthService {
	return &AuthService{users: users, roles: roles, tokens: tokens, runner: runner}
}

// Register creates an account with the default role. Email uniqueness is
// left to the database; a duplicate surfaces as a conflict regardless of
// how the race interleaved.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthUser, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateEmail(email); err != nil {
		return model.AuthUser{}, err
	}
	if err := validatePassword(req.Password); err != nil {
		return model.AuthUser{}, err
	}

	role, err := s.roles.FindByName(ctx, DefaultRoleName)
	if err != nil {
		// The seeded default role missing is a deployment problem, not
		// something the registering client can act on.
		slog.Error("default role lookup failed", "role", DefaultRoleName, "error", err)
		return model.AuthUser{}, apierror.Internal()
	}

	hash, err := credential.Hash(req.Password)
	if err != nil {
		return model.AuthUser{}, err
	}

	user := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		RoleID:       role.ID,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return model.AuthUser{}, err
	}

	return toAuthUser(user, role.Name), nil
}

// Login verifies credentials and issues a token. The last_login update is
// detached from the request: its failure is logged and swallowed.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return model.LoginResponse{}, apierror.BadRequest("email and password are required", "")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		// A missing account reads the same as a wrong password.
		return model.LoginResponse{}, model.ErrInvalidCredentials
	}

	ok, err := credential.Verify(req.Password, user.PasswordHash)
	if err != nil {
		slog.Error("stored password hash is unreadable", "user_id", user.ID, "error", err)
		return model.LoginResponse{}, apierror.Internal()
	}
	if !ok {
		return model.LoginResponse{}, model.ErrInvalidCredentials
	}

	userID := user.ID
	s.runner.Submit("last-login-update", func(ctx context.Context) {
		if err := s.users.UpdateLastLogin(ctx, userID, time.Now().UTC()); err != nil {
			slog.Warn("last login update failed", "user_id", userID, "error", err)
		}
	})

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return model.LoginResponse{}, err
	}

	roleName := ""
	if role, err := s.roles.FindByID(ctx, user.RoleID); err == nil {
		roleName = role.Name
	}

	return model.LoginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		User:      toAuthUser(user, roleName),
	}, nil
}

// Profile returns the authenticated user's own account view.
func (s *AuthService) Profile(ctx context.Context, userID string) (model.AuthUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.AuthUser{}, err
	}

	roleName := ""
	if role, err := s.roles.FindByID(ctx, user.RoleID); err == nil {
		roleName = role.Name
	}

	return toAuthUser(user, roleName), nil
}

func toAuthUser(u model.User, roleName string) model.AuthUser {
	return model.AuthUser{
		ID:        u.ID,
		Email:     u.Email,
		Role:      roleName,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}

func validateEmail(email string) error {
	if email == "" {
		return apierror.BadRequest("email is required", "email")
	}
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 || !strings.Contains(email[at:], ".") {
		return apierror.BadRequest("email is not valid", "email")
	}
	if len(email) > 320 {
		return apierror.BadRequest("email is too long", "email")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return apierror.BadRequest("password must be at least 8 characters", "password")
	}
	if len(password) > 128 {
		return apierror.BadRequest("password is too long", "password")
	}
	return nil
}
