//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admin-console/internal/model"
)

func TestLoginAndProfileFlow(t *testing.T) {
	p := newPipeline(t)
	adminToken := p.login(t, "admin@example.com", "admin-password-1")

	resp, decoded := p.do(t, http.MethodGet, "/api/v1/auth/me", adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decoded.Success)
}

func TestProtectedRoutesRejectMissingAndBadTokens(t *testing.T) {
	p := newPipeline(t)

	resp, decoded := p.do(t, http.MethodGet, "/api/v1/admin/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, decoded.Error)
	assert.Equal(t, "AUTH_HEADER_MISSING", decoded.Error.Code)

	resp, decoded = p.do(t, http.MethodGet, "/api/v1/admin/users", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, decoded.Error)
	assert.Equal(t, "TOKEN_INVALID", decoded.Error.Code)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	p := newPipeline(t)

	resp, decoded := p.do(t, http.MethodPost, "/api/v1/auth/login", "", model.LoginRequest{
		Email:    "admin@example.com",
		Password: "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, decoded.Error)
	assert.Equal(t, "UNAUTHORIZED", decoded.Error.Code)
}

func TestRegistrationGrantsDefaultRole(t *testing.T) {
	p := newPipeline(t)

	resp, decoded := p.do(t, http.MethodPost, "/api/v1/auth/register", "", model.RegisterRequest{
		Email:    "new@example.com",
		Password: "new-password-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, decoded.Success)

	// The fresh account can log in but holds no admin permissions.
	token := p.login(t, "new@example.com", "new-password-1")
	resp, _ = p.do(t, http.MethodGet, "/api/v1/admin/users", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
