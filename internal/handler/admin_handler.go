package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"admin-console/internal/middleware"
	"admin-console/internal/model"
	"admin-console/internal/service"
	"admin-console/pkg/apierror"
)

type AdminHandler struct {
	admin  *service.AdminService
	audits *service.AuditService
}

func NewAdminHandler(admin *service.AdminService, audits *service.AuditService) *AdminHandler {
	return &AdminHandler{admin: admin, audits: audits}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	query := model.UserQuery{
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 20),
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Role:   strings.TrimSpace(r.URL.Query().Get("role")),
	}

	users, meta, err := h.admin.ListUsers(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, users, meta)
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.admin.GetUser(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	user, err := h.admin.CreateUser(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, user, nil)
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	user, err := h.admin.UpdateUser(r.Context(), chi.URLParam(r, "user_id"), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apierror.Unauthorized("authentication required"))
		return
	}

	if err := h.admin.DeleteUser(r.Context(), chi.URLParam(r, "user_id"), identity.UserID); err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true}, nil)
}

func (h *AdminHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.admin.ListRoles(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, roles, nil)
}

func (h *AdminHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, err := roleID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	role, err := h.admin.GetRole(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, role, nil)
}

func (h *AdminHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.CreateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	role, err := h.admin.CreateRole(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, role, nil)
}

func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	id, err := roleID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload model.UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	role, err := h.admin.UpdateRole(r.Context(), id, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, role, nil)
}

func (h *AdminHandler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := roleID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.admin.DeleteRole(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true}, nil)
}

func (h *AdminHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	query := model.AuditQuery{
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 50),
		Method: strings.TrimSpace(r.URL.Query().Get("method")),
		UserID: strings.TrimSpace(r.URL.Query().Get("user_id")),
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("status_code")); raw != "" {
		code, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, apierror.BadRequest("invalid status_code filter", raw))
			return
		}
		query.StatusCode = &code
	}

	var err error
	if query.From, err = queryTime(r, "from"); err != nil {
		writeError(w, r, err)
		return
	}
	if query.To, err = queryTime(r, "to"); err != nil {
		writeError(w, r, err)
		return
	}

	entries, meta, err := h.audits.Query(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, entries, meta)
}

func roleID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "role_id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, apierror.BadRequest("invalid role id", raw)
	}
	return id, nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apierror.BadRequest("invalid '"+name+"' datetime format", raw)
	}
	return t.UTC(), nil
}
