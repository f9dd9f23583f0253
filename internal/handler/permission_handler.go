package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"admin-console/internal/model"
	"admin-console/internal/service"
	"admin-console/pkg/apierror"
)

type PermissionHandler struct {
	admin *service.AdminService
}

func NewPermissionHandler(admin *service.AdminService) *PermissionHandler {
	return &PermissionHandler{admin: admin}
}

// Available lists the closed permission catalog grouped by category.
func (h *PermissionHandler) Available(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.admin.Catalog(), nil)
}

// UserPermissions returns the effective permission set of one user.
func (h *PermissionHandler) UserPermissions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	role, set, err := h.admin.PermissionsForUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.UserPermissionsResponse{
		UserID:      userID,
		Role:        role,
		Permissions: set.Strings(),
		Count:       len(set),
	}, nil)
}

// Check answers whether one user holds one specific permission.
func (h *PermissionHandler) Check(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.CheckPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	result, err := h.admin.CheckPermission(r.Context(), chi.URLParam(r, "user_id"), payload.Permission)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}
