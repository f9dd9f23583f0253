package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"admin-console/internal/credential"
	"admin-console/internal/model"
	"admin-console/internal/permission"
	"admin-console/pkg/apierror"
)

type userAdminDirectory interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	Create(ctx context.Context, u model.User) error
	Update(ctx context.Context, u model.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, query model.UserQuery) ([]model.User, int, error)
}

type roleAdminDirectory interface {
	FindByID(ctx context.Context, id int) (model.Role, error)
	FindByName(ctx context.Context, name string) (model.Role, error)
	List(ctx context.Context) ([]model.Role, error)
	Create(ctx context.Context, role model.Role) (model.Role, error)
	Update(ctx context.Context, role model.Role) error
	Delete(ctx context.Context, id int) error
}

// AdminService backs the administrative control surface: user and role
// management plus permission introspection.
type AdminService struct {
	users userAdminDirectory
	roles roleAdminDirectory
}

func NewAdminService(users userAdminDirectory, roles roleAdminDirectory) *AdminService {
	return &AdminService{users: users, roles: roles}
}

func (s *AdminService) ListUsers(ctx context.Context, query model.UserQuery) ([]model.AuthUser, *model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}
	if query.Limit > 100 {
		query.Limit = 100
	}

	users, total, err := s.users.List(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	names, err := s.roleNames(ctx)
	if err != nil {
		return nil, nil, err
	}

	out := make([]model.AuthUser, 0, len(users))
	for _, u := range users {
		out = append(out, toAuthUser(u, names[u.RoleID]))
	}
	return out, model.NewMeta(query.Page, query.Limit, total), nil
}

func (s *AdminService) GetUser(ctx context.Context, id string) (model.AuthUser, error) {
	if err := validateUserID(id); err != nil {
		return model.AuthUser{}, err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return model.AuthUser{}, err
	}

	roleName := ""
	if role, err := s.roles.FindByID(ctx, user.RoleID); err == nil {
		roleName = role.Name
	}
	return toAuthUser(user, roleName), nil
}

func (s *AdminService) CreateUser(ctx context.Context, req model.CreateUserRequest) (model.AuthUser, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateEmail(email); err != nil {
		return model.AuthUser{}, err
	}
	if err := validatePassword(req.Password); err != nil {
		return model.AuthUser{}, err
	}

	roleName := strings.TrimSpace(req.Role)
	if roleName == "" {
		roleName = DefaultRoleName
	}
	role, err := s.roles.FindByName(ctx, roleName)
	if err != nil {
		return model.AuthUser{}, apierror.BadRequest("unknown role", roleName)
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

func (s *AdminService) UpdateUser(ctx context.Context, id string, req model.UpdateUserRequest) (model.AuthUser, error) {
	if err := validateUserID(id); err != nil {
		return model.AuthUser{}, err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return model.AuthUser{}, err
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if err := validateEmail(email); err != nil {
			return model.AuthUser{}, err
		}
		user.Email = email
	}

	if req.Password != nil {
		if err := validatePassword(*req.Password); err != nil {
			return model.AuthUser{}, err
		}
		hash, err := credential.Hash(*req.Password)
		if err != nil {
			return model.AuthUser{}, err
		}
		user.PasswordHash = hash
	}

	roleName := ""
	if req.Role != nil {
		role, err := s.roles.FindByName(ctx, strings.TrimSpace(*req.Role))
		if err != nil {
			return model.AuthUser{}, apierror.BadRequest("unknown role", *req.Role)
		}
		user.RoleID = role.ID
		roleName = role.Name
	}

	if err := s.users.Update(ctx, user); err != nil {
		return model.AuthUser{}, err
	}

	if roleName == "" {
		if role, err := s.roles.FindByID(ctx, user.RoleID); err == nil {
			roleName = role.Name
		}
	}
	return toAuthUser(user, roleName), nil
}

// DeleteUser removes an account. An administrator deleting their own
// account is always rejected, before any other precondition is checked.
func (s *AdminService) DeleteUser(ctx context.Context, id string, actorID string) error {
	if err := validateUserID(id); err != nil {
		return err
	}
	if id == actorID {
		return model.ErrSelfDeletion
	}

	return s.users.Delete(ctx, id)
}

func (s *AdminService) ListRoles(ctx context.Context) ([]model.Role, error) {
	return s.roles.List(ctx)
}

func (s *AdminService) GetRole(ctx context.Context, id int) (model.Role, error) {
	return s.roles.FindByID(ctx, id)
}

func (s *AdminService) CreateRole(ctx context.Context, req model.CreateRoleRequest) (model.Role, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Role{}, apierror.BadRequest("role name is required", "name")
	}

	set, err := parsePermissionList(req.Permissions)
	if err != nil {
		return model.Role{}, err
	}

	return s.roles.Create(ctx, model.Role{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Permissions: set,
	})
}

func (s *AdminService) UpdateRole(ctx context.Context, id int, req model.UpdateRoleRequest) (model.Role, error) {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return model.Role{}, err
	}

	if req.Description != nil {
		role.Description = strings.TrimSpace(*req.Description)
	}
	if req.Permissions != nil {
		set, err := parsePermissionList(*req.Permissions)
		if err != nil {
			return model.Role{}, err
		}
		role.Permissions = set
	}

	if err := s.roles.Update(ctx, role); err != nil {
		return model.Role{}, err
	}
	return s.roles.FindByID(ctx, id)
}

func (s *AdminService) DeleteRole(ctx context.Context, id int) error {
	return s.roles.Delete(ctx, id)
}

// PermissionsForUser resolves the effective permission set of a user, as
// consumed by the privilege middleware stage and the introspection API.
func (s *AdminService) PermissionsForUser(ctx context.Context, userID string) (string, permission.Set, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", nil, err
	}

	role, err := s.roles.FindByID(ctx, user.RoleID)
	if err != nil {
		return "", nil, err
	}
	return role.Name, role.Permissions, nil
}

// CheckPermission answers a point query against a user's permission set.
// Unknown permission strings resolve to the unrecognized sentinel and
// therefore always report false.
func (s *AdminService) CheckPermission(ctx context.Context, userID string, permissionID string) (model.CheckPermissionResponse, error) {
	_, set, err := s.PermissionsForUser(ctx, userID)
	if err != nil {
		return model.CheckPermissionResponse{}, err
	}

	perm := permission.FromString(permissionID)
	return model.CheckPermissionResponse{
		UserID:        userID,
		Permission:    permissionID,
		HasPermission: set.Contains(perm),
		Description:   perm.Description(),
	}, nil
}

// Catalog exposes the closed permission catalog for administrators.
func (s *AdminService) Catalog() model.AvailablePermissionsResponse {
	all := permission.All()
	infos := make([]model.PermissionInfo, 0, len(all))
	for _, p := range all {
		infos = append(infos, model.PermissionInfo{
			ID:          p.String(),
			Description: p.Description(),
			Category:    p.Category(),
		})
	}

	categories := make(map[string][]model.PermissionInfo)
	for category, perms := range permission.ByCategory() {
		for _, p := range perms {
			categories[category] = append(categories[category], model.PermissionInfo{
				ID:          p.String(),
				Description: p.Description(),
				Category:    category,
			})
		}
	}

	return model.AvailablePermissionsResponse{
		Permissions: infos,
		Categories:  categories,
		TotalCount:  len(infos),
	}
}

func (s *AdminService) roleNames(ctx context.Context) (map[int]string, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int]string, len(roles))
	for _, role := range roles {
		names[role.ID] = role.Name
	}
	return names, nil
}

func parsePermissionList(ids []string) (permission.Set, error) {
	set := make(permission.Set, 0, len(ids))
	for _, id := range ids {
		p := permission.FromString(id)
		if !p.Known() {
			return nil, apierror.BadRequest("unknown permission", id)
		}
		set = append(set, p)
	}
	return set, nil
}

func validateUserID(id string) error {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return apierror.BadRequest("invalid user id format", id)
	}
	return nil
}
