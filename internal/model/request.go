package model

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
}

type UserQuery struct {
	Page   int
	Limit  int
	Search string
	Role   string
}

type CreateRoleRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

type UpdateRoleRequest struct {
	Description *string   `json:"description,omitempty"`
	Permissions *[]string `json:"permissions,omitempty"`
}

type CheckPermissionRequest struct {
	Permission string `json:"permission"`
}

type CheckPermissionResponse struct {
	UserID        string `json:"user_id"`
	Permission    string `json:"permission"`
	HasPermission bool   `json:"has_permission"`
	Description   string `json:"description,omitempty"`
}

type UserPermissionsResponse struct {
	UserID      string   `json:"user_id"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	Count       int      `json:"count"`
}

type PermissionInfo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type AvailablePermissionsResponse struct {
	Permissions []PermissionInfo            `json:"permissions"`
	Categories  map[string][]PermissionInfo `json:"categories"`
	TotalCount  int                         `json:"total_count"`
}
