package permission

// Permission is a single atomic capability grant. The catalog is closed:
// every permission used anywhere in the system is declared here, and
// role permission sets are validated against it.
type Permission string

const (
	// Wildcard satisfies every permission check. It is assigned to the
	// seeded admin role and never granted implicitly.
	Wildcard Permission = "*"

	UsersView   Permission = "users.view"
	UsersCreate Permission = "users.create"
	UsersUpdate Permission = "users.update"
	UsersDelete Permission = "users.delete"

	RolesView   Permission = "roles.view"
	RolesManage Permission = "roles.manage"

	LogsView Permission = "logs.view"

	SystemTablesView Permission = "system.tables.view"
	SystemHealthView Permission = "system.health.view"

	// Unrecognized is the sentinel returned by FromString for unknown
	// input. No role ever contains it, so checks against unknown
	// permission strings fail closed.
	Unrecognized Permission = "unrecognized"
)

type Info struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

var catalog = []struct {
	perm        Permission
	description string
	category    string
}{
	{Wildcard, "Grants every permission", "System"},
	{UsersView, "View user accounts", "Users"},
	{UsersCreate, "Create user accounts", "Users"},
	{UsersUpdate, "Update user accounts", "Users"},
	{UsersDelete, "Delete user accounts", "Users"},
	{RolesView, "View roles and their permission sets", "Roles"},
	{RolesManage, "Create, update and delete roles", "Roles"},
	{LogsView, "View request audit logs", "Logs"},
	{SystemTablesView, "Inspect database tables", "System"},
	{SystemHealthView, "View system health and metrics", "System"},
}

var byID = func() map[Permission]Info {
	m := make(map[Permission]Info, len(catalog))
	for _, entry := range catalog {
		m[entry.perm] = Info{
			ID:          string(entry.perm),
			Description: entry.description,
			Category:    entry.category,
		}
	}
	return m
}()

// FromString resolves a permission id. Unknown input resolves to
// Unrecognized rather than an error.
func FromString(s string) Permission {
	p := Permission(s)
	if p == Unrecognized {
		return Unrecognized
	}
	if _, ok := byID[p]; ok {
		return p
	}
	return Unrecognized
}

func (p Permission) String() string { return string(p) }

func (p Permission) Known() bool {
	_, ok := byID[p]
	return ok
}

func (p Permission) Description() string { return byID[p].Description }

func (p Permission) Category() string { return byID[p].Category }

// All returns the catalog in declaration order, excluding Unrecognized.
func All() []Permission {
	out := make([]Permission, 0, len(catalog))
	for _, entry := range catalog {
		out = append(out, entry.perm)
	}
	return out
}

// ByCategory groups the catalog for administrative introspection.
func ByCategory() map[string][]Permission {
	out := make(map[string][]Permission)
	for _, entry := range catalog {
		out[entry.category] = append(out[entry.category], entry.perm)
	}
	return out
}
