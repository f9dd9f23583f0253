package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"admin-console/internal/config"
	"admin-console/internal/handler"
	"admin-console/internal/middleware"
	"admin-console/internal/permission"
)

type healthChecker interface {
	Health(ctx context.Context) error
}

type Handlers struct {
	Auth       *handler.AuthHandler
	Admin      *handler.AdminHandler
	Permission *handler.PermissionHandler
	System     *handler.SystemHandler
}

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	auditMiddleware *middleware.AuditMiddleware,
	handlers Handlers,
	health healthChecker,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	// The audit wrapper sits outside auth so rejected requests are
	// recorded too.
	r.Use(auditMiddleware.Handler)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := health.Health(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unreachable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/register", handlers.Auth.Register)
			auth.Post("/login", handlers.Auth.Login)
			auth.With(authMiddleware.RequireAuth).Get("/me", handlers.Auth.Me)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAuth)

			admin.With(authMiddleware.RequirePermission(permission.UsersView)).Get("/users", handlers.Admin.ListUsers)
			admin.With(authMiddleware.RequirePermission(permission.UsersCreate)).Post("/users", handlers.Admin.CreateUser)
			admin.With(authMiddleware.RequirePermission(permission.UsersView)).Get("/users/{user_id}", handlers.Admin.GetUser)
			admin.With(authMiddleware.RequirePermission(permission.UsersUpdate)).Put("/users/{user_id}", handlers.Admin.UpdateUser)
			admin.With(authMiddleware.RequirePermission(permission.UsersDelete)).Delete("/users/{user_id}", handlers.Admin.DeleteUser)

			admin.With(authMiddleware.RequirePermission(permission.RolesView)).Get("/roles", handlers.Admin.ListRoles)
			admin.With(authMiddleware.RequirePermission(permission.RolesManage)).Post("/roles", handlers.Admin.CreateRole)
			admin.With(authMiddleware.RequirePermission(permission.RolesView)).Get("/roles/{role_id}", handlers.Admin.GetRole)
			admin.With(authMiddleware.RequirePermission(permission.RolesManage)).Put("/roles/{role_id}", handlers.Admin.UpdateRole)
			admin.With(authMiddleware.RequirePermission(permission.RolesManage)).Delete("/roles/{role_id}", handlers.Admin.DeleteRole)

			admin.With(authMiddleware.RequirePermission(permission.LogsView)).Get("/logs", handlers.Admin.ListAuditLogs)

			admin.With(authMiddleware.RequirePermission(permission.SystemTablesView)).Get("/system/tables", handlers.System.Tables)
			admin.With(authMiddleware.RequirePermission(permission.SystemTablesView)).Get("/system/tables/{table_name}", handlers.System.TableRecords)
			admin.With(authMiddleware.RequirePermission(permission.SystemHealthView)).Get("/system/health", handlers.System.Health)

			admin.With(authMiddleware.RequirePermission(permission.RolesView)).Get("/permissions", handlers.Permission.Available)
			admin.With(authMiddleware.RequirePermission(permission.UsersView)).Get("/permissions/user/{user_id}", handlers.Permission.UserPermissions)
			admin.With(authMiddleware.RequirePermission(permission.UsersView)).Post("/permissions/check/{user_id}", handlers.Permission.Check)
		})
	})

	return r
}
