package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/alora-hq/alora/internal/admin"
	"github.com/alora-hq/alora/internal/api/handlers"
	"github.com/alora-hq/alora/internal/api/middleware"
	"github.com/alora-hq/alora/internal/auth"
	"github.com/alora-hq/alora/internal/orgs"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	JWTService     *auth.JWTService
	AuthService    *auth.Service
	OrgService     *orgs.Service
	AdminService   *admin.Service
	AllowedOrigins []string // CORS allowed origins
	RateLimitReqs  int      // Rate limit requests per window
	RateLimitSecs  int      // Rate limit window in seconds
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		// Default to localhost for development - configure in production
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	userHandler := handlers.NewUserHandler(cfg.AuthService)
	orgHandler := handlers.NewOrgHandler(cfg.OrgService)
	inviteHandler := handlers.NewInviteHandler(cfg.OrgService)
	adminHandler := handlers.NewAdminHandler(cfg.AdminService)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Post("/google", authHandler.GoogleAuth)
			r.Post("/github", authHandler.GitHubAuth)
			r.Get("/check-email", authHandler.CheckEmail)
			r.Post("/verify-email", authHandler.VerifyEmail)
			r.Post("/resend-verification", authHandler.ResendVerification)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService))

			r.Route("/users/me", func(r chi.Router) {
				r.Get("/", userHandler.Me)
				r.Patch("/", userHandler.UpdateInfo)
				r.Post("/change-password", userHandler.ChangePassword)
				r.Get("/linked-accounts", userHandler.LinkedAccounts)
				r.Delete("/linked-accounts/{provider}", userHandler.UnlinkAccount)
				r.Get("/invites", inviteHandler.ListMine)
			})

			r.Route("/orgs", func(r chi.Router) {
				r.Get("/", orgHandler.List)
				r.Post("/", orgHandler.Create)
				r.Get("/mine", orgHandler.ListMine)
				r.Post("/join-by-invite", inviteHandler.Accept)

				r.Route("/{orgID}", func(r chi.Router) {
					r.Get("/", orgHandler.Get)
					r.Post("/join", orgHandler.Join)
					r.Post("/leave", orgHandler.Leave)
					r.Get("/members", orgHandler.ListMembers)
					r.Put("/members/{userID}/roles", orgHandler.UpdateMemberRoles)
					r.Delete("/members/{userID}", orgHandler.RemoveMember)

					r.Route("/invites", func(r chi.Router) {
						r.Get("/", inviteHandler.ListForOrg)
						r.Post("/", inviteHandler.Create)
						r.Delete("/{inviteID}", inviteHandler.Revoke)
					})
				})
			})

			// Global admin surface
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireGlobalAdmin(cfg.DB))

				r.Get("/stats", adminHandler.Stats)
				r.Get("/stats/top-orgs", adminHandler.TopOrgs)

				r.Route("/users", func(r chi.Router) {
					r.Get("/", adminHandler.ListUsers)
					r.Get("/{userID}", adminHandler.GetUser)
					r.Patch("/{userID}", adminHandler.UpdateUser)
					r.Delete("/{userID}", adminHandler.DeleteUser)
				})

				r.Route("/orgs", func(r chi.Router) {
					r.Get("/", adminHandler.ListOrgs)
					r.Get("/{orgID}", adminHandler.GetOrg)
					r.Patch("/{orgID}", adminHandler.UpdateOrg)
					r.Delete("/{orgID}", adminHandler.DeleteOrg)
					r.Post("/{orgID}/members", adminHandler.AddMember)
					r.Delete("/{orgID}/members/{userID}", adminHandler.RemoveMember)
				})
			})
		})
	})

	return &Router{r}
}
