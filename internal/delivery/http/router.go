package http

import (
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventhub/internal/delivery/http/controllers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"
)

// RouterConfig carries everything the router needs.
type RouterConfig struct {
	Logger         *slog.Logger
	Verifier       domain.TokenVerifier
	Users          middleware.UserLoader
	AllowedOrigins []string
	RequestTimeout time.Duration

	Auth       *controllers.AuthController
	Events     *controllers.EventController
	Attendees  *controllers.AttendeeController
	Categories *controllers.CategoryController
	AdminUsers *controllers.UserController
}

// NewRouter initializes the HTTP router with all application routes and wraps it in the
// request middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	authed := middleware.RequireAuth(cfg.Verifier, cfg.Users, cfg.Logger)
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return authed(middleware.RequireRole(domain.RoleAdmin)(h))
	}
	staff := func(h http.HandlerFunc) http.HandlerFunc {
		return authed(middleware.RequireRole(domain.RoleAdmin, domain.RoleOrganizer)(h))
	}

	// Auth
	mux.HandleFunc("POST /auth/register", cfg.Auth.Register)
	mux.HandleFunc("POST /auth/login", cfg.Auth.Login)
	mux.HandleFunc("GET /me", authed(cfg.Auth.Me))
	mux.HandleFunc("GET /me/registrations", authed(cfg.Attendees.ListMyRegistrations))

	// Categories
	mux.HandleFunc("GET /categories", authed(cfg.Categories.ListCategories))
	mux.HandleFunc("POST /categories", admin(cfg.Categories.CreateCategory))
	mux.HandleFunc("GET /categories/{categoryID}", authed(cfg.Categories.GetCategory))
	mux.HandleFunc("PUT /categories/{categoryID}", admin(cfg.Categories.UpdateCategory))
	mux.HandleFunc("DELETE /categories/{categoryID}", admin(cfg.Categories.DeleteCategory))

	// Events
	mux.HandleFunc("GET /events", authed(cfg.Events.ListEvents))
	mux.HandleFunc("POST /events", staff(cfg.Events.CreateEvent))
	mux.HandleFunc("GET /events/{eventID}", authed(cfg.Events.GetEvent))
	mux.HandleFunc("PATCH /events/{eventID}", staff(cfg.Events.UpdateEvent))
	mux.HandleFunc("DELETE /events/{eventID}", admin(cfg.Events.DeleteEvent))

	// Registrations
	mux.HandleFunc("POST /events/{eventID}/register", authed(cfg.Attendees.Register))
	mux.HandleFunc("POST /events/{eventID}/cancel-registration", authed(cfg.Attendees.CancelRegistration))
	mux.HandleFunc("GET /events/{eventID}/participants", staff(cfg.Attendees.ListParticipants))
	mux.HandleFunc("POST /events/{eventID}/attendance", staff(cfg.Attendees.MarkAttendance))

	// Admin
	mux.HandleFunc("GET /admin/users", admin(cfg.AdminUsers.ListUsers))
	mux.HandleFunc("POST /admin/users", admin(cfg.AdminUsers.CreateUser))
	mux.HandleFunc("PUT /admin/users/{userID}", admin(cfg.AdminUsers.UpdateUser))
	mux.HandleFunc("DELETE /admin/users/{userID}", admin(cfg.AdminUsers.DeleteUser))
	mux.HandleFunc("POST /admin/users/{userID}/toggle-active", admin(cfg.AdminUsers.ToggleActive))
	mux.HandleFunc("POST /admin/events/{eventID}/force-register", admin(cfg.Attendees.ForceRegister))
	mux.HandleFunc("DELETE /admin/events/{eventID}/remove-participant", admin(cfg.Attendees.RemoveParticipant))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	var handler http.Handler = mux
	handler = middleware.Timeout(cfg.RequestTimeout, handler)
	handler = middleware.CORS(cfg.AllowedOrigins, handler)
	handler = middleware.LoggingMiddleware(cfg.Logger, handler)
	handler = middleware.Recover(cfg.Logger, handler)
	return handler
}
