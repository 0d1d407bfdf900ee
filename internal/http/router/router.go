package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aidashboard/dashboard-auth/internal/http/handler"
	"github.com/aidashboard/dashboard-auth/internal/http/middleware"
	"github.com/aidashboard/dashboard-auth/internal/http/response"
	"github.com/aidashboard/dashboard-auth/internal/security"
)

type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	UserHandler      *handler.UserHandler
	Tokens           middleware.TokenRedeemer
	Cookies          *security.CookieManager
	CORSOrigins      []string
	AuthRateLimitRPM int
	AuthRateLimiter  func(http.Handler) http.Handler
	Readiness        []Probe
	EnableOTelHTTP   bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(1 << 20))

	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute).Middleware()
	}
	gate := middleware.AuthGate(dep.Tokens, dep.Cookies)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", readyHandler(dep.Readiness))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(authLimiter)
				r.Post("/register", dep.AuthHandler.Register)
				r.Post("/login", dep.AuthHandler.Login)
				r.Get("/google", dep.AuthHandler.GoogleStart)
				r.Get("/google/callback", dep.AuthHandler.GoogleCallback)
				r.Post("/password/request", dep.AuthHandler.RequestPasswordReset)
				r.Post("/password/verify-otp", dep.AuthHandler.VerifyResetOTP)
				r.Post("/password/reset", dep.AuthHandler.ResetPassword)
			})
			r.Group(func(r chi.Router) {
				r.Use(gate)
				r.Post("/logout", dep.AuthHandler.Logout)
				r.Post("/verify", dep.AuthHandler.VerifyEmail)
				r.With(authLimiter).Post("/verify/resend", dep.AuthHandler.ResendVerification)
				r.With(authLimiter).Post("/password", dep.AuthHandler.ChangePassword)
			})
		})

		r.With(gate).Get("/me", dep.UserHandler.Me)
		r.Route("/me/sessions", func(r chi.Router) {
			r.Use(gate, middleware.RequireVerified)
			r.Get("/", dep.UserHandler.Sessions)
			r.Delete("/{id}", dep.UserHandler.RevokeSession)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
