package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/laibashaikh28/twee-webapp/internal/auth"
	"github.com/laibashaikh28/twee-webapp/internal/middleware"
	"github.com/laibashaikh28/twee-webapp/internal/services"
	"github.com/laibashaikh28/twee-webapp/internal/session"
)

type RouterConfig struct {
	Verifier auth.TokenVerifier
	// LocalAuth enables POST /api/auth/login when set.
	LocalAuth *auth.LocalAuth
	Users     UserLookup
	Profiles  *services.ProfileService
	Sessions  *session.Manager
	// UploadDir is served under /uploads/ when set.
	UploadDir       string
	MaxUploadSizeMB int64
	AllowedOrigins  []string
	Logger          *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	profileHandler := NewProfileHandler(cfg.Profiles, cfg.Users, cfg.MaxUploadSizeMB, log)
	sessionHandler := NewSessionHandler(cfg.Sessions, cfg.MaxUploadSizeMB, log)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.AccessLog(log.Named("http")))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		if cfg.LocalAuth != nil {
			authHandler := NewAuthHandler(cfg.LocalAuth, log)
			r.Post("/auth/login", authHandler.Login)
		}

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.Verifier))

			r.Get("/profile", profileHandler.GetProfile)
			r.Put("/profile", profileHandler.ReplaceProfile)
			r.Post("/profile/avatar", profileHandler.UploadAvatar)

			r.Route("/users/{userId}", func(r chi.Router) {
				r.Get("/profile", profileHandler.GetPublicProfile)
				r.Get("/posts", profileHandler.GetUserPosts)
			})

			r.Post("/sessions", sessionHandler.Create)
			r.Route("/sessions/{sessionId}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Delete("/", sessionHandler.Delete)
				r.Post("/signin", sessionHandler.SignIn)
				r.Post("/signout", sessionHandler.SignOut)

				r.Route("/editor", func(r chi.Router) {
					r.Post("/", sessionHandler.OpenEditor)
					r.Patch("/", sessionHandler.UpdateForm)
					r.Delete("/", sessionHandler.CloseEditor)
					r.Post("/avatar", sessionHandler.UploadAvatar)
					r.Post("/submit", sessionHandler.Submit)
				})
			})
		})
	})

	if cfg.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
	}
	return r
}
