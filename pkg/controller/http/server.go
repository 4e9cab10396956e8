package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/inkfold/writerstudio/pkg/usecase"
	"github.com/inkfold/writerstudio/pkg/utils/logging"
)

type Server struct {
	router *chi.Mux
	uc     *usecase.UseCases
}

type Options func(*Server)

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	r.Post("/evaluate", evaluateHandler(uc))
	r.Get("/evaluations/{id}", getEvaluationHandler(uc))
	r.Get("/search", searchEvaluationsHandler(uc))

	r.Route("/profiles", func(r chi.Router) {
		r.Get("/", listProfilesHandler(uc))
		r.Post("/", createProfileHandler(uc))
		r.Get("/by_name", getProfileByNameHandler(uc))
		r.Get("/search", searchProfilesHandler(uc))
		r.Get("/{id}", getProfileHandler(uc))
		r.Put("/{id}", updateProfileHandler(uc))
	})

	r.Route("/templates", func(r chi.Router) {
		r.Get("/", listTemplatesHandler(uc))
		r.Post("/", createTemplateHandler(uc))
		r.Get("/search", searchTemplatesHandler(uc))
		r.Get("/{id}", getTemplateHandler(uc))
		r.Post("/{id}/use", useTemplateHandler(uc))
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
