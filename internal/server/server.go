package server

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/bjarke-xyz/course-applications/internal/domain"
	"github.com/bjarke-xyz/course-applications/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

//go:embed static
var staticFiles embed.FS

const (
	loginPath = "/login"
	listPath  = "/applications/list/"
)

type server struct {
	logger *slog.Logger

	verifier TokenVerifier
	signIn   PasswordSignIn

	secureCookies bool

	applications *service.ApplicationService
	metrics      *metrics

	staticFilesFs fs.FS
}

type Options struct {
	// SecureCookies marks the session cookie Secure. Disable only for local
	// development over plain http.
	SecureCookies bool
	// Registerer receives the server's collectors. Defaults to
	// prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

func NewServer(logger *slog.Logger, verifier TokenVerifier, signIn PasswordSignIn, appRepo domain.ApplicationRepository, opts Options) (*server, error) {
	staticFilesFs, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, err
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	m, err := newMetrics(opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return &server{
		logger:        logger,
		verifier:      verifier,
		signIn:        signIn,
		secureCookies: opts.SecureCookies,
		applications:  service.NewApplicationService(appRepo),
		metrics:       m,
		staticFilesFs: staticFilesFs,
	}, nil
}

func (s *server) Server(port int) *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.routes(),
	}
}

func (s *server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(s.staticFilesFs))))
	r.Get("/up", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "up!")
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, listPath, http.StatusFound)
	})

	r.Get(loginPath, s.handleGetLogin)
	r.Post(loginPath, s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Route("/applications", func(r chi.Router) {
		r.Use(s.firebaseJwtVerifier)
		r.Get("/list/", s.withUser(s.handleListApplications))

		r.Get("/create/", s.withUser(s.handleGetCreateApplication))
		r.Post("/create/", s.withUser(s.handlePostCreateApplication))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/update/", s.withTarget(s.handleGetUpdateApplication))
			r.Post("/update/", s.withTarget(s.handlePostUpdateApplication))

			r.Get("/delete/", s.withTarget(s.handleGetDeleteApplication))
			r.Post("/delete/", s.withTarget(s.handlePostDeleteApplication))
		})
	})
	return r
}
