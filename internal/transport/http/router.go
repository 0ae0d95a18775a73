package http

import (
	"crypto/subtle"
	"net/http"
	"time"

	"contest-service/internal/app"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
)

// AdminTokenHeader carries the shared admin secret.
const AdminTokenHeader = "X-Admin-Token"

type RouterOptions struct {
	// Logger enables request logging when set.
	Logger *httplog.Logger
	// AdminToken guards /api/admin; empty leaves it open.
	AdminToken     string
	AllowedOrigins []string
	// ViewInterval is how often websocket clients get a fresh view without any change.
	ViewInterval time.Duration
	// DefaultDuration applies to start requests that leave the duration out.
	DefaultDuration time.Duration
}

// NewRouter wires the REST API and the websocket endpoint.
func NewRouter(service *app.ContestService, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	if opts.Logger != nil {
		r.Use(httplog.RequestLogger(opts.Logger))
	}
	r.Use(chiMiddleware.Recoverer)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", AdminTokenHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	ws := NewWSHandler(service, opts.ViewInterval)
	r.Get("/ws", ws.ServeWS)

	h := &Handler{service: service, defaultDuration: opts.DefaultDuration}
	if h.defaultDuration <= 0 {
		h.defaultDuration = app.DefaultDuration
	}
	r.Route("/api", func(api chi.Router) {
		api.Use(chiMiddleware.Timeout(30 * time.Second))

		api.Post("/sessions", h.join)
		api.Route("/sessions/{sessionID}", func(sr chi.Router) {
			sr.Get("/view", h.view)
			sr.Post("/submissions", h.submit)
			sr.Delete("/", h.leave)
		})
		api.Get("/standings", h.standings)

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(requireAdmin(opts.AdminToken))
			admin.Get("/status", h.status)
			admin.Get("/contests", h.contests)
			admin.Post("/contest/start", h.startContest)
			admin.Post("/contest/stop", h.stopContest)
			admin.Post("/scores/reset", h.resetScores)
			admin.Post("/problems", h.addProblem)
			admin.Post("/users", h.registerUsers)
		})
	})
	return r
}

func requireAdmin(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(AdminTokenHeader)), []byte(token)) != 1 {
				writeErrorStatus(w, http.StatusUnauthorized, "unauthorized", "admin token required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
