package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/boardlock/boardlock/internal/auth"
)

// NewRouter wires the API surface. Reads are open; mutations sit behind the
// bearer-token middleware so the capability check always has a verified role.
func NewRouter(tasks *TaskHandler, login *AuthHandler, tokens *auth.Tokens) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok"}`)
	})

	r.Post("/api/login", login.Login)
	r.Get("/api/stats", tasks.Stats)

	r.Route("/api/tasks", func(r chi.Router) {
		r.Get("/", tasks.List)

		r.Group(func(r chi.Router) {
			r.Use(tokens.Middleware)
			r.Post("/", tasks.Create)
			r.Put("/", tasks.Update)
			r.Delete("/", tasks.Delete)
		})
	})

	return r
}
