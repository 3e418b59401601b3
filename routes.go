package accessgate

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns a router serving every portal endpoint.
func (p *Portal) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(p.StartSession)
	if p.xsrf {
		r.Use(p.SetXSRFToken, p.ValidateXSRFToken)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/signin", p.Login())
		r.Get("/callback", p.Callback())
		r.Get("/session", p.Status())
		r.Post("/refresh", p.RefreshStatus())
		r.Post("/signout", p.SignOut())
	})

	r.Route("/api/admin/users", func(r chi.Router) {
		r.Use(p.RequireContent, p.RequireAdministrator)
		r.Get("/", p.ListUsers())
		r.Post("/access", p.UpdateUserAccess())
		r.Post("/status", p.UpdateUserStatus())
		r.Post("/delete", p.DeleteUser())
	})

	r.With(p.RequireContent).Handle("/pocs/{poc}/api/*", p.Proxy())

	return r
}
