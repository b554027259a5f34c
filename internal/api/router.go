package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Log rows: shim pushes observations, panel reads decisions.
	r.Get("/rows", h.ListRows)
	r.Post("/rows", h.AppendRows)

	// Filters.
	r.Get("/filters", h.GetFilters)
	r.Post("/filters/{key}/toggle", h.ToggleFilter)

	// Hidden-domain set.
	r.Get("/hidden", h.ListHidden)
	r.Post("/hidden", h.HideDomain)
	r.Post("/hidden/import", h.ImportHidden)
	r.Delete("/hidden", h.ClearHidden)

	// Domain actions against the remote lists.
	r.Post("/domains/deny", h.DenyDomain)
	r.Post("/domains/allow", h.AllowDomain)
	r.Delete("/domains/{list}/{domain}", h.RemoveDomain)
	r.Get("/actions", h.ListActions)
	r.Get("/actions/lookup", h.LookupAction)

	// Preload sessions.
	r.Get("/preload", h.PreloadStatus)
	r.Post("/preload", h.StartPreload)
	r.Delete("/preload", h.CancelPreload)
	r.Post("/scroll", h.ReportScroll)

	// Credential handoff.
	r.Get("/handoff", h.HandoffState)
	r.Post("/handoff", h.HandoffBegin)
	r.Post("/handoff/confirm", h.HandoffConfirm)
	r.Post("/handoff/capture", h.HandoffCapture)
	r.Post("/handoff/manual", h.HandoffManual)
	r.Post("/handoff/account", h.HandoffAccountSignals)

	// Exports.
	r.Get("/export/hosts", h.ExportHosts)
	r.Get("/export/hidden", h.ExportHidden)
	r.Get("/export/profile", h.ExportProfile)

	// Allow/deny list page.
	r.Get("/list/options", h.GetListOptions)
	r.Post("/list/options/{key}/toggle", h.ToggleListOption)
	r.Post("/list/view", h.ListView)

	// Settings.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
