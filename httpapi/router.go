package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the credit ledger's HTTP surface. The caller mounts
// the returned handler at its chosen base path (conventionally
// "/credit"); nothing here assumes a particular prefix. Deps.Engine and
// Deps.UserID must be set. Every other Deps field is optional, and the
// routes that depend on a missing one respond 404 or refuse silently
// where the underlying spec endpoint is itself optional (Payment,
// Redemption, Pricing).
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	h := &handlers{deps: deps}

	r.Get("/config", h.getConfig)
	r.Get("/logs", h.listUserLogs)
	r.Get("/all_logs", h.requireAdmin(h.listAllLogs))
	r.Delete("/logs", h.requireAdmin(h.deleteLogs))

	r.Post("/tickets", h.createTicket)
	r.Get("/callback", h.paymentCallback)
	r.Get("/callback/redirect", h.paymentCallbackRedirect)

	r.Get("/models/price", h.requireAdmin(h.getModelPrice))
	r.Put("/models/price", h.requireAdmin(h.putModelPrice))

	r.Get("/redemption_codes", h.requireAdmin(h.listRedemptionCodes))
	r.Post("/redemption_codes", h.requireAdmin(h.issueRedemptionCodes))
	r.Get("/redemption_codes/export", h.requireAdmin(h.exportRedemptionCodes))
	r.Put("/redemption_codes/{code}", h.requireAdmin(h.updateRedemptionCode))
	r.Delete("/redemption_codes/{code}", h.requireAdmin(h.deleteRedemptionCode))
	r.Get("/redemption_codes/{code}/receive", h.receiveRedemptionCode)

	r.Post("/statistics", h.requireAdmin(h.statistics))

	return r
}

type handlers struct {
	deps Deps
}

var errNoUser = errors.New("httpapi: request carries no identifiable user")

func (h *handlers) requireUser(r *http.Request) (string, error) {
	if h.deps.UserID == nil {
		return "", errNoUser
	}
	return h.deps.UserID(r)
}

// requireAdmin wraps next so it only runs for requests Deps.Admin
// approves; a nil Admin refuses every request it guards.
func (h *handlers) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.deps.Admin == nil || !h.deps.Admin(r) {
			writeError(w, http.StatusForbidden, "admin authorization required")
			return
		}
		next(w, r)
	}
}
