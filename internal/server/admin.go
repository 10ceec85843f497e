package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/storefront/core"
	"github.com/dmitrymomot/storefront/pkg/audit"
	"github.com/dmitrymomot/storefront/pkg/auth"
	"github.com/dmitrymomot/storefront/pkg/correlation"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
	"github.com/dmitrymomot/storefront/pkg/tenant"
)

type adminHandler struct {
	Deps
}

func newAdminHandler(d Deps) *adminHandler {
	return &adminHandler{Deps: d}
}

func (h *adminHandler) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSystem(h.Auth,
		auth.WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) { _ = core.JSONError(w, err) }),
	))

	r.Get("/tenants", h.listTenants)
	r.Route("/tenants/{id}", func(r chi.Router) {
		r.Get("/", h.getTenant)
		r.Put("/", h.upsertTenant)
		r.Delete("/", h.deleteTenant)
		r.Post("/suspend", h.setStatus(tenant.StatusSuspended))
		r.Post("/activate", h.setStatus(tenant.StatusActive))
		r.Post("/invalidate", h.invalidate)
	})
	r.Post("/jobs/reindex", h.reindex)
	r.Get("/audit/violations", h.violations)
	return r
}

type upsertRequest struct {
	RoutingKey   string `json:"routing_key"`
	CustomDomain string `json:"custom_domain"`
	Name         string `json:"name"`
	Status       string `json:"status"`
}

func (h *adminHandler) listTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.Registry.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = core.JSON(w, http.StatusOK, tenants, map[string]any{"count": len(tenants)})
}

func (h *adminHandler) getTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.Registry.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = core.JSON(w, http.StatusOK, t, nil)
}

func (h *adminHandler) upsertTenant(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	now := time.Now().UTC()
	t := &tenant.Tenant{
		ID:           chi.URLParam(r, "id"),
		RoutingKey:   strings.TrimSpace(req.RoutingKey),
		CustomDomain: strings.TrimSpace(req.CustomDomain),
		Name:         strings.TrimSpace(req.Name),
		Status:       tenant.Status(req.Status),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if existing, err := h.Registry.Get(r.Context(), t.ID); err == nil {
		t.CreatedAt = existing.CreatedAt
	}
	if err := h.Admin.Upsert(r.Context(), t); err != nil {
		h.fail(w, r, err)
		return
	}
	h.Logger.WarnContext(r.Context(), "admin: tenant upserted",
		logger.TenantID(t.ID), h.operator(r))
	_ = core.JSON(w, http.StatusOK, t, nil)
}

func (h *adminHandler) setStatus(status tenant.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := h.Admin.SetStatus(r.Context(), chi.URLParam(r, "id"), status)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.Logger.WarnContext(r.Context(), "admin: tenant status changed",
			logger.TenantID(t.ID), slog.String("status", string(status)), h.operator(r))
		_ = core.JSON(w, http.StatusOK, t, nil)
	}
}

func (h *adminHandler) deleteTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Admin.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.Logger.WarnContext(r.Context(), "admin: tenant deleted", logger.TenantID(id), h.operator(r))
	core.NoContent(w)
}

func (h *adminHandler) invalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.Registry.Invalidate(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	core.NoContent(w)
}

// reindex rebuilds every tenant's search index under a system context that
// carries the request's correlation id.
func (h *adminHandler) reindex(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		_ = core.JSONError(w, core.ErrServiceUnavailable)
		return
	}
	sys := reqctx.NewSystem(correlation.FromContext(r.Context()))
	n, err := h.Catalog.Reindex(r.Context(), sys, h.Registry)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = core.JSON(w, http.StatusOK, map[string]any{"indexed": n}, nil)
}

func (h *adminHandler) violations(w http.ResponseWriter, r *http.Request) {
	if h.Audit == nil {
		_ = core.JSONError(w, core.ErrServiceUnavailable)
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	events, err := h.Audit.Find(r.Context(), audit.Criteria{
		TenantID:          q.Get("tenant_id"),
		AttemptedTenantID: q.Get("attempted_tenant_id"),
		Result:            audit.ResultDenied,
		Limit:             limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = core.JSON(w, http.StatusOK, events, map[string]any{"count": len(events)})
}

func (h *adminHandler) operator(r *http.Request) slog.Attr {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		return slog.String("operator", claims.Subject)
	}
	return slog.Attr{}
}

func (h *adminHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if core.ErrorFor(err).Code >= http.StatusInternalServerError {
		h.Logger.ErrorContext(r.Context(), "admin: request failed", logger.Error(err))
	}
	_ = core.JSONError(w, err)
}
