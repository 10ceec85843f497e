package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/storefront/core"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

// Handler exposes the catalog over HTTP. It expects the request context to
// be attached by the tenant and auth middleware.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Handler{svc: svc, logger: log}
}

// Routes mounts the storefront endpoints. Writes require an authenticated
// principal.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/products", h.list)
	r.Get("/products/{id}", h.get)
	r.Get("/search", h.search)
	r.Group(func(r chi.Router) {
		r.Use(requirePrincipal)
		r.Post("/products", h.create)
		r.Put("/products/{id}/price", h.updatePrice)
		r.Delete("/products/{id}", h.delete)
	})
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	in := ListInput{Category: q.Get("category"), Limit: intParam(q.Get("limit")), Offset: intParam(q.Get("offset"))}

	products, err := h.svc.List(r.Context(), rc, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = core.JSON(w, http.StatusOK, products, map[string]any{"count": len(products)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), rc, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = core.JSON(w, http.StatusOK, p, nil)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	products, err := h.svc.Search(r.Context(), rc, r.URL.Query().Get("q"), intParam(r.URL.Query().Get("limit")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = core.JSON(w, http.StatusOK, products, map[string]any{"count": len(products)})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	var in CreateInput
	if err := core.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.svc.Create(r.Context(), rc, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = core.JSON(w, http.StatusCreated, p, nil)
}

func (h *Handler) updatePrice(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	var in struct {
		Price int64 `json:"price"`
	}
	if err := core.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.svc.UpdatePrice(r.Context(), rc, chi.URLParam(r, "id"), in.Price)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = core.JSON(w, http.StatusOK, p, nil)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), rc, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	core.NoContent(w)
}

func (h *Handler) requestContext(w http.ResponseWriter, r *http.Request) (reqctx.Context, bool) {
	rc, err := reqctx.FromContext(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return reqctx.Context{}, false
	}
	return rc, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if core.ErrorFor(err).Code >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "catalog: request failed", logger.Error(err))
	}
	_ = core.JSONError(w, err)
}

func requirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc, err := reqctx.FromContext(r.Context())
		if err == nil && rc.IsGuest() {
			_ = core.JSONError(w, core.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func intParam(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
