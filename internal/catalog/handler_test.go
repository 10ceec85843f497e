package catalog_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/internal/catalog"
	"github.com/dmitrymomot/storefront/pkg/audit"
	"github.com/dmitrymomot/storefront/pkg/isolation"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

// withContext stands in for the tenant and auth middleware.
func withContext(rc reqctx.Context, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(reqctx.Attach(r.Context(), rc)))
	})
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	routes := catalog.NewHandler(e.svc, nil).Routes()

	staff := withContext(requestContext(t, "T-1").WithPrincipal("P-1", "staff"), routes)
	guest := withContext(requestContext(t, "T-1"), routes)
	other := withContext(requestContext(t, "T-2").WithPrincipal("P-2", "staff"), routes)

	rec := serve(guest, http.MethodPost, "/products", `{"sku":"SKU-1","name":"Trail boots","price":100}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "guests cannot write")

	rec = serve(staff, http.MethodPost, "/products", `{"sku":"SKU-0","name":"Forged","price":100,"tenant_id":"T-2"}`)
	require.Equal(t, http.StatusCreated, rec.Code, "payload tenant is replaced, not rejected")
	var forged struct {
		Data catalog.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &forged))
	assert.Equal(t, "T-1", forged.Data.TenantID)
	overwritten, err := e.audit.Query(t.Context(), audit.Criteria{Operation: isolation.OpCreate, AttemptedTenantID: "T-2"})
	require.NoError(t, err)
	require.Len(t, overwritten, 1)
	assert.Equal(t, "T-1", overwritten[0].TenantID)
	assert.Equal(t, http.StatusNotFound, serve(other, http.MethodGet, "/products/"+forged.Data.ID, "").Code)
	assert.Equal(t, http.StatusOK, serve(guest, http.MethodGet, "/products/"+forged.Data.ID, "").Code)

	rec = serve(staff, http.MethodPost, "/products", `{"sku":"","name":"","price":100}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serve(staff, http.MethodPost, "/products", `{"sku":"SKU-1","name":"Trail boots","category":"shoes","price":100}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data catalog.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created.Data.ID
	assert.Equal(t, "T-1", created.Data.TenantID)

	assert.Equal(t, http.StatusOK, serve(guest, http.MethodGet, "/products/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, serve(other, http.MethodGet, "/products/"+id, "").Code)
	assert.Equal(t, http.StatusForbidden, serve(other, http.MethodDelete, "/products/"+id, "").Code)

	rec = serve(guest, http.MethodGet, "/products?category=shoes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = serve(other, http.MethodGet, "/search?q=boots", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":0`)

	rec = serve(staff, http.MethodPut, "/products/"+id+"/price", `{"price":250}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price":250`)

	assert.Equal(t, http.StatusNoContent, serve(staff, http.MethodDelete, "/products/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, serve(guest, http.MethodGet, "/products/"+id, "").Code)

	rec = serve(routes, http.MethodGet, "/products", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code, "no request context")
}
