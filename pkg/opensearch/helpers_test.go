package opensearch

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/isolation"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

// scopeCapture records the scope the enforcer hands to the backend.
type scopeCapture struct {
	isolation.MemoryIndex
	scope *isolation.Scope
}

func (s *scopeCapture) Search(_ context.Context, scope isolation.Scope, _ isolation.Query) ([]isolation.Document, error) {
	*s.scope = scope
	return nil, nil
}

func scopeFor(t *testing.T, tenantID string) isolation.Scope {
	t.Helper()
	rc, err := reqctx.New(tenantID, "")
	require.NoError(t, err)

	var scope isolation.Scope
	index := isolation.NewScopedIndex(isolation.NewEnforcer(), &scopeCapture{scope: &scope}, "doc")
	_, err = index.Search(t.Context(), rc, isolation.Query{})
	require.NoError(t, err)
	require.False(t, scope.IsZero())
	return scope
}

type recordedRequest struct {
	method string
	path   string
	query  map[string]string
	body   string
}

// fakeTransport answers every request with the next canned response.
type fakeTransport struct {
	mu        sync.Mutex
	requests  []recordedRequest
	responses []*http.Response
}

func (f *fakeTransport) respond(status int, body string) *fakeTransport {
	f.responses = append(f.responses, &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	})
	return f
}

func (f *fakeTransport) Perform(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec := recordedRequest{method: req.Method, path: req.URL.Path, query: map[string]string{}}
	for k := range req.URL.Query() {
		rec.query[k] = req.URL.Query().Get(k)
	}
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		rec.body = string(b)
	}
	f.requests = append(f.requests, rec)

	if len(f.responses) == 0 {
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}"))}, nil
	}
	res := f.responses[0]
	f.responses = f.responses[1:]
	return res, nil
}

func (f *fakeTransport) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}
