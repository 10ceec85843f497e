package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/dmitrymomot/storefront/pkg/isolation"
)

const defaultSearchSize = 100

// SearchBackend implements isolation.SearchBackend on one shared index.
type SearchBackend struct {
	transport opensearchapi.Transport
	index     string
	refresh   string
}

var _ isolation.SearchBackend = (*SearchBackend)(nil)

// NewSearchBackend accepts any transport; *opensearch.Client satisfies it.
func NewSearchBackend(transport opensearchapi.Transport, cfg Config) *SearchBackend {
	index := cfg.Index
	if index == "" {
		index = "storefront-documents"
	}
	return &SearchBackend{transport: transport, index: index, refresh: cfg.Refresh}
}

// EnsureIndex creates the index with keyword tenant and id fields when it
// does not exist yet.
func (b *SearchBackend) EnsureIndex(ctx context.Context) error {
	res, err := opensearchapi.IndicesExistsRequest{Index: []string{b.index}}.Do(ctx, b.transport)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(indexMapping())
	if err != nil {
		return err
	}
	res, err = opensearchapi.IndicesCreateRequest{Index: b.index, Body: bytes.NewReader(body)}.Do(ctx, b.transport)
	return checkResponse(res, err)
}

func (b *SearchBackend) Index(ctx context.Context, scope isolation.Scope, doc isolation.Document) error {
	if scope.IsZero() {
		return ErrUnscopedQuery
	}
	doc.TenantID = scope.TenantID()
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	res, err := opensearchapi.IndexRequest{
		Index:      b.index,
		DocumentID: documentID(scope, doc.ID),
		Body:       bytes.NewReader(body),
		Routing:    scope.TenantID(),
		Refresh:    b.refresh,
	}.Do(ctx, b.transport)
	return checkResponse(res, err)
}

func (b *SearchBackend) Search(ctx context.Context, scope isolation.Scope, q isolation.Query) ([]isolation.Document, error) {
	query, err := buildSearch(scope, q)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	res, err := opensearchapi.SearchRequest{
		Index:   []string{b.index},
		Body:    bytes.NewReader(body),
		Routing: []string{scope.TenantID()},
	}.Do(ctx, b.transport)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, res.String())
	}
	return decodeHits(res.Body)
}

// Delete removes one of the scope's documents. Missing documents are not an
// error.
func (b *SearchBackend) Delete(ctx context.Context, scope isolation.Scope, id string) error {
	if scope.IsZero() {
		return ErrUnscopedQuery
	}
	res, err := opensearchapi.DeleteRequest{
		Index:      b.index,
		DocumentID: documentID(scope, id),
		Routing:    scope.TenantID(),
		Refresh:    b.refresh,
	}.Do(ctx, b.transport)
	if err == nil && res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return nil
	}
	return checkResponse(res, err)
}

// documentID keeps equal ids of different tenants apart in the shared index.
func documentID(scope isolation.Scope, id string) string {
	return isolation.TenantPrefix(scope.TenantID()) + id
}

func checkResponse(res *opensearchapi.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrRequestFailed, res.String())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source isolation.Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func decodeHits(r io.Reader) ([]isolation.Document, error) {
	var resp searchResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: decode hits: %w", ErrRequestFailed, err)
	}
	out := make([]isolation.Document, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
