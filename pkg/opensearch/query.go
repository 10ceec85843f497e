package opensearch

import (
	"fmt"
	"regexp"

	"github.com/dmitrymomot/storefront/pkg/isolation"
)

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func indexMapping() map[string]any {
	return map[string]any{
		"mappings": map[string]any{
			"dynamic_templates": []any{
				map[string]any{
					"field_strings": map[string]any{
						"path_match":         "fields.*",
						"match_mapping_type": "string",
						"mapping": map[string]any{
							"type": "text",
							"fields": map[string]any{
								"keyword": map[string]any{"type": "keyword", "ignore_above": 256},
							},
						},
					},
				},
			},
			"properties": map[string]any{
				"id":                  map[string]any{"type": "keyword"},
				isolation.TenantField: map[string]any{"type": "keyword"},
				"fields":              map[string]any{"type": "object"},
			},
		},
	}
}

// buildSearch renders the request body of a scoped search. The tenant term
// is always the first filter clause.
func buildSearch(scope isolation.Scope, q isolation.Query) (map[string]any, error) {
	if scope.IsZero() {
		return nil, ErrUnscopedQuery
	}

	filter := []any{term(isolation.TenantField, scope.TenantID())}
	var mustNot []any
	for _, c := range q.Filters {
		if !fieldName.MatchString(c.Field) || c.Field == isolation.TenantField {
			return nil, fmt.Errorf("%w: %q", ErrInvalidField, c.Field)
		}
		switch v := c.Value.(type) {
		case nil:
			mustNot = append(mustNot, map[string]any{"exists": map[string]any{"field": "fields." + c.Field}})
		case string:
			filter = append(filter, term("fields."+c.Field+".keyword", v))
		default:
			filter = append(filter, term("fields."+c.Field, v))
		}
	}

	boolQuery := map[string]any{"filter": filter}
	if len(mustNot) > 0 {
		boolQuery["must_not"] = mustNot
	}
	if q.Text != "" {
		fields := []string{"fields.*"}
		if len(q.Fields) > 0 {
			fields = make([]string, 0, len(q.Fields))
			for _, f := range q.Fields {
				if !fieldName.MatchString(f) {
					return nil, fmt.Errorf("%w: %q", ErrInvalidField, f)
				}
				fields = append(fields, "fields."+f)
			}
		}
		boolQuery["must"] = []any{map[string]any{
			"multi_match": map[string]any{
				"query":   q.Text,
				"fields":  fields,
				"lenient": true,
			},
		}}
	}

	size := q.Limit
	if size <= 0 {
		size = defaultSearchSize
	}
	return map[string]any{
		"size":  size,
		"query": map[string]any{"bool": boolQuery},
		"sort":  []any{map[string]any{"_score": "desc"}, map[string]any{"id": "asc"}},
	}, nil
}

func term(field string, value any) map[string]any {
	return map[string]any{"term": map[string]any{field: value}}
}
