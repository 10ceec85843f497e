package mongo

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/storefront/pkg/audit"
	"github.com/dmitrymomot/storefront/pkg/isolation"
)

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// documentField maps a record field to its path in the stored document.
func documentField(field string) (string, error) {
	switch {
	case field == "id":
		return "_id", nil
	case field == isolation.TenantField:
		return isolation.TenantField, nil
	case fieldName.MatchString(field):
		return "data." + field, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
}

// buildFilter renders the bson filter of a list query. The scope's tenant is
// always the first element.
func buildFilter(scope isolation.Scope, where []isolation.Condition) (bson.D, error) {
	if scope.IsZero() {
		return nil, ErrUnscopedQuery
	}
	filter := bson.D{{Key: isolation.TenantField, Value: scope.TenantID()}}
	for _, c := range where {
		path, err := documentField(c.Field)
		if err != nil {
			return nil, err
		}
		filter = append(filter, bson.E{Key: path, Value: c.Value})
	}
	return filter, nil
}

func buildFindOptions(f isolation.Filter) (*options.FindOptionsBuilder, error) {
	dir := 1
	if f.Desc {
		dir = -1
	}
	sort := bson.D{{Key: "_id", Value: dir}}
	if f.SortBy != "" && f.SortBy != "id" {
		path, err := documentField(f.SortBy)
		if err != nil {
			return nil, err
		}
		sort = bson.D{{Key: path, Value: dir}, {Key: "_id", Value: 1}}
	}
	opts := options.Find().SetSort(sort)
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}
	return opts, nil
}

func criteriaFilter(c audit.Criteria) bson.D {
	filter := bson.D{}
	add := func(key, val string) {
		if val != "" {
			filter = append(filter, bson.E{Key: key, Value: val})
		}
	}
	add("correlation_id", c.CorrelationID)
	add("tenant_id", c.TenantID)
	add("attempted_tenant_id", c.AttemptedTenantID)
	add("operation", c.Operation)
	add("result", string(c.Result))

	created := bson.D{}
	if !c.Since.IsZero() {
		created = append(created, bson.E{Key: "$gte", Value: c.Since})
	}
	if !c.Until.IsZero() {
		created = append(created, bson.E{Key: "$lt", Value: c.Until})
	}
	if len(created) > 0 {
		filter = append(filter, bson.E{Key: "created_at", Value: created})
	}
	return filter
}
