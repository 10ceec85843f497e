package pg

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dmitrymomot/storefront/pkg/isolation"
)

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// query accumulates SQL text and positional arguments.
type query struct {
	sb   strings.Builder
	args []any
}

func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

// buildFind renders a list query over the records table. The tenant predicate
// comes from the scope and is always the second condition; filter fields are
// passed as parameters and matched against the JSONB document.
func buildFind(collection string, scope isolation.Scope, f isolation.Filter) (string, []any, error) {
	if scope.IsZero() {
		return "", nil, ErrUnscopedQuery
	}

	q := &query{}
	q.sb.WriteString("SELECT tenant_id, data FROM records WHERE collection = ")
	q.sb.WriteString(q.arg(collection))
	q.sb.WriteString(" AND tenant_id = ")
	q.sb.WriteString(q.arg(scope.TenantID()))

	for _, c := range f.Where {
		if !fieldName.MatchString(c.Field) {
			return "", nil, fmt.Errorf("%w: %q", ErrInvalidField, c.Field)
		}
		switch {
		case c.Field == "id" || c.Field == isolation.TenantField:
			fmt.Fprintf(&q.sb, " AND %s = %s", c.Field, q.arg(fmt.Sprint(c.Value)))
		case c.Value == nil:
			fmt.Fprintf(&q.sb, " AND data->>%s IS NULL", q.arg(c.Field))
		default:
			field := q.arg(c.Field)
			fmt.Fprintf(&q.sb, " AND data->>%s = %s", field, q.arg(fmt.Sprint(c.Value)))
		}
	}

	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	switch sortBy := f.SortBy; {
	case sortBy == "" || sortBy == "id":
		fmt.Fprintf(&q.sb, " ORDER BY id %s", dir)
	case fieldName.MatchString(sortBy):
		fmt.Fprintf(&q.sb, " ORDER BY data->%s %s, id ASC", q.arg(sortBy), dir)
	default:
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidField, sortBy)
	}

	if f.Limit > 0 {
		q.sb.WriteString(" LIMIT " + q.arg(f.Limit))
	}
	if f.Offset > 0 {
		q.sb.WriteString(" OFFSET " + q.arg(f.Offset))
	}
	return q.sb.String(), q.args, nil
}
