package opensearch

import "errors"

var (
	ErrConnectionFailed  = errors.New("opensearch: connection failed")
	ErrHealthcheckFailed = errors.New("opensearch: healthcheck failed")
	ErrRequestFailed     = errors.New("opensearch: request failed")
	ErrInvalidField      = errors.New("opensearch: invalid field name")
	ErrUnscopedQuery     = errors.New("opensearch: query without tenant scope")
)
