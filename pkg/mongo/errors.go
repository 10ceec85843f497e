package mongo

import "errors"

var (
	ErrFailedToConnectToMongo = errors.New("mongo: failed to connect")
	ErrHealthcheckFailed      = errors.New("mongo: healthcheck failed")
	ErrInvalidField           = errors.New("mongo: invalid field name")
	ErrUnscopedQuery          = errors.New("mongo: query without tenant scope")
)
