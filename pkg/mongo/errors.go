package mongo

import "errors"

var (
	ErrEmptyConnectionURL = errors.New("mongo: empty connection URL, set MONGODB_URL")
	ErrConnect            = errors.New("mongo: connect failed")
	ErrUnhealthy          = errors.New("mongo: primary ping failed")
)
