package notification

import "errors"

var (
	ErrPublisherClosed = errors.New("notification publisher closed")
)
