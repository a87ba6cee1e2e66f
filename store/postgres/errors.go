package postgres

import (
	"fmt"

	queue "github.com/corequeue/corequeue"
)

func newErr(kind queue.Kind, format string, args ...any) *queue.Error {
	return &queue.Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(kind queue.Kind, err error, format string, args ...any) *queue.Error {
	return &queue.Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}
