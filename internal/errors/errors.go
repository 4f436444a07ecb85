// Package errors defines the typed errors the gateway surfaces to callers.
// Every error carries a machine-readable kind, the backend it originated from
// and a human-readable message; the underlying driver error stays reachable
// through errors.Unwrap.
package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// ConnectionFailed covers authentication, unreachable hosts and file permissions.
	ConnectionFailed Kind = "connection"
	// QueryFailed covers malformed queries, constraint violations and unsupported operations.
	QueryFailed Kind = "query"
	// EvictionFailed is raised when closing an idle handle fails. It is logged, never returned to callers.
	EvictionFailed Kind = "eviction"
	// InvalidArgument is raised for bad tool arguments before any backend is contacted.
	InvalidArgument Kind = "invalid_argument"
)

// E wraps an error with kind, backend and message.
type E struct {
	Kind    Kind
	Backend backend.Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	prefix := string(e.Kind) + " error"
	if e.Backend != "" {
		prefix = fmt.Sprintf("%s %s", e.Backend, prefix)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Connection(b backend.Kind, msg string, err error) *E {
	return &E{Kind: ConnectionFailed, Backend: b, Message: msg, Err: err}
}

func Query(b backend.Kind, msg string, err error) *E {
	return &E{Kind: QueryFailed, Backend: b, Message: msg, Err: err}
}

func Eviction(b backend.Kind, msg string, err error) *E {
	return &E{Kind: EvictionFailed, Backend: b, Message: msg, Err: err}
}

func Invalid(b backend.Kind, msg string) *E {
	return &E{Kind: InvalidArgument, Backend: b, Message: msg}
}

// IsKind reports whether any error in err's chain is an *E of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first *E in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}
