// Package errs defines the error taxonomy shared across the scanning engine.
package errs

import "fmt"

// Kind classifies an Error into one of the taxonomy buckets the engine
// reports on. Kinds never change meaning once constructed into an Error.
type Kind int

const (
	Other Kind = iota
	Resolve
	Timeout
	InvalidInput
	Validation
	ResolverConfig
	Network
	Serialization
	Export
	Wildcard
	Bruteforce
)

func (k Kind) String() string {
	switch k {
	case Resolve:
		return "resolve"
	case Timeout:
		return "timeout"
	case InvalidInput:
		return "invalid_input"
	case Validation:
		return "validation"
	case ResolverConfig:
		return "resolver_config"
	case Network:
		return "network"
	case Serialization:
		return "serialization"
	case Export:
		return "export"
	case Wildcard:
		return "wildcard"
	case Bruteforce:
		return "bruteforce"
	default:
		return "other"
	}
}

// Error wraps an underlying error with a taxonomy Kind and the operation
// that failed. Op should be a short dotted path, e.g. "resolverpool.query".
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of the given kind for operation op, wrapping err.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Err
			continue
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
