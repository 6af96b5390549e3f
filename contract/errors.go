package contract

import (
	"errors"
	"fmt"
)

// Kind classifies a contract failure so callers and tests can inspect the
// reason without parsing message text. Chaincode responses flatten errors to
// strings on the wire, so the kind is also embedded in the message prefix.
type Kind string

const (
	KindUnauthorized         Kind = "UNAUTHORIZED"
	KindDuplicateInstitution Kind = "DUPLICATE_INSTITUTION"
	KindInstitutionInactive  Kind = "INSTITUTION_INACTIVE"
	KindNotFound             Kind = "NOT_FOUND"
	KindAlreadyRevoked       Kind = "ALREADY_REVOKED"
	KindInvalidInput         Kind = "INVALID_INPUT"
)

// contractError carries a Kind alongside the human-readable message.
type contractError struct {
	kind Kind
	err  error
}

func (e *contractError) Error() string {
	return fmt.Sprintf("%s: %v", e.kind, e.err)
}

func (e *contractError) Unwrap() error {
	return e.err
}

// Errf builds a classified failure in fmt.Errorf style.
func Errf(kind Kind, format string, args ...interface{}) error {
	return &contractError{kind: kind, err: fmt.Errorf(format, args...)}
}

// KindOf returns the failure kind carried anywhere in err's chain, or ""
// for unclassified (internal/ledger) errors.
func KindOf(err error) Kind {
	var ce *contractError
	if errors.As(err, &ce) {
		return ce.kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
