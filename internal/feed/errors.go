package feed

import (
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	HintPermissionDenied = "Firestore rules are blocking the read. Adjust the rules or authenticate the caller."
	HintMissingIndex     = "The query requires a composite index. Create it in the Firebase console."
)

// LoadError is returned by the feed when the document store rejects a query.
// Hint is empty for failures without a known remedy.
type LoadError struct {
	Err  error
	Hint string
}

func (e *LoadError) Error() string {
	if e.Hint == "" {
		return "failed to load products: " + e.Err.Error()
	}
	return "failed to load products: " + e.Err.Error() + " (" + e.Hint + ")"
}

func (e *LoadError) Unwrap() error { return e.Err }

func classify(err error) *LoadError {
	code := status.Code(err)
	msg := err.Error()
	switch {
	case code == codes.PermissionDenied || strings.Contains(msg, "Missing or insufficient permissions"):
		return &LoadError{Err: err, Hint: HintPermissionDenied}
	case code == codes.FailedPrecondition || strings.Contains(msg, "requires an index"):
		return &LoadError{Err: err, Hint: HintMissingIndex}
	default:
		return &LoadError{Err: err}
	}
}
