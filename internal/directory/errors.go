package directory

import (
	"errors"
	"strings"
)

// Kind identifies a class of directory fault. The set is closed: every
// fault the wrapper surfaces carries exactly one of these.
type Kind string

const (
	// KindAuthentication — credential missing or rejected upstream.
	KindAuthentication Kind = "AuthenticationError"
	// KindServerNotFound — requested server id does not exist upstream.
	KindServerNotFound Kind = "ServerNotFoundError"
	// KindNetwork — transient connectivity or timeout fault. The only
	// kind eligible for retry.
	KindNetwork Kind = "NetworkError"
	// KindGenericAPI — any other upstream failure.
	KindGenericAPI Kind = "GenericAPIError"
)

// APIError is a classified directory fault. Detail preserves the original
// upstream error text; classification is best-effort, so there is never a
// structured code.
type APIError struct {
	Kind    Kind
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return e.Message
	}
	return e.Message + ": " + e.Detail
}

// NewAuthenticationError builds a KindAuthentication fault.
func NewAuthenticationError(message, detail string) *APIError {
	return &APIError{Kind: KindAuthentication, Message: message, Detail: detail}
}

// NewServerNotFoundError builds a KindServerNotFound fault.
func NewServerNotFoundError(message, detail string) *APIError {
	return &APIError{Kind: KindServerNotFound, Message: message, Detail: detail}
}

// NewNetworkError builds a KindNetwork fault.
func NewNetworkError(message, detail string) *APIError {
	return &APIError{Kind: KindNetwork, Message: message, Detail: detail}
}

// NewGenericAPIError builds a KindGenericAPI fault.
func NewGenericAPIError(message, detail string) *APIError {
	return &APIError{Kind: KindGenericAPI, Message: message, Detail: detail}
}

// AsAPIError unwraps err into an *APIError, or nil if it is not one.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// IsKind reports whether err is an *APIError of the given kind.
func IsKind(err error, kind Kind) bool {
	apiErr := AsAPIError(err)
	return apiErr != nil && apiErr.Kind == kind
}

// The upstream client raises unstructured faults with only a message
// string, so classification sniffs the lowercased text. This is a
// heuristic, not a contract — two unrelated faults that both mention
// "network" would be classified the same way.

func isNetworkText(msg string) bool {
	return strings.Contains(msg, "network") || strings.Contains(msg, "connection")
}

func isAuthText(msg string) bool {
	return strings.Contains(msg, "auth") || strings.Contains(msg, "permission")
}

func isNotFoundText(msg string) bool {
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}
