package apierr

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a request failure. Callers branch on the kind rather than
// string-matching messages.
type Kind string

// Failure kinds surfaced by the SDK.
const (
	KindNetwork          Kind = "network_error"
	KindTimeout          Kind = "request_timeout"
	KindMalformedToken   Kind = "malformed_token"
	KindTokenDecode      Kind = "token_decode_failure"
	KindTokenExpired     Kind = "token_expired"
	KindUnauthenticated  Kind = "unauthenticated"
	KindApplication      Kind = "application_error"
	KindServer           Kind = "server_error"
	KindRefreshExhausted Kind = "refresh_exhausted"
)

// Error is the normalized failure type returned by every SDK operation.
type Error struct {
	Kind    Kind   `json:"kind"`
	Status  int    `json:"status,omitempty"` // HTTP status when a response was received
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is makes errors.Is(err, apierr.Unauthenticated("")) match on kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// NewNetwork wraps a transport-level failure where no response was received.
func NewNetwork(message string) *Error {
	return &Error{Kind: KindNetwork, Message: message}
}

// NewTimeout reports a request that ran out of time before a response arrived.
func NewTimeout(message string) *Error {
	return &Error{Kind: KindTimeout, Message: message}
}

// NewUnauthenticated reports a request that could not be authenticated, either
// because no credential was available or because the retried request was
// rejected again.
func NewUnauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Status: 401, Message: message}
}

// NewRefreshExhausted reports that both refresh strategies failed.
func NewRefreshExhausted(message string) *Error {
	return &Error{Kind: KindRefreshExhausted, Status: 401, Message: message}
}

// NewApplication reports a 4xx response, passing the server message through.
func NewApplication(status int, message string) *Error {
	return &Error{Kind: KindApplication, Status: status, Message: message}
}

// NewServer reports a 5xx response.
func NewServer(status int, message string) *Error {
	return &Error{Kind: KindServer, Status: status, Message: message}
}

// FromTransport classifies an error returned by the HTTP transport itself.
// Timeouts and deadline expiry become KindTimeout, everything else KindNetwork.
// Refresh is never triggered for either.
func FromTransport(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return NewTimeout(err.Error())
	}
	return NewNetwork(err.Error())
}

// FromStatus classifies a non-2xx response that did arrive. 401 is not
// classified here: the pipeline owns 401 handling.
func FromStatus(status int, message string) *Error {
	if message == "" {
		message = "request failed"
	}
	switch {
	case status >= 500:
		return NewServer(status, message)
	case status == 401:
		return NewUnauthenticated(message)
	default:
		return NewApplication(status, message)
	}
}
