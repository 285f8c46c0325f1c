// Package apperr holds the single error type shared by the gateway, the
// services and the HTTP layer. Each error carries a Kind; the HTTP status is
// derived from the Kind in one place (HTTPStatus).
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindInvalidArgument
	KindUnauthorized
	KindNotFound
	KindConflict
	KindRateLimited
	KindUpstreamTimeout
	KindUpstreamHTTP
	KindUpstreamMalformed
	KindNoCacheAvailable
)

var kindNames = map[Kind]string{
	KindInternal:          "internal_error",
	KindInvalidArgument:   "invalid_argument",
	KindUnauthorized:      "unauthorized",
	KindNotFound:          "not_found",
	KindConflict:          "conflict",
	KindRateLimited:       "rate_limited",
	KindUpstreamTimeout:   "upstream_timeout",
	KindUpstreamHTTP:      "upstream_http_error",
	KindUpstreamMalformed: "upstream_malformed_response",
	KindNoCacheAvailable:  "no_cache_available",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type Error struct {
	Kind    Kind
	Message string
	// Status is the upstream HTTP status for KindUpstreamHTTP
	Status int
	// Surface отдает клиенту Status апстрима вместо 502
	Surface bool
	Details any
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Kind == KindUpstreamHTTP && e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func InvalidArgument(format string, args ...any) *Error {
	return New(KindInvalidArgument, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

func UpstreamHTTP(status int, details any) *Error {
	return &Error{Kind: KindUpstreamHTTP, Message: "External API error", Status: status, Details: details}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	var appErr *Error
	for err != nil {
		if errors.As(err, &appErr) {
			if appErr.Kind == kind {
				return true
			}
			err = appErr.Cause
			continue
		}
		return false
	}
	return false
}

// HTTPStatus maps an error to the status code sent to clients.
func HTTPStatus(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch appErr.Kind {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case KindUpstreamHTTP:
		if appErr.Surface && appErr.Status >= 400 && appErr.Status <= 599 {
			return appErr.Status
		}
		return http.StatusBadGateway
	case KindUpstreamMalformed:
		return http.StatusBadGateway
	case KindNoCacheAvailable:
		// статус определяется исходной ошибкой апстрима
		if appErr.Cause != nil {
			if _, ok := As(appErr.Cause); ok {
				return HTTPStatus(appErr.Cause)
			}
		}
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
