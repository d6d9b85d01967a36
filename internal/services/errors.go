package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/desertthunder/tunz/internal/models"
	"github.com/desertthunder/tunz/internal/shared"
)

// Kind classifies an [APIError].
type Kind string

const (
	KindNetwork      Kind = "network"
	KindTimeout      Kind = "timeout"
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not-found"
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindServer       Kind = "server"
	KindDecode       Kind = "decode"
	KindUnexpected   Kind = "unexpected"
)

// Sentinel returns the shared error the kind unwraps to.
func (k Kind) Sentinel() error {
	switch k {
	case KindUnauthorized:
		return shared.ErrUnauthorized
	case KindNotFound:
		return shared.ErrNotFound
	case KindValidation:
		return shared.ErrValidation
	case KindConflict:
		return shared.ErrConflict
	case KindServer:
		return shared.ErrServiceUnavailable
	case KindTimeout:
		return shared.ErrTimeout
	default:
		return shared.ErrAPIRequest
	}
}

// KindForStatus maps a non-2xx status code to a [Kind].
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusConflict:
		return KindConflict
	case status >= 500:
		return KindServer
	default:
		return KindUnexpected
	}
}

// APIError is a failed gateway call with its original cause.
type APIError struct {
	Op         string
	Method     string
	Path       string
	StatusCode int
	Body       []byte
	Message    string
	Kind       Kind
	Err        error
}

func (e *APIError) Error() string {
	target := e.Method + " " + e.Path
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %s: %v", e.Op, target, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s: %s", e.Op, target, e.Message)
	}
	return fmt.Sprintf("%s: %s: status %d: %s", e.Op, target, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() []error {
	errs := []error{e.Kind.Sentinel()}
	if e.Kind == KindTimeout {
		errs = append(errs, shared.ErrAPIRequest)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Temporary reports whether retrying the same request might succeed.
func (e *APIError) Temporary() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindServer:
		return true
	}
	return false
}

// ErrorMessage renders err as the line shown to a user.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	var verrs models.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs.Error()
	}

	if errors.Is(err, shared.ErrNotAuthenticated) {
		return "Not logged in"
	}
	return err.Error()
}

// serverMessage extracts a message from an error body.
//
// The backend answers with {"error": "..."} for most failures and a field→message map for validation failures.
func serverMessage(body []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}

	for _, key := range []string{"error", "message"} {
		if msg, ok := fields[key].(string); ok && msg != "" {
			return msg
		}
	}

	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if _, ok := v.(string); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, fields[k]))
	}
	return strings.Join(parts, "; ")
}
