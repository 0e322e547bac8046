package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an auth failure
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNetwork
	KindUnauthorized
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Sentinel errors matched by errors.Is against an *Error of the same kind
var (
	ErrValidation   = errors.New("invalid credentials input")
	ErrNetwork      = errors.New("auth API unreachable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRemote       = errors.New("auth API error")
)

// Error is returned by every Service operation. Message is safe to show to
// the user.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrUnauthorized) and friends match on Kind
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case ErrRemote:
		return e.Kind == KindRemote
	}
	return false
}

// Message returns the user-facing message of err, or fallback if err does
// not carry one
func Message(err error, fallback string) string {
	var authErr *Error
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	return fallback
}

// statusError builds an error from a non-2xx response
func statusError(status int, body []byte, fallback string) *Error {
	kind := KindRemote
	if status == http.StatusUnauthorized {
		kind = KindUnauthorized
	}
	msg := serverMessage(body)
	if msg == "" {
		msg = fallback
	}
	return &Error{
		Kind:    kind,
		Status:  status,
		Message: msg,
		Err:     fmt.Errorf("API returned status %d", status),
	}
}

// serverMessage extracts the server's message from {"error":..}, {"message":..}
// or a plain text body
func serverMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(trimmed), &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		return payload.Message
	}

	// HTML error pages are not worth showing
	if strings.HasPrefix(trimmed, "<") || strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return ""
	}
	return trimmed
}
