// Package oracle defines the contract between the application and a hosted
// text-completion model. Implementations live under provider/.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Role tags a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged entry of the transcript sent to the model.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion call. Turns must be non-empty and ordered oldest first.
type Request struct {
	// Op names the calling pipeline (match, chat, categories, emergency) for metrics and logs.
	Op        string
	System    string
	Turns     []Turn
	MaxTokens int
}

// Oracle returns raw completion text. The text is untrusted until parsed.
type Oracle interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to the Oracle interface.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Complete(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

// ErrOracle matches every error produced by an oracle call or by interpreting its reply.
var ErrOracle = errors.New("oracle error")

// ErrEmpty is returned when a reply carries no usable text.
var ErrEmpty = &Error{Kind: KindEmpty}

type Kind string

const (
	KindTransport Kind = "transport"
	KindStatus    Kind = "status"
	KindAuth      Kind = "auth"
	KindRateLimit Kind = "rate_limit"
	KindTimeout   Kind = "timeout"
	KindEmpty     Kind = "empty"
	KindDecode    Kind = "decode"
)

// Error describes a failed oracle call.
type Error struct {
	Provider string
	Kind     Kind
	Status   int
	Err      error
}

func (e *Error) Error() string {
	msg := "oracle"
	if e.Provider != "" {
		msg += " " + e.Provider
	}
	msg += ": " + string(e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports ErrOracle for every oracle error and compares kinds between oracle errors.
func (e *Error) Is(target error) bool {
	if target == ErrOracle {
		return true
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Provider == "" || t.Provider == e.Provider)
}

// StatusError classifies a non-success HTTP status from a provider.
func StatusError(provider string, status int, body string) *Error {
	kind := KindStatus
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = KindAuth
	case http.StatusTooManyRequests:
		kind = KindRateLimit
	}
	var err error
	if body != "" {
		err = errors.New(body)
	}
	return &Error{Provider: provider, Kind: kind, Status: status, Err: err}
}

// TransportError classifies a failed round trip, separating deadline expiry from other failures.
func TransportError(ctx context.Context, provider string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Provider: provider, Kind: KindTimeout, Err: err}
	}
	return &Error{Provider: provider, Kind: KindTransport, Err: err}
}

// KindOf returns the kind of an oracle error, or "" when err is not one.
func KindOf(err error) Kind {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return ""
}
