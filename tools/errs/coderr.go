package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	pkgerr "github.com/pkg/errors"
)

// Error codes. The 11xx block is the realtime/chat failure taxonomy; every
// code maps to one HTTP-equivalent status for REST callers.
const (
	CodeInternal              = 1100
	CodeAuthFailure           = 1101 // handshake rejected, connection closed
	CodeStaleRecipient        = 1102 // resolved handle no longer live, never surfaced
	CodeInvalidMembership     = 1103 // caller references a chat it is not a member of
	CodePolicyViolation       = 1104 // business-rule breach, surfaced to the caller
	CodeDownstreamUnavailable = 1105 // persistent/object store failure
	CodeNotFound              = 1106
	CodeBadRequest            = 1107
	CodePermissionDenied      = 1108
)

var (
	ErrInternal               = NewCodeError(CodeInternal, "internal error")
	ErrAuthenticationFailure  = NewCodeError(CodeAuthFailure, "authentication failed")
	ErrStaleRecipient         = NewCodeError(CodeStaleRecipient, "recipient connection is stale")
	ErrInvalidMembershipRef   = NewCodeError(CodeInvalidMembership, "not a member of this chat")
	ErrPolicyViolation        = NewCodeError(CodePolicyViolation, "operation violates chat policy")
	ErrDownstreamUnavailable  = NewCodeError(CodeDownstreamUnavailable, "downstream store unavailable")
	ErrNotFound               = NewCodeError(CodeNotFound, "not found")
	ErrBadRequest             = NewCodeError(CodeBadRequest, "bad request")
	ErrPermissionDenied       = NewCodeError(CodePermissionDenied, "permission denied")
)

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

func (e *CodeError) clone() *CodeError {
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: e.Detail}
}

// WithDetail returns a copy carrying an extra human-readable detail.
func (e *CodeError) WithDetail(detail string) *CodeError {
	out := e.clone()
	if out.Detail == "" {
		out.Detail = detail
	} else {
		out.Detail += ", " + detail
	}
	return out
}

// WrapMsg attaches a detail and a stack so service layers can bubble the
// cause up without losing the code.
func (e *CodeError) WrapMsg(msg string, kv ...any) error {
	out := e.clone()
	if msg != "" || len(kv) > 0 {
		detail := toString(msg, kv)
		if out.Detail == "" {
			out.Detail = detail
		} else {
			out.Detail += ", " + detail
		}
	}
	return pkgerr.WithStack(out)
}

// Wrap annotates an arbitrary cause with this code.
func (e *CodeError) Wrap(cause error) error {
	if cause == nil {
		return nil
	}
	return pkgerr.Wrap(e.clone().WithDetail(cause.Error()), e.Msg)
}

func (e *CodeError) Is(err error) bool {
	var ce *CodeError
	if !errors.As(err, &ce) {
		return false
	}
	return e.Code == ce.Code
}

// HTTPStatus maps the code to the status REST callers receive.
func (e *CodeError) HTTPStatus() int {
	switch e.Code {
	case CodeAuthFailure:
		return http.StatusUnauthorized
	case CodeInvalidMembership, CodePermissionDenied:
		return http.StatusForbidden
	case CodePolicyViolation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDownstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf extracts the CodeError from an error chain; unknown causes collapse
// into ErrInternal so handlers never leak raw driver errors.
func CodeOf(err error) *CodeError {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce
	}
	return ErrInternal.clone()
}

func toString(msg string, kv []any) string {
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(fmt.Sprint(kv[i]))
		sb.WriteString("=")
		if i+1 < len(kv) {
			sb.WriteString(fmt.Sprint(kv[i+1]))
		}
	}
	return sb.String()
}
