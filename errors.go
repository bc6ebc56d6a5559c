package nest

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCode uint16

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeInvalidConfiguration
	ErrCodeDuplicateRegistration
	ErrCodeComponentNotFound
	ErrCodeExtensionLoad
	ErrCodeIllegalLifecycleTransition
	ErrCodeContainerStopped
	ErrCodeStartupFailed
	ErrCodeDisposalFailed
	ErrCodeHealthCheckFailed
	ErrCodeTypeMismatch
	ErrCodeInvalidComponent
	ErrCodeScopeSealed
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:                    "UNKNOWN",
	ErrCodeInvalidConfiguration:       "INVALID_CONFIGURATION",
	ErrCodeDuplicateRegistration:      "DUPLICATE_REGISTRATION",
	ErrCodeComponentNotFound:          "COMPONENT_NOT_FOUND",
	ErrCodeExtensionLoad:              "EXTENSION_LOAD",
	ErrCodeIllegalLifecycleTransition: "ILLEGAL_LIFECYCLE_TRANSITION",
	ErrCodeContainerStopped:           "CONTAINER_STOPPED",
	ErrCodeStartupFailed:              "STARTUP_FAILED",
	ErrCodeDisposalFailed:             "DISPOSAL_FAILED",
	ErrCodeHealthCheckFailed:          "HEALTH_CHECK_FAILED",
	ErrCodeTypeMismatch:               "TYPE_MISMATCH",
	ErrCodeInvalidComponent:           "INVALID_COMPONENT",
	ErrCodeScopeSealed:                "SCOPE_SEALED",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

// Error is the single error type returned by this package. Compare with
// errors.Is against a sentinel such as ErrContainerStopped, or use the IsXxx
// helpers.
type Error struct {
	Code      ErrorCode
	Message   string
	Component string
	Scope     string
	Cause     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))

	if e.Scope != "" {
		b.WriteString(fmt.Sprintf(" scope=%s", e.Scope))
	}
	if e.Component != "" {
		b.WriteString(fmt.Sprintf(" component=%q:", e.Component))
	}

	b.WriteString(" ")
	b.WriteString(e.Message)

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

func (e *Error) WithScope(s Scope) *Error {
	e.Scope = s.String()
	return e
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Sentinels for errors.Is; only the code is compared.
var (
	ErrInvalidConfiguration       = &Error{Code: ErrCodeInvalidConfiguration}
	ErrDuplicateRegistration      = &Error{Code: ErrCodeDuplicateRegistration}
	ErrComponentNotFound          = &Error{Code: ErrCodeComponentNotFound}
	ErrExtensionLoad              = &Error{Code: ErrCodeExtensionLoad}
	ErrIllegalLifecycleTransition = &Error{Code: ErrCodeIllegalLifecycleTransition}
	ErrContainerStopped           = &Error{Code: ErrCodeContainerStopped}
	ErrStartupFailed              = &Error{Code: ErrCodeStartupFailed}
	ErrDisposalFailed             = &Error{Code: ErrCodeDisposalFailed}
	ErrScopeSealed                = &Error{Code: ErrCodeScopeSealed}
)

func errInvalidConfiguration(missing []string) *Error {
	return newError(
		ErrCodeInvalidConfiguration,
		fmt.Sprintf("missing required configuration: %s", strings.Join(missing, ", ")),
		nil,
	)
}

func errDuplicateRegistration(s Scope, key string, cause error) *Error {
	return newError(
		ErrCodeDuplicateRegistration,
		"component already registered in this scope",
		cause,
	).WithComponent(key).WithScope(s)
}

func errComponentNotFound(key string) *Error {
	return newError(
		ErrCodeComponentNotFound,
		"no component registered in any scope",
		nil,
	).WithComponent(key)
}

func errExtensionLoad(extension string, s Scope, cause error) *Error {
	msg := fmt.Sprintf("extension %s failed", extension)
	e := newError(ErrCodeExtensionLoad, msg, cause)
	if s.Valid() {
		e.WithScope(s)
	}
	return e
}

func errDiscoveryFailed(cause error) *Error {
	return newError(ErrCodeExtensionLoad, "extension discovery failed", cause)
}

func errIllegalTransition(from State, op string) *Error {
	return newError(
		ErrCodeIllegalLifecycleTransition,
		fmt.Sprintf("cannot %s from state %s", op, from),
		nil,
	)
}

func errContainerStopped(s Scope, key string) *Error {
	e := newError(ErrCodeContainerStopped, "container has been stopped", nil).WithScope(s)
	if key != "" {
		e.WithComponent(key)
	}
	return e
}

func errStartupFailed(s Scope, what string, cause error) *Error {
	return newError(
		ErrCodeStartupFailed,
		fmt.Sprintf("failed to start %s", what),
		cause,
	).WithScope(s)
}

func errDisposalFailed(cause error) *Error {
	return newError(
		ErrCodeDisposalFailed,
		"teardown completed with disposal failures",
		cause,
	)
}

func errTypeMismatch(key, want string, got any) *Error {
	return newError(
		ErrCodeTypeMismatch,
		fmt.Sprintf("component is %T, not %s", got, want),
		nil,
	).WithComponent(key)
}

func errInvalidComponent(s Scope, key, reason string) *Error {
	return newError(ErrCodeInvalidComponent, reason, nil).WithComponent(key).WithScope(s)
}

func errScopeSealed(s Scope, key string) *Error {
	return newError(
		ErrCodeScopeSealed,
		"scope no longer accepts registrations",
		nil,
	).WithComponent(key).WithScope(s)
}

func errHealthCheckFailed(name string, cause error) *Error {
	return newError(
		ErrCodeHealthCheckFailed,
		"health check failed",
		cause,
	).WithComponent(name)
}

func IsInvalidConfiguration(err error) bool {
	return hasCode(err, ErrCodeInvalidConfiguration)
}

func IsDuplicateRegistration(err error) bool {
	return hasCode(err, ErrCodeDuplicateRegistration)
}

func IsComponentNotFound(err error) bool {
	return hasCode(err, ErrCodeComponentNotFound)
}

func IsExtensionLoad(err error) bool {
	return hasCode(err, ErrCodeExtensionLoad)
}

func IsIllegalLifecycleTransition(err error) bool {
	return hasCode(err, ErrCodeIllegalLifecycleTransition)
}

func IsContainerStopped(err error) bool {
	return hasCode(err, ErrCodeContainerStopped)
}

func IsScopeSealed(err error) bool {
	return hasCode(err, ErrCodeScopeSealed)
}

func IsStartupFailed(err error) bool {
	return hasCode(err, ErrCodeStartupFailed)
}

func IsDisposalFailed(err error) bool {
	return hasCode(err, ErrCodeDisposalFailed)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func errNotOperational(s Status) error {
	return fmt.Errorf("status is %s", s)
}
