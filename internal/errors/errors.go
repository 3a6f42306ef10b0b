// Package errors provides the structured error taxonomy for the
// composition engine.
//
// Every failure surfaced by the engine is an *EngineError discriminated
// by Kind: DSL validation failures, plugin registry misuse, render
// failures, and IoC resolution failures. Validation and registry errors
// carry the schema engine's structured violations (path + message) so
// hosts can return actionable detail without string parsing.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes engine errors.
type Kind string

const (
	KindValidation Kind = "validation"
	KindRegistry   Kind = "registry"
	KindRender     Kind = "render"
	KindResolution Kind = "resolution"
	KindConfig     Kind = "config"
	KindInternal   Kind = "internal"
)

// Common error codes.
const (
	ErrCodeInvalidNode        = "ERR_INVALID_NODE"
	ErrCodeInvalidPage        = "ERR_INVALID_PAGE"
	ErrCodeDuplicatePlugin    = "ERR_DUPLICATE_PLUGIN"
	ErrCodeInvalidPlugin      = "ERR_INVALID_PLUGIN"
	ErrCodeInvalidSchema      = "ERR_INVALID_SCHEMA"
	ErrCodeParamsInvalid      = "ERR_PARAMS_INVALID"
	ErrCodePluginNotAllowed   = "ERR_PLUGIN_NOT_ALLOWED"
	ErrCodePluginMissing      = "ERR_PLUGIN_MISSING"
	ErrCodePluginBadReturn    = "ERR_PLUGIN_BAD_RETURN"
	ErrCodePluginFailed       = "ERR_PLUGIN_FAILED"
	ErrCodeNotRegistered      = "ERR_SERVICE_NOT_REGISTERED"
	ErrCodeCircularDependency = "ERR_CIRCULAR_DEPENDENCY"
	ErrCodePageNotFound       = "ERR_PAGE_NOT_FOUND"
	ErrCodeConfigInvalid      = "ERR_CONFIG_INVALID"
	ErrCodeInternal           = "ERR_INTERNAL"
)

// Violation is a single structured schema violation.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Message
	}
	return v.Path + ": " + v.Message
}

// EngineError is the structured error type shared by all engine
// components.
type EngineError struct {
	Kind       Kind
	Code       string
	Message    string
	Cause      error
	Violations []Violation
	// Plugin holds the offending plugin id for registry/render errors.
	Plugin string
	// Service holds the offending service id for resolution errors.
	Service string
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Plugin != "" {
		parts = append(parts, "plugin:"+e.Plugin)
	}
	if e.Service != "" {
		parts = append(parts, "service:"+e.Service)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if len(e.Violations) > 0 {
		details := make([]string, len(e.Violations))
		for i, v := range e.Violations {
			details[i] = v.String()
		}
		result += " (" + strings.Join(details, "; ") + ")"
	}

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is matches engine errors by kind and code.
func (e *EngineError) Is(target error) bool {
	var t *EngineError
	if errors.As(target, &t) {
		return e.Kind == t.Kind && e.Code == t.Code
	}

	return false
}

// WithPlugin attaches the plugin id to the error.
func (e *EngineError) WithPlugin(id string) *EngineError {
	e.Plugin = id
	return e
}

// WithCause attaches an underlying cause.
func (e *EngineError) WithCause(cause error) *EngineError {
	e.Cause = cause
	return e
}

// WithViolations attaches structured violations to the error.
func (e *EngineError) WithViolations(violations []Violation) *EngineError {
	e.Violations = violations
	return e
}

// Error creation functions

// NewValidationError creates a DSL validation error carrying structured
// violations.
func NewValidationError(code, message string, violations []Violation) *EngineError {
	return &EngineError{
		Kind:       KindValidation,
		Code:       code,
		Message:    message,
		Violations: violations,
	}
}

// NewRegistryError creates a plugin registry error.
func NewRegistryError(code, message string) *EngineError {
	return &EngineError{
		Kind:    KindRegistry,
		Code:    code,
		Message: message,
	}
}

// NewRenderError creates a render error.
func NewRenderError(code, message string) *EngineError {
	return &EngineError{
		Kind:    KindRender,
		Code:    code,
		Message: message,
	}
}

// NewResolutionError creates an IoC resolution error.
func NewResolutionError(code, message, service string) *EngineError {
	return &EngineError{
		Kind:    KindResolution,
		Code:    code,
		Message: message,
		Service: service,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *EngineError {
	return &EngineError{
		Kind:    KindConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string, cause error) *EngineError {
	return &EngineError{
		Kind:    KindInternal,
		Code:    ErrCodeInternal,
		Message: message,
		Cause:   cause,
	}
}

// Classification helpers

// IsKind reports whether err is an engine error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Kind == kind
	}

	return false
}

// IsValidation reports whether err is a DSL validation error.
func IsValidation(err error) bool { return IsKind(err, KindValidation) }

// IsRegistry reports whether err is a plugin registry error.
func IsRegistry(err error) bool { return IsKind(err, KindRegistry) }

// IsRender reports whether err is a render error.
func IsRender(err error) bool { return IsKind(err, KindRender) }

// IsResolution reports whether err is an IoC resolution error.
func IsResolution(err error) bool { return IsKind(err, KindResolution) }

// ViolationsOf extracts structured violations from an engine error, or
// nil for any other error.
func ViolationsOf(err error) []Violation {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Violations
	}

	return nil
}
