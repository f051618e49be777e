package errors

import (
	stderrors "errors"
	"fmt"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Code identifies a recoverable, caller-visible failure condition. The
// transport layer maps each code to a localized user message; the core never
// carries locale-specific text.
type Code string

const (
	CodeNotFound             Code = "not_found"
	CodeInvalidState         Code = "invalid_state"
	CodeUnavailable          Code = "unavailable"
	CodeInsufficientQuantity Code = "insufficient_quantity"
	CodeExpired              Code = "expired"
	CodeForbidden            Code = "forbidden"
	CodeAlreadyProcessed     Code = "already_processed"
	CodeNoActiveRate         Code = "no_active_rate"
	CodeNothingToPayout      Code = "nothing_to_payout"
	CodeNotApproved          Code = "not_approved"
	CodeAlreadyRegistered    Code = "already_registered"
	CodeValidation           Code = "validation"
	CodeStorage              Code = "storage"
	CodeExternalAPI          Code = "external_api"
	CodeRateLimited          Code = "rate_limited"
)

type AppError struct {
	Code       Code
	Message    string
	MessageKey string // i18n key resolved by the transport layer
	Severity   Severity
	Retryable  bool
	cause      error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code Code) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr != nil {
		return appErr.Code == code
	}

	return false
}

// CodeOf extracts the code from err, or empty when err is not an AppError.
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr != nil {
		return appErr.Code
	}

	return ""
}

func NewNotFound(entity string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		MessageKey: "errors.not_found",
		Severity:   SeverityLow,
	}
}

func NewInvalidState(msg string) *AppError {
	return &AppError{
		Code:       CodeInvalidState,
		Message:    msg,
		MessageKey: "errors.invalid_state",
		Severity:   SeverityMedium,
	}
}

func NewUnavailable(msg string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    msg,
		MessageKey: "errors.unavailable",
		Severity:   SeverityLow,
	}
}

func NewInsufficientQuantity(requested, remaining int) *AppError {
	return &AppError{
		Code:       CodeInsufficientQuantity,
		Message:    fmt.Sprintf("requested %d portions, %d remaining", requested, remaining),
		MessageKey: "errors.insufficient_quantity",
		Severity:   SeverityLow,
	}
}

func NewExpired(msg string) *AppError {
	return &AppError{
		Code:       CodeExpired,
		Message:    msg,
		MessageKey: "errors.expired",
		Severity:   SeverityLow,
	}
}

func NewForbidden(msg string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    msg,
		MessageKey: "errors.forbidden",
		Severity:   SeverityMedium,
	}
}

func NewAlreadyProcessed(msg string) *AppError {
	return &AppError{
		Code:       CodeAlreadyProcessed,
		Message:    msg,
		MessageKey: "errors.already_processed",
		Severity:   SeverityLow,
	}
}

func NewNoActiveRate(msg string) *AppError {
	return &AppError{
		Code:       CodeNoActiveRate,
		Message:    msg,
		MessageKey: "errors.no_active_rate",
		Severity:   SeverityCritical,
	}
}

func NewNothingToPayout(msg string) *AppError {
	return &AppError{
		Code:       CodeNothingToPayout,
		Message:    msg,
		MessageKey: "errors.nothing_to_payout",
		Severity:   SeverityLow,
	}
}

func NewNotApproved(msg string) *AppError {
	return &AppError{
		Code:       CodeNotApproved,
		Message:    msg,
		MessageKey: "errors.not_approved",
		Severity:   SeverityLow,
	}
}

func NewAlreadyRegistered(msg string) *AppError {
	return &AppError{
		Code:       CodeAlreadyRegistered,
		Message:    msg,
		MessageKey: "errors.already_registered",
		Severity:   SeverityLow,
	}
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    msg,
		MessageKey: "errors.validation",
		Severity:   SeverityLow,
	}
}

func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:       CodeStorage,
		Message:    fmt.Sprintf("database error: %s", underlyingMsg),
		MessageKey: "errors.temporary",
		Severity:   SeverityHigh,
		Retryable:  true,
		cause:      cause,
	}
}

func NewExternalAPIError(apiName string, cause error) *AppError {
	return &AppError{
		Code:       CodeExternalAPI,
		Message:    fmt.Sprintf("external API error: %s", apiName),
		MessageKey: "errors.service_unavailable",
		Severity:   SeverityMedium,
		Retryable:  true,
		cause:      cause,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("rate limit exceeded: retry after %d seconds", retryAfter),
		MessageKey: "errors.rate_limited",
		Severity:   SeverityLow,
	}
}
