package inbound

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"inboundcore/spapi"
)

// Kind is the error taxonomy callers act on.
type Kind string

const (
	KindValidation Kind = "validation"
	KindPending    Kind = "pending"
	KindConflict   Kind = "conflict"
	KindUpstream   Kind = "upstream"
	KindInternal   Kind = "internal"
)

// Machine-readable codes.
const (
	CodeValidation                = "VALIDATION_ERROR"
	CodeMissingContact            = "MISSING_CONTACT_INFORMATION"
	CodeMissingPackagingData      = "MISSING_PACKAGING_DATA"
	CodeMissingFreightData        = "MISSING_FREIGHT_DATA"
	CodeIneligiblePackage         = "SMALL_PARCEL_INELIGIBLE"
	CodePackingRequired           = "PACKING_REQUIRED"
	CodePlacementOptionsPending   = "PLACEMENT_OPTIONS_PENDING"
	CodeShipmentsPending          = "SHIPMENTS_PENDING"
	CodeTransportOptionsPending   = "TRANSPORTATION_OPTIONS_PENDING"
	CodeDeliveryWindowsPending    = "DELIVERY_WINDOWS_PENDING"
	CodeOperationPending          = "OPERATION_PENDING"
	CodeOptionNotFound            = "TRANSPORTATION_OPTION_NOT_FOUND"
	CodePartneredUnavailable      = "PARTNERED_UNAVAILABLE"
	CodeSelectionRequired         = "SELECTION_REQUIRED"
	CodeShippingModeMismatch      = "SHIPPING_MODE_MISMATCH"
	CodePlacementNotConfirmed     = "PLACEMENT_NOT_CONFIRMED"
	CodeUpstreamFailure           = "UPSTREAM_FAILURE"
	CodeCredentialExchangeFailure = "CREDENTIALS_UNAVAILABLE"
	CodeInternal                  = "INTERNAL_ERROR"
)

// Error is a classified orchestrator failure with enough context for the
// caller to correct course.
type Error struct {
	Kind         Kind            `json:"kind"`
	Code         string          `json:"code"`
	Message      string          `json:"message"`
	Fields       []string        `json:"fields,omitempty"`
	Problems     []spapi.Problem `json:"problems,omitempty"`
	Alternatives []Option        `json:"alternatives,omitempty"`
	Missing      []string        `json:"partneredMissingShipments,omitempty"`
	RetryAfter   time.Duration   `json:"-"`
	RetryAfterS  int             `json:"retryAfterSeconds,omitempty"`
	Warnings     []string        `json:"warnings,omitempty"`
	Err          error           `json:"-"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the kind to the response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindPending:
		return http.StatusAccepted
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func validationErr(code string, fields []string, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Fields: fields, Message: fmt.Sprintf(format, args...)}
}

func missingFields(code string, fields []string) *Error {
	return validationErr(code, fields, "missing required field(s): %s", strings.Join(fields, ", "))
}

func pendingErr(code string, retryAfter time.Duration, format string, args ...any) *Error {
	return &Error{
		Kind:        KindPending,
		Code:        code,
		Message:     fmt.Sprintf(format, args...),
		RetryAfter:  retryAfter,
		RetryAfterS: int(retryAfter.Round(time.Second) / time.Second),
	}
}

func conflictErr(code string, alternatives []Option, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: code, Alternatives: alternatives, Message: fmt.Sprintf(format, args...)}
}

// AsError converts any error into an *Error. Poll exhaustion becomes
// pending, operation failures and upstream responses become upstream
// failures, everything else is internal.
func AsError(err error, retryHint time.Duration) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var pending *spapi.PendingError
	if errors.As(err, &pending) {
		pe := pendingErr(CodeOperationPending, retryHint, "upstream operation %s is still running", pending.OperationID)
		pe.Err = err
		return pe
	}
	var opErr *spapi.OperationError
	if errors.As(err, &opErr) {
		return &Error{Kind: KindUpstream, Code: CodeUpstreamFailure, Message: "upstream operation failed", Problems: opErr.Problems, Err: err}
	}
	var apiErr *spapi.APIError
	if errors.As(err, &apiErr) {
		return &Error{Kind: KindUpstream, Code: CodeUpstreamFailure, Message: fmt.Sprintf("upstream returned HTTP %d", apiErr.Status), Problems: apiErr.Problems, Err: err}
	}
	var tErr *spapi.TransportError
	if errors.As(err, &tErr) {
		return &Error{Kind: KindUpstream, Code: CodeUpstreamFailure, Message: "upstream unreachable", Err: err}
	}
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "unexpected error", Err: err}
}

// StatusOf returns the HTTP status for err; nil is 200.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return AsError(err, 0).HTTPStatus()
}
