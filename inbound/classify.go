package inbound

import (
	"errors"
	"net/http"
	"strings"

	"inboundcore/spapi"
)

// Class is the meaning extracted from upstream error text.
type Class int

const (
	ClassNone Class = iota
	ClassAlreadyConfirmed
	ClassOutsideGracePeriod
	ClassPackingMissing
	ClassNeedsRegeneration
	ClassInternalServerError
)

func (c Class) String() string {
	switch c {
	case ClassAlreadyConfirmed:
		return "already_confirmed"
	case ClassOutsideGracePeriod:
		return "outside_grace_period"
	case ClassPackingMissing:
		return "packing_missing"
	case ClassNeedsRegeneration:
		return "needs_regeneration"
	case ClassInternalServerError:
		return "internal_server_error"
	}
	return "none"
}

var (
	alreadyConfirmedPhrases = []string{"already confirmed", "already been confirmed", "already accepted", "has been confirmed"}
	gracePeriodPhrases      = []string{"outside of the grace period", "outside the grace period", "grace period has"}
	packingPhrases          = []string{"packing information", "packing option", "box information", "no boxes", "box contents"}
	regenerationPhrases     = []string{"regenerate", "regeneration", "has expired", "no longer valid"}
	internalPhrases         = []string{"internal server error", "internalfailure", "internal error"}
)

// Classify maps an upstream status and error text to a Class. Status 0 means
// the text came from the problems of a failed operation rather than an HTTP
// response. This is the only place upstream wording is inspected.
func Classify(status int, text string) Class {
	t := strings.ToLower(text)
	if (status == 0 || status == http.StatusBadRequest || status == http.StatusConflict) && containsAny(t, alreadyConfirmedPhrases) {
		return ClassAlreadyConfirmed
	}
	if status < 500 && containsAny(t, gracePeriodPhrases) {
		return ClassOutsideGracePeriod
	}
	if status < 500 && containsAny(t, packingPhrases) {
		return ClassPackingMissing
	}
	if status < 500 && containsAny(t, regenerationPhrases) {
		return ClassNeedsRegeneration
	}
	if status >= 500 || containsAny(t, internalPhrases) {
		return ClassInternalServerError
	}
	return ClassNone
}

// ClassifyError applies Classify to an upstream response or failed operation.
func ClassifyError(err error) Class {
	var apiErr *spapi.APIError
	if errors.As(err, &apiErr) {
		return Classify(apiErr.Status, apiErr.Text())
	}
	var opErr *spapi.OperationError
	if errors.As(err, &opErr) {
		return Classify(0, opErr.Text())
	}
	return ClassNone
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// retryableUpstream reports errors worth another attempt inside a resolver:
// transient HTTP failures and failed operations reporting an internal error.
func retryableUpstream(err error) bool {
	if spapi.IsTransient(err) {
		return true
	}
	var opErr *spapi.OperationError
	return errors.As(err, &opErr) && ClassifyError(err) == ClassInternalServerError
}
