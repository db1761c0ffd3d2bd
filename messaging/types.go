package messaging

import (
	"time"

	"inboundcore/inbound"
)

// Message types carried on the requests and events topics.
const (
	MsgConfirmRequest     = "inbound.confirm_request"
	MsgTransportConfirmed = "inbound.transport_confirmed"
	MsgConfirmationFailed = "inbound.confirmation_failed"
)

// Envelope is the typed wrapper for every message this service sends or
// receives.
type Envelope struct {
	MsgType   string    `json:"msg_type"`
	MsgID     string    `json:"msg_id"`
	StationID string    `json:"station_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// --- Inbound payloads ---

// ConfirmRequest asks for a confirmation run; ReplyTopic, when set,
// receives the outcome event in addition to the events topic.
type ConfirmRequest struct {
	inbound.ConfirmRequest
	ReplyTopic string `json:"replyTopic,omitempty"`
}

// --- Outbound payloads ---

type TransportConfirmed struct {
	PlanID            string              `json:"plan_id"`
	InboundPlanID     string              `json:"inbound_plan_id"`
	TraceID           string              `json:"trace_id"`
	PlacementOptionID string              `json:"placement_option_id"`
	AlreadyConfirmed  bool                `json:"already_confirmed"`
	Selections        []inbound.Selection `json:"selections"`
}

type ConfirmationFailed struct {
	PlanID      string       `json:"plan_id"`
	TraceID     string       `json:"trace_id"`
	Kind        inbound.Kind `json:"kind"`
	Code        string       `json:"code"`
	Message     string       `json:"message"`
	Status      int          `json:"status"`
	RetryAfterS int          `json:"retry_after_seconds,omitempty"`
}

// TransportConfirmedFrom builds the event for a successful run.
func TransportConfirmedFrom(res *inbound.Result) TransportConfirmed {
	ev := TransportConfirmed{
		PlanID:            res.RequestID,
		InboundPlanID:     res.InboundPlanID,
		TraceID:           res.TraceID,
		PlacementOptionID: res.PlacementOptionID,
		AlreadyConfirmed:  res.AlreadyConfirmed,
	}
	if res.Selection != nil {
		ev.Selections = res.Selection.Selections
	}
	return ev
}

// ConfirmationFailedFrom builds the event for a failed run.
func ConfirmationFailedFrom(planID, traceID string, e *inbound.Error) ConfirmationFailed {
	return ConfirmationFailed{
		PlanID:      planID,
		TraceID:     traceID,
		Kind:        e.Kind,
		Code:        e.Code,
		Message:     e.Message,
		Status:      e.HTTPStatus(),
		RetryAfterS: e.RetryAfterS,
	}
}
