package engine

import "inboundcore/inbound"

const (
	EventStepRecorded EventType = iota + 1
	EventTransportConfirmed
	EventConfirmationFailed
	EventPlanStaged
	EventPlanDeleted
	EventMessagingConnected
	EventMessagingDisconnected
)

// --- Event payloads ---

type StepRecordedEvent struct {
	PlanID  string       `json:"planId"`
	TraceID string       `json:"traceId"`
	Step    inbound.Step `json:"step"`
}

type TransportConfirmedEvent struct {
	Result *inbound.Result `json:"result"`
}

type ConfirmationFailedEvent struct {
	PlanID  string         `json:"planId"`
	TraceID string         `json:"traceId"`
	Error   *inbound.Error `json:"error"`
}

type PlanChangedEvent struct {
	PlanID string `json:"planId"`
	Actor  string `json:"actor,omitempty"`
}

type ConnectionEvent struct {
	Detail string `json:"detail"`
}

// Name is the SSE event name for an event type.
func (t EventType) Name() string {
	switch t {
	case EventStepRecorded:
		return "step"
	case EventTransportConfirmed:
		return "confirmed"
	case EventConfirmationFailed:
		return "failed"
	case EventPlanStaged:
		return "plan-staged"
	case EventPlanDeleted:
		return "plan-deleted"
	case EventMessagingConnected, EventMessagingDisconnected:
		return "messaging"
	}
	return "unknown"
}
