package engine

import "inboundcore/inbound"

// runEmitter bridges the orchestrator's progress callbacks to the EventBus.
type runEmitter struct {
	bus *EventBus
}

var _ inbound.Emitter = (*runEmitter)(nil)

func (e *runEmitter) EmitStep(planID, traceID string, step inbound.Step) {
	e.bus.Emit(Event{Type: EventStepRecorded, Payload: StepRecordedEvent{
		PlanID:  planID,
		TraceID: traceID,
		Step:    step,
	}})
}

func (e *runEmitter) EmitConfirmed(res *inbound.Result) {
	e.bus.Emit(Event{Type: EventTransportConfirmed, Payload: TransportConfirmedEvent{Result: res}})
}

func (e *runEmitter) EmitFailed(planID, traceID string, err *inbound.Error) {
	e.bus.Emit(Event{Type: EventConfirmationFailed, Payload: ConfirmationFailedEvent{
		PlanID:  planID,
		TraceID: traceID,
		Error:   err,
	}})
}
