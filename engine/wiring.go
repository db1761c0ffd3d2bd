package engine

import (
	"context"

	"inboundcore/inbound"
	"inboundcore/messaging"
)

func (e *Engine) wireEventHandlers() {
	// Every upstream step goes to the plan's confirmation history.
	e.Events.Subscribe(func(evt Event) {
		ev := evt.Payload.(StepRecordedEvent)
		if ev.PlanID == "" {
			return
		}
		if err := e.db.AppendHistory(context.Background(), ev.PlanID, ev.TraceID, ev.Step); err != nil {
			e.logFn("engine: history for plan %s: %v", ev.PlanID, err)
		}
	}, EventStepRecorded)

	// Bookings are announced on the events topic.
	e.Events.Subscribe(func(evt Event) {
		res := evt.Payload.(TransportConfirmedEvent).Result
		e.logFn("engine: plan %s confirmed (trace %s, already=%v)", res.RequestID, res.TraceID, res.AlreadyConfirmed)
		e.enqueueEvent(context.Background(), e.cfg.Messaging.EventsTopic, messaging.MsgTransportConfirmed,
			res.RequestID, messaging.TransportConfirmedFrom(res))
	}, EventTransportConfirmed)

	// Pending outcomes stay off the events topic; the caller retries them.
	e.Events.Subscribe(func(evt Event) {
		ev := evt.Payload.(ConfirmationFailedEvent)
		if ev.PlanID == "" || ev.Error.Kind == inbound.KindPending {
			return
		}
		e.enqueueEvent(context.Background(), e.cfg.Messaging.EventsTopic, messaging.MsgConfirmationFailed,
			ev.PlanID, messaging.ConfirmationFailedFrom(ev.PlanID, ev.TraceID, ev.Error))
	}, EventConfirmationFailed)

	e.Events.Subscribe(func(evt Event) {
		ev := evt.Payload.(ConnectionEvent)
		e.logFn("engine: %s", ev.Detail)
	}, EventMessagingConnected, EventMessagingDisconnected)
}
