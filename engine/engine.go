// Package engine wires the orchestrator to persistence, the event bus and
// messaging, and owns the process-wide background loops.
package engine

import (
	"context"
	"log"
	"time"

	"inboundcore/auth"
	"inboundcore/config"
	"inboundcore/inbound"
	"inboundcore/messaging"
	"inboundcore/planstate"
	"inboundcore/store"
)

type LogFunc func(format string, args ...any)

// requestTimeout bounds one confirm request received over messaging.
const requestTimeout = 2 * time.Minute

type Config struct {
	AppConfig *config.Config
	DB        *store.DB
	Plans     *planstate.Manager
	Upstream  inbound.Upstream
	Poller    inbound.OperationPoller
	// Credentials is optional; when set each run resolves credentials first.
	Credentials *auth.Provider
	// MsgClient is optional; without it no connection status is tracked.
	MsgClient *messaging.Client
	LogFunc   LogFunc
}

type Engine struct {
	cfg          *config.Config
	db           *store.DB
	plans        *planstate.Manager
	creds        *auth.Provider
	msgClient    *messaging.Client
	orchestrator *inbound.Orchestrator
	Events       *EventBus
	logFn        LogFunc
	stopChan     chan struct{}
	msgConnected bool
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	e := &Engine{
		cfg:       c.AppConfig,
		db:        c.DB,
		plans:     c.Plans,
		creds:     c.Credentials,
		msgClient: c.MsgClient,
		Events:    NewEventBus(),
		logFn:     logFn,
		stopChan:  make(chan struct{}),
	}
	e.orchestrator = inbound.New(c.Upstream, c.Poller, c.Plans, inbound.SettingsFrom(c.AppConfig.Orchestrator)).
		WithEmitter(&runEmitter{bus: e.Events})
	if c.Credentials != nil {
		e.orchestrator.WithCredentials(c.Credentials)
	}
	return e
}

func (e *Engine) Start() {
	e.wireEventHandlers()
	if e.msgClient != nil {
		e.checkConnectionStatus()
		go e.connectionHealthLoop()
	}
	e.logFn("engine: started")
}

func (e *Engine) Stop() {
	select {
	case e.stopChan <- struct{}{}:
	default:
	}
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB                       { return e.db }
func (e *Engine) Plans() *planstate.Manager           { return e.plans }
func (e *Engine) AppConfig() *config.Config           { return e.cfg }
func (e *Engine) Orchestrator() *inbound.Orchestrator { return e.orchestrator }

// Confirm runs one confirmation request through the orchestrator.
func (e *Engine) Confirm(ctx context.Context, req inbound.ConfirmRequest) (*inbound.Result, error) {
	return e.orchestrator.Confirm(ctx, req)
}

// StagePlan stores a plan for later confirmation.
func (e *Engine) StagePlan(ctx context.Context, p *inbound.Plan, actor string) error {
	if err := e.plans.SavePlan(ctx, p, actor); err != nil {
		return err
	}
	e.Events.Emit(Event{Type: EventPlanStaged, Payload: PlanChangedEvent{PlanID: p.ID, Actor: actor}})
	return nil
}

func (e *Engine) DeletePlan(ctx context.Context, id, actor string) error {
	if err := e.plans.DeletePlan(ctx, id); err != nil {
		return err
	}
	e.Events.Emit(Event{Type: EventPlanDeleted, Payload: PlanChangedEvent{PlanID: id, Actor: actor}})
	return nil
}

// HandleConfirmRequest runs a confirm request received over messaging. The
// outcome goes to the events topic through the bus, and to the requester's
// reply topic when one is given.
func (e *Engine) HandleConfirmRequest(env *messaging.Envelope, req messaging.ConfirmRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	e.logFn("engine: confirm request %s for plan %s from %s", env.MsgID, req.RequestID, env.StationID)
	res, err := e.orchestrator.Confirm(ctx, req.ConfirmRequest)
	if req.ReplyTopic == "" {
		return
	}
	if err != nil {
		e.enqueueEvent(ctx, req.ReplyTopic, messaging.MsgConfirmationFailed, req.RequestID,
			messaging.ConfirmationFailedFrom(req.RequestID, res.TraceID, inbound.AsError(err, 0)))
		return
	}
	e.enqueueEvent(ctx, req.ReplyTopic, messaging.MsgTransportConfirmed, req.RequestID, messaging.TransportConfirmedFrom(res))
}

func (e *Engine) enqueueEvent(ctx context.Context, topic, msgType, planID string, payload any) {
	data, err := messaging.NewEnvelope(msgType, e.cfg.Messaging.StationID, payload).Encode()
	if err != nil {
		e.logFn("engine: encode %s for plan %s: %v", msgType, planID, err)
		return
	}
	if err := e.db.EnqueueOutbox(ctx, topic, data, msgType, planID); err != nil {
		e.logFn("engine: enqueue %s for plan %s: %v", msgType, planID, err)
	}
}

func (e *Engine) checkConnectionStatus() {
	if e.msgClient.IsConnected() {
		if !e.msgConnected {
			e.msgConnected = true
			e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "messaging connected"}})
		}
	} else if e.msgConnected {
		e.msgConnected = false
		e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "messaging disconnected"}})
	}
}

func (e *Engine) connectionHealthLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}
