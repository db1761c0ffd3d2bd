package inbound

import (
	"context"
	"errors"

	"inboundcore/spapi"
)

// Upstream is the slice of the fulfillment API the orchestrator drives.
// *spapi.Client implements it.
type Upstream interface {
	ListBoxes(ctx context.Context, planID string, pageSize int, token string) (*spapi.ListBoxesResponse, error)
	GeneratePlacementOptions(ctx context.Context, planID string) (string, error)
	ListPlacementOptions(ctx context.Context, planID string, pageSize int, token string) (*spapi.ListPlacementOptionsResponse, error)
	ConfirmPlacementOption(ctx context.Context, planID, placementOptionID string) (string, error)
	GenerateTransportationOptions(ctx context.Context, planID string, req *spapi.GenerateTransportationOptionsRequest) (string, error)
	ListTransportationOptions(ctx context.Context, planID string, q spapi.ListTransportationOptionsQuery) (*spapi.ListTransportationOptionsResponse, error)
	ConfirmTransportationOptions(ctx context.Context, planID string, req *spapi.ConfirmTransportationOptionsRequest) (string, error)
	GenerateDeliveryWindowOptions(ctx context.Context, planID, shipmentID string) (string, error)
	ListDeliveryWindowOptions(ctx context.Context, planID, shipmentID string, pageSize int, token string) (*spapi.ListDeliveryWindowOptionsResponse, error)
	ConfirmDeliveryWindowOption(ctx context.Context, planID, shipmentID, windowID string) (string, error)
	GetShipment(ctx context.Context, planID, shipmentID string) (*spapi.Shipment, error)
	UpdateShipmentName(ctx context.Context, planID, shipmentID, name string) error
}

// OperationPoller waits for an operation to finish. *spapi.Poller
// implements it.
type OperationPoller interface {
	Poll(ctx context.Context, operationID string) (*spapi.Operation, error)
}

// ErrPlanNotFound is returned by a PlanStore for unknown plan ids.
var ErrPlanNotFound = errors.New("plan not found")

// PlanStore reads staged plans and receives the run summary.
type PlanStore interface {
	GetPlan(ctx context.Context, id string) (*Plan, error)
	SaveSummary(ctx context.Context, id string, s *Summary) error
}

// Emitter receives progress notifications. Implementations must not block.
type Emitter interface {
	EmitStep(planID, traceID string, step Step)
	EmitConfirmed(res *Result)
	EmitFailed(planID, traceID string, err *Error)
}

type nopEmitter struct{}

func (nopEmitter) EmitStep(string, string, Step)     {}
func (nopEmitter) EmitConfirmed(*Result)             {}
func (nopEmitter) EmitFailed(string, string, *Error) {}
