package spapi

import (
	"context"
	"net/url"
	"strconv"
)

// ListBoxes returns one page of boxes recorded for the plan.
func (c *Client) ListBoxes(ctx context.Context, planID string, pageSize int, token string) (*ListBoxesResponse, error) {
	q := pageQuery(pageSize, token)
	var resp ListBoxesResponse
	if err := c.get(ctx, planPath(planID, "boxes"), q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GeneratePlacementOptions starts placement option generation.
func (c *Client) GeneratePlacementOptions(ctx context.Context, planID string) (string, error) {
	var resp OperationResponse
	if err := c.post(ctx, planPath(planID, "placementOptions"), struct{}{}, &resp); err != nil {
		return "", err
	}
	return resp.OperationID, nil
}

func (c *Client) ListPlacementOptions(ctx context.Context, planID string, pageSize int, token string) (*ListPlacementOptionsResponse, error) {
	var resp ListPlacementOptionsResponse
	if err := c.get(ctx, planPath(planID, "placementOptions"), pageQuery(pageSize, token), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ConfirmPlacementOption(ctx context.Context, planID, placementOptionID string) (string, error) {
	var resp OperationResponse
	path := planPath(planID, "placementOptions", url.PathEscape(placementOptionID), "confirmation")
	if err := c.post(ctx, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.OperationID, nil
}

func (c *Client) GenerateTransportationOptions(ctx context.Context, planID string, req *GenerateTransportationOptionsRequest) (string, error) {
	var resp OperationResponse
	if err := c.post(ctx, planPath(planID, "transportationOptions"), req, &resp); err != nil {
		return "", err
	}
	return resp.OperationID, nil
}

func (c *Client) ListTransportationOptions(ctx context.Context, planID string, q ListTransportationOptionsQuery) (*ListTransportationOptionsResponse, error) {
	query := pageQuery(q.PageSize, q.PaginationToken)
	if q.PlacementOptionID != "" {
		query.Set("placementOptionId", q.PlacementOptionID)
	}
	if q.ShipmentID != "" {
		query.Set("shipmentId", q.ShipmentID)
	}
	var resp ListTransportationOptionsResponse
	if err := c.get(ctx, planPath(planID, "transportationOptions"), query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ConfirmTransportationOptions(ctx context.Context, planID string, req *ConfirmTransportationOptionsRequest) (string, error) {
	var resp OperationResponse
	if err := c.post(ctx, planPath(planID, "transportationOptions", "confirmation"), req, &resp); err != nil {
		return "", err
	}
	return resp.OperationID, nil
}

func (c *Client) GenerateDeliveryWindowOptions(ctx context.Context, planID, shipmentID string) (string, error) {
	var resp OperationResponse
	path := planPath(planID, "shipments", url.PathEscape(shipmentID), "deliveryWindowOptions")
	if err := c.post(ctx, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.OperationID, nil
}

func (c *Client) ListDeliveryWindowOptions(ctx context.Context, planID, shipmentID string, pageSize int, token string) (*ListDeliveryWindowOptionsResponse, error) {
	var resp ListDeliveryWindowOptionsResponse
	path := planPath(planID, "shipments", url.PathEscape(shipmentID), "deliveryWindowOptions")
	if err := c.get(ctx, path, pageQuery(pageSize, token), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ConfirmDeliveryWindowOption(ctx context.Context, planID, shipmentID, windowID string) (string, error) {
	var resp OperationResponse
	path := planPath(planID, "shipments", url.PathEscape(shipmentID), "deliveryWindowOptions", url.PathEscape(windowID), "confirmation")
	if err := c.post(ctx, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.OperationID, nil
}

func (c *Client) GetShipment(ctx context.Context, planID, shipmentID string) (*Shipment, error) {
	var resp Shipment
	if err := c.get(ctx, planPath(planID, "shipments", url.PathEscape(shipmentID)), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UpdateShipmentName(ctx context.Context, planID, shipmentID, name string) error {
	path := planPath(planID, "shipments", url.PathEscape(shipmentID), "name")
	return c.put(ctx, path, &updateShipmentNameRequest{Name: name}, nil)
}

// GetOperation fetches the status of an asynchronous job.
func (c *Client) GetOperation(ctx context.Context, operationID string) (*Operation, error) {
	var resp Operation
	if err := c.get(ctx, basePath+"/operations/"+url.PathEscape(operationID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func pageQuery(pageSize int, token string) url.Values {
	q := url.Values{}
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	if token != "" {
		q.Set("paginationToken", token)
	}
	return q
}
