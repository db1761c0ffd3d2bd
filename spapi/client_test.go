package spapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"inboundcore/sigv4"
)

type staticCreds struct {
	err error
}

func (s staticCreds) SigningCredentials(context.Context) (sigv4.Credentials, string, error) {
	if s.err != nil {
		return sigv4.Credentials{}, "", s.err
	}
	return sigv4.Credentials{AccessKeyID: "AKID", SecretAccessKey: "secret", SessionToken: "sess"}, "Atza|tok", nil
}

func testServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	client, err := NewClient(srv.URL, "eu-west-1", 5*time.Second, staticCreds{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return srv, client
}

func TestRequestsAreSigned(t *testing.T) {
	srv, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "AWS4-HMAC-SHA256 Credential=AKID/") {
			t.Errorf("Authorization = %q", auth)
		}
		if !strings.Contains(auth, "/eu-west-1/execute-api/aws4_request") {
			t.Errorf("scope missing from %q", auth)
		}
		if got := r.Header.Get("x-amz-access-token"); got != "Atza|tok" {
			t.Errorf("access token = %q", got)
		}
		if got := r.Header.Get("x-amz-security-token"); got != "sess" {
			t.Errorf("security token = %q", got)
		}
		if r.Header.Get("x-amz-date") == "" {
			t.Error("x-amz-date missing")
		}
		json.NewEncoder(w).Encode(Operation{OperationID: "op-1", Status: OperationSuccess})
	})
	defer srv.Close()

	op, err := client.GetOperation(context.Background(), "op-1")
	if err != nil {
		t.Fatalf("GetOperation: %v", err)
	}
	if op.Status != OperationSuccess {
		t.Errorf("status = %q, want %q", op.Status, OperationSuccess)
	}
}

func TestListTransportationOptionsQuery(t *testing.T) {
	srv, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inbound/fba/2024-03-20/inboundPlans/wf1/transportationOptions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("placementOptionId") != "po1" || q.Get("shipmentId") != "sh1" || q.Get("paginationToken") != "next" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`{"transportationOptions":[{"transportationOptionId":"to1","shipmentId":"sh1",
			"carrier":{"name":"UPS","alphaCode":"UPSN"},"shippingMode":"GROUND_SMALL_PARCEL",
			"shippingSolution":"AMAZON_PARTNERED_CARRIER","quote":{"cost":{"amount":12.5,"code":"EUR"}},
			"preconditions":["CONFIRMED_DELIVERY_WINDOW"]}],"pagination":{"nextToken":"n2"}}`))
	})
	defer srv.Close()

	resp, err := client.ListTransportationOptions(context.Background(), "wf1", ListTransportationOptionsQuery{
		PlacementOptionID: "po1",
		ShipmentID:        "sh1",
		PaginationToken:   "next",
	})
	if err != nil {
		t.Fatalf("ListTransportationOptions: %v", err)
	}
	if len(resp.TransportationOptions) != 1 {
		t.Fatalf("options = %d, want 1", len(resp.TransportationOptions))
	}
	o := resp.TransportationOptions[0]
	if o.Carrier.AlphaCode != "UPSN" || o.Quote.Cost.Amount != 12.5 || o.Preconditions[0] != PreconditionDeliveryWindow {
		t.Errorf("option = %+v", o)
	}
	if resp.Pagination.NextToken != "n2" {
		t.Errorf("next = %q, want n2", resp.Pagination.NextToken)
	}
}

func TestConfirmTransportationOptionsBody(t *testing.T) {
	srv, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/inbound/fba/2024-03-20/inboundPlans/wf1/transportationOptions/confirmation" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req ConfirmTransportationOptionsRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.TransportationSelections) != 1 || req.TransportationSelections[0].TransportationOptionID != "to9" {
			t.Errorf("selections = %+v", req.TransportationSelections)
		}
		w.Write([]byte(`{"operationId":"op-9"}`))
	})
	defer srv.Close()

	id, err := client.ConfirmTransportationOptions(context.Background(), "wf1", &ConfirmTransportationOptionsRequest{
		TransportationSelections: []TransportationSelection{{ShipmentID: "sh1", TransportationOptionID: "to9"}},
	})
	if err != nil {
		t.Fatalf("ConfirmTransportationOptions: %v", err)
	}
	if id != "op-9" {
		t.Errorf("operation id = %q, want op-9", id)
	}
}

func TestAPIErrorCarriesProblems(t *testing.T) {
	srv, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"errors":[{"code":"Conflict","message":"Transportation option has already been confirmed"}]}`))
	})
	defer srv.Close()

	_, err := client.ConfirmPlacementOption(context.Background(), "wf1", "po1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusConflict {
		t.Errorf("status = %d, want 409", apiErr.Status)
	}
	if len(apiErr.Problems) != 1 || !strings.Contains(apiErr.Text(), "already been confirmed") {
		t.Errorf("problems = %+v", apiErr.Problems)
	}
	if IsTransient(err) {
		t.Error("409 should not be transient")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&APIError{Status: 500}, true},
		{&APIError{Status: 503}, true},
		{&APIError{Status: 429}, true},
		{&APIError{Status: 400}, false},
		{&TransportError{Method: "GET", Path: "/x", Err: errors.New("connection reset by peer")}, true},
		{errors.New("boom"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestDroppedConnectionIsTransient(t *testing.T) {
	srv, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		conn.Close()
	})
	defer srv.Close()

	_, err := client.GetShipment(context.Background(), "wf1", "sh1")
	var tErr *TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("err = %v, want *TransportError", err)
	}
	if !IsTransient(err) {
		t.Error("a dropped connection should be transient")
	}
	if StatusOf(err) != 0 {
		t.Errorf("StatusOf = %d, want 0", StatusOf(err))
	}
}

func TestCancelledRequestIsNotTransient(t *testing.T) {
	srv, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.GetShipment(ctx, "wf1", "sh1")
	if err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
	if IsTransient(err) {
		t.Errorf("IsTransient(%v) = true, want false", err)
	}
}

func TestCredentialFailureStopsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()
	client, _ := NewClient(srv.URL, "eu-west-1", time.Second, staticCreds{err: errors.New("no token")})

	if _, err := client.GetShipment(context.Background(), "wf1", "sh1"); err == nil {
		t.Fatal("expected credential error")
	}
	if called {
		t.Error("request should not be sent without credentials")
	}
}

func TestUpdateShipmentName(t *testing.T) {
	srv, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/inbound/fba/2024-03-20/inboundPlans/wf1/shipments/sh1/name" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["name"] != "Spring restock" {
			t.Errorf("name = %q", body["name"])
		}
		w.WriteHeader(http.StatusNoContent)
	})
	defer srv.Close()

	if err := client.UpdateShipmentName(context.Background(), "wf1", "sh1", "Spring restock"); err != nil {
		t.Fatalf("UpdateShipmentName: %v", err)
	}
}

func TestNewClientRejectsBadEndpoint(t *testing.T) {
	if _, err := NewClient("not a url", "eu-west-1", time.Second, staticCreds{}); err == nil {
		t.Error("expected error for endpoint without host")
	}
}
