package handler_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/sort-storage/admin/internal/handler"
)

func TestListByStatus_ForwardsEscapedStatus(t *testing.T) {
	up := newFakeUpstream(t, http.StatusOK, `{"orders":[]}`)
	h := handler.NewOrderHandler(up.client(), nil, nil)

	rr := serve(t, h.RegisterRoutes, "GET", "/?status=in%20progress", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q", ct)
	}
	if rr.Body.String() != `{"orders":[]}` {
		t.Errorf("body: got %s", rr.Body.String())
	}
	call := up.lastCall(t)
	if call.Path != "/admin/orders/status/in%20progress" {
		t.Errorf("upstream path: got %s", call.Path)
	}
	if call.Auth != "Bearer "+testToken {
		t.Errorf("authorization: got %q", call.Auth)
	}
}

func TestListByStatus_MissingStatus(t *testing.T) {
	up := newFakeUpstream(t, http.StatusOK, `{}`)
	h := handler.NewOrderHandler(up.client(), nil, nil)

	rr := serve(t, h.RegisterRoutes, "GET", "/", "")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if msg := errorOf(t, rr); msg != "Missing status" {
		t.Errorf("error: got %q", msg)
	}
	if up.callCount() != 0 {
		t.Error("upstream should not be called")
	}
}

func TestListPending(t *testing.T) {
	up := newFakeUpstream(t, http.StatusOK, `{"orders":[{"id":"o1"}]}`)
	h := handler.NewOrderHandler(up.client(), nil, nil)

	rr := serve(t, h.RegisterRoutes, "GET", "/pending", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if p := up.lastCall(t).Path; p != "/admin/orders/pending" {
		t.Errorf("upstream path: got %s", p)
	}
}

func TestListByUser_ForwardsQueryVerbatim(t *testing.T) {
	up := newFakeUpstream(t, http.StatusOK, `{"orders":[]}`)
	h := handler.NewOrderHandler(up.client(), nil, nil)

	serve(t, h.RegisterRoutes, "GET", "/user/u1?status=pending&page_size=10", "")

	call := up.lastCall(t)
	if call.Path != "/admin/orders/user/u1" {
		t.Errorf("path: got %s", call.Path)
	}
	if call.Query != "status=pending&page_size=10" {
		t.Errorf("query: got %s", call.Query)
	}
}

func TestGetOrder_RelaysUpstreamStatus(t *testing.T) {
	up := newFakeUpstream(t, http.StatusNotFound, `{"error":"order not found"}`)
	h := handler.NewOrderHandler(up.client(), nil, nil)

	rr := serve(t, h.RegisterRoutes, "GET", "/o-404", "")

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
	if msg := errorOf(t, rr); msg != "order not found" {
		t.Errorf("error: got %q", msg)
	}
}

func TestApprove_InvalidatesOnSuccess(t *testing.T) {
	up := newFakeUpstream(t, http.StatusOK, `{"message":"approved"}`)
	inv := &recordingInvalidator{}
	h := handler.NewOrderHandler(up.client(), inv, nil)

	rr := serve(t, h.RegisterRoutes, "POST", "/o1/approve", `{"notes":"Order approved by admin"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	call := up.lastCall(t)
	if call.Method != "POST" || call.Path != "/admin/orders/o1/approve" {
		t.Errorf("upstream: got %s %s", call.Method, call.Path)
	}
	if call.Body != `{"notes":"Order approved by admin"}` {
		t.Errorf("body: got %s", call.Body)
	}
	if got := strings.Join(inv.keys, ","); got != "orders,order/o1,operations,admin-orders" {
		t.Errorf("invalidated: got %s", got)
	}
}

func TestReject_NoInvalidationOnFailure(t *testing.T) {
	up := newFakeUpstream(t, http.StatusConflict, `{"error":"order is not pending"}`)
	inv := &recordingInvalidator{}
	h := handler.NewOrderHandler(up.client(), inv, nil)

	rr := serve(t, h.RegisterRoutes, "POST", "/o1/reject", `{"reason":"Reject"}`)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
	if len(inv.keys) != 0 {
		t.Errorf("invalidated: got %v, want none", inv.keys)
	}
}

func TestUpdateOrder_InvalidBody(t *testing.T) {
	up := newFakeUpstream(t, http.StatusOK, `{}`)
	h := handler.NewOrderHandler(up.client(), nil, nil)

	for _, body := range []string{"", "{not json"} {
		rr := serve(t, h.RegisterRoutes, "PATCH", "/o1", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: got %d, want %d", body, rr.Code, http.StatusBadRequest)
		}
		if msg := errorOf(t, rr); msg != "invalid request body" {
			t.Errorf("error: got %q", msg)
		}
	}
	if up.callCount() != 0 {
		t.Error("upstream should not be called for invalid bodies")
	}
}

func TestIntake_ForwardsBoxes(t *testing.T) {
	up := newFakeUpstream(t, http.StatusOK, `{"message":"intake complete"}`)
	inv := &recordingInvalidator{}
	h := handler.NewOrderHandler(up.client(), inv, nil)

	body := `{"boxes":[{"verified_dimensions":{"height":1,"width":2,"length":3},"weight":4,"location_id":"l1"}]}`
	rr := serve(t, h.RegisterRoutes, "POST", "/o1/intake", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if up.lastCall(t).Path != "/admin/orders/o1/intake" {
		t.Errorf("path: got %s", up.lastCall(t).Path)
	}
	if len(inv.keys) != 6 {
		t.Errorf("invalidated: got %v", inv.keys)
	}
}

func TestUpstreamDown(t *testing.T) {
	up := newFakeUpstream(t, http.StatusOK, `{}`)
	client := up.client()
	up.server.Close()
	h := handler.NewOrderHandler(client, nil, nil)

	rr := serve(t, h.RegisterRoutes, "GET", "/pending", "")

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadGateway)
	}
	if msg := errorOf(t, rr); msg != "upstream unavailable" {
		t.Errorf("error: got %q", msg)
	}
}
