package httpdispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"deliverycore/internal/delivery"
)

func splitHostPort(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}
	return u.Hostname(), port
}

func TestHTTPDispatchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(dispatchResponse{Success: true, PlaysDelivered: 200})
	}))
	defer server.Close()

	host, port := splitHostPort(t, server.URL)
	d := NewHTTPDispatcher(2 * time.Second)
	result, err := d.Dispatch(context.Background(), delivery.DispatchRequest{
		TaskID: "t1", Quantity: 200, NodeAddress: host, NodePort: port,
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.Outcome != delivery.DispatchSuccess || result.PlaysDelivered != 200 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestHTTPDispatchServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	host, port := splitHostPort(t, server.URL)
	d := NewHTTPDispatcher(2 * time.Second)
	result, err := d.Dispatch(context.Background(), delivery.DispatchRequest{
		TaskID: "t2", Quantity: 100, NodeAddress: host, NodePort: port,
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.Outcome != delivery.DispatchTransient {
		t.Fatalf("expected transient outcome, got %v", result.Outcome)
	}
}

func TestHTTPDispatchForbiddenIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	host, port := splitHostPort(t, server.URL)
	d := NewHTTPDispatcher(2 * time.Second)
	result, err := d.Dispatch(context.Background(), delivery.DispatchRequest{
		TaskID: "t3", Quantity: 100, NodeAddress: host, NodePort: port,
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.Outcome != delivery.DispatchPermanent {
		t.Fatalf("expected permanent outcome for 403, got %v", result.Outcome)
	}
}

func TestHTTPDispatchTimeoutIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
	}))
	defer server.Close()

	host, port := splitHostPort(t, server.URL)
	d := NewHTTPDispatcher(5 * time.Millisecond)
	result, err := d.Dispatch(context.Background(), delivery.DispatchRequest{
		TaskID: "t4", Quantity: 100, NodeAddress: host, NodePort: port,
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.Outcome != delivery.DispatchTransient {
		t.Fatalf("expected transient outcome on timeout, got %v", result.Outcome)
	}
}
