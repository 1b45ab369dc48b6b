// Package api exposes the HTTP surface over an order-intake pipeline: a
// public order-submission endpoint, a read-only administrative surface
// over tasks and refunds, and a WebSocket feed of live system metrics.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"deliverycore/internal/capacity"
	"deliverycore/internal/delivery"
	"deliverycore/internal/idempotency"
	"deliverycore/internal/proxy"
	"deliverycore/internal/settlement"
	"deliverycore/internal/store"
	"deliverycore/internal/timeline"
)

// API wires the HTTP handlers to the underlying components. It holds no
// business logic of its own: every handler delegates to a package built
// and tested independently (capacity, delivery, settlement, proxy).
type API struct {
	store       store.Store
	planner     *capacity.Planner
	generator   *delivery.Generator
	registry    *proxy.Registry
	ledger      *settlement.Ledger
	idempotency *idempotency.Store
	workers     []*delivery.Worker
	trail       *timeline.Store

	hub *MetricsHub
}

// NewAPI builds the API and its WebSocket hub. workers is the set of
// locally-running Delivery Workers whose metrics the admin surface and
// WebSocket feed report; it may be empty in deployments that run workers
// as separate processes. trail may be nil, in which case the timeline
// admin endpoint reports an empty history.
func NewAPI(
	backing store.Store,
	planner *capacity.Planner,
	generator *delivery.Generator,
	registry *proxy.Registry,
	ledger *settlement.Ledger,
	idempotencyStore *idempotency.Store,
	workers []*delivery.Worker,
	trail *timeline.Store,
) *API {
	a := &API{
		store:       backing,
		planner:     planner,
		generator:   generator,
		registry:    registry,
		ledger:      ledger,
		idempotency: idempotencyStore,
		workers:     workers,
		trail:       trail,
	}
	a.hub = NewMetricsHub(a)
	return a
}

// Mux builds the top-level handler for the service: order intake, the
// admin read surface, the metrics feed and websocket, and the
// Prometheus scrape endpoint.
func (a *API) Mux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/orders", a.withIdempotency(a.handleCreateOrder))
	mux.HandleFunc("/orders/", a.handleGetOrder)

	mux.HandleFunc("/admin/tasks/", a.handleListTasksByOrder)
	mux.HandleFunc("/admin/failed-permanent/", a.handleListFailedPermanent)
	mux.HandleFunc("/admin/dead-letter", a.handleDeadLetter)
	mux.HandleFunc("/admin/workers", a.handleWorkerLiveness)
	mux.HandleFunc("/admin/capacity", a.handleCapacitySnapshot)
	mux.HandleFunc("/admin/timeline/", a.handleTimelineByOrder)

	mux.HandleFunc("/ws/metrics", a.handleWebSocket)

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// Hub exposes the WebSocket hub so the owning process can run it
// alongside the HTTP server.
func (a *API) Hub() *MetricsHub { return a.hub }
