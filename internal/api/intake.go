package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"deliverycore/internal/capacity"
	"deliverycore/internal/idempotency"
	"deliverycore/internal/store"
)

// withIdempotency replays the cached accepted/rejected decision for a
// request that repeats an already-seen (user, idempotency key) pair,
// instead of invoking next and risking a second order for one submission.
func (a *API) withIdempotency(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-Id")
		key := r.Header.Get("X-Idempotency-Key")
		if key == "" || userID == "" {
			next(w, r)
			return
		}
		if resp, found := a.idempotency.Get(r.Context(), idempotency.Key(userID, key)); found {
			writeOrderResponse(w, resp)
			return
		}
		next(w, r)
	}
}

type createOrderRequest struct {
	UserID         string          `json:"user_id"`
	ServiceID      string          `json:"service_id"`
	Quantity       int             `json:"quantity"`
	PricePerUnit   decimal.Decimal `json:"price_per_unit"`
	TargetRef      string          `json:"target_reference"`
	Region         string          `json:"region"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

type orderResponse struct {
	OrderID  string `json:"order_id"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

func writeOrderResponse(w http.ResponseWriter, resp idempotency.Response) {
	w.Header().Set("Content-Type", "application/json")
	status := http.StatusCreated
	if !resp.Accepted {
		status = http.StatusServiceUnavailable
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(orderResponse{
		OrderID:  resp.OrderID,
		Accepted: resp.Accepted,
		Reason:   resp.Reason,
	})
}

// handleCreateOrder accepts {user-id, service-id, quantity, price-per-unit,
// target reference, region, optional idempotency key} and answers with
// {order-id, accepted|rejected, reason}. On acceptance it persists the
// order and eagerly decomposes it into tasks.
func (a *API) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.ServiceID == "" || req.Quantity <= 0 || req.TargetRef == "" {
		http.Error(w, "user_id, service_id, a positive quantity, and target_reference are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	cacheKey := ""
	if req.IdempotencyKey != "" {
		cacheKey = idempotency.Key(req.UserID, req.IdempotencyKey)
		if existing, err := a.store.GetOrderByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey); err == nil && existing != nil {
			writeOrderResponse(w, idempotency.Response{OrderID: existing.OrderID, Accepted: true})
			return
		}
	}

	if err := a.planner.Admit(ctx, req.Quantity); err != nil {
		rejected, ok := err.(*capacity.ErrRejected)
		if !ok {
			log.Printf("api: admission check failed: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		resp := idempotency.Response{Accepted: false, Reason: rejected.Error()}
		if cacheKey != "" {
			a.idempotency.Set(ctx, cacheKey, resp)
		}
		writeOrderResponse(w, resp)
		return
	}

	now := time.Now()
	order := &store.Order{
		OrderID:             uuid.NewString(),
		UserID:              req.UserID,
		ServiceID:           req.ServiceID,
		Quantity:            req.Quantity,
		PricePerUnit:        req.PricePerUnit,
		TargetRef:           req.TargetRef,
		Region:              req.Region,
		Status:              store.OrderRunning,
		Remains:             req.Quantity,
		TaskBased:           true,
		IdempotencyKey:      req.IdempotencyKey,
		CreatedAt:           now,
		StartedAt:           now,
		EstimatedCompletion: now.Add(48 * time.Hour),
	}

	if err := a.store.CreateOrder(ctx, order); err != nil {
		log.Printf("api: create order: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if err := a.generator.Generate(ctx, order); err != nil {
		log.Printf("api: generate tasks for order %s: %v", order.OrderID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	resp := idempotency.Response{OrderID: order.OrderID, Accepted: true}
	if cacheKey != "" {
		a.idempotency.Set(ctx, cacheKey, resp)
	}
	writeOrderResponse(w, resp)
}

// handleGetOrder returns the current state of one order, identified by
// the path segment following /orders/.
func (a *API) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	orderID := strings.TrimPrefix(r.URL.Path, "/orders/")
	if orderID == "" {
		http.Error(w, "order id is required", http.StatusBadRequest)
		return
	}
	order, err := a.store.GetOrder(r.Context(), orderID)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if order == nil {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(order)
}
