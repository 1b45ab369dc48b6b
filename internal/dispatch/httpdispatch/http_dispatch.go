// Package httpdispatch is a reference Dispatch Boundary implementation:
// it POSTs each task attempt to the owning node's HTTP endpoint and maps
// the response into a DispatchResult.
package httpdispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"deliverycore/internal/delivery"
)

// HTTPDispatcher implements delivery.Dispatcher over plain HTTP.
type HTTPDispatcher struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPDispatcher builds a dispatcher whose client enforces timeout as
// a hard deadline; exceeding it surfaces as a DispatchTransient outcome.
func NewHTTPDispatcher(timeout time.Duration) *HTTPDispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPDispatcher{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

type dispatchPayload struct {
	TaskID           string `json:"task_id"`
	IdempotencyToken string `json:"idempotency_token"`
	TargetRef        string `json:"target_reference"`
	Quantity         int    `json:"quantity"`
}

type dispatchResponse struct {
	Success        bool   `json:"success"`
	PlaysDelivered int    `json:"plays_delivered"`
	ErrorCode      int    `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, req delivery.DispatchRequest) (delivery.DispatchResult, error) {
	url := fmt.Sprintf("http://%s:%d/execute", req.NodeAddress, req.NodePort)

	payload := dispatchPayload{
		TaskID:           req.TaskID,
		IdempotencyToken: req.IdempotencyToken,
		TargetRef:        req.TargetRef,
		Quantity:         req.Quantity,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return delivery.DispatchResult{Outcome: delivery.DispatchPermanent, ErrorMessage: err.Error()}, nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return delivery.DispatchResult{Outcome: delivery.DispatchPermanent, ErrorMessage: err.Error()}, nil
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := d.client.Do(httpReq)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		// A deadline exceeded (client timeout or context cancellation) is
		// always transient: the node may simply be slow, not broken.
		return delivery.DispatchResult{
			Outcome:      delivery.DispatchTransient,
			ErrorCode:    "0",
			ErrorMessage: "timeout: " + err.Error(),
			LatencyMs:    latency,
		}, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 500 {
		return delivery.DispatchResult{
			Outcome:      delivery.DispatchTransient,
			ErrorCode:    fmt.Sprintf("%d", resp.StatusCode),
			ErrorMessage: fmt.Sprintf("node returned status %d", resp.StatusCode),
			LatencyMs:    latency,
		}, nil
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return delivery.DispatchResult{
			Outcome:      delivery.DispatchPermanent,
			ErrorCode:    fmt.Sprintf("%d", resp.StatusCode),
			ErrorMessage: fmt.Sprintf("node returned status %d", resp.StatusCode),
			LatencyMs:    latency,
		}, nil
	}
	if resp.StatusCode >= 400 {
		return delivery.DispatchResult{
			Outcome:      delivery.DispatchPermanent,
			ErrorCode:    fmt.Sprintf("%d", resp.StatusCode),
			ErrorMessage: fmt.Sprintf("node rejected request: status %d", resp.StatusCode),
			LatencyMs:    latency,
		}, nil
	}

	var parsed dispatchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return delivery.DispatchResult{
			Outcome:      delivery.DispatchTransient,
			ErrorMessage: "malformed response body: " + err.Error(),
			LatencyMs:    latency,
		}, nil
	}

	if !parsed.Success {
		return delivery.DispatchResult{
			Outcome:      delivery.DispatchTransient,
			ErrorCode:    fmt.Sprintf("%d", parsed.ErrorCode),
			ErrorMessage: parsed.ErrorMessage,
			LatencyMs:    latency,
		}, nil
	}

	return delivery.DispatchResult{
		Outcome:        delivery.DispatchSuccess,
		PlaysDelivered: parsed.PlaysDelivered,
		LatencyMs:      latency,
	}, nil
}
