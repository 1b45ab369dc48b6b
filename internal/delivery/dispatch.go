package delivery

import "context"

// DispatchRequest is the contract a Dispatch Boundary implementation
// receives for one task attempt.
type DispatchRequest struct {
	TaskID           string
	IdempotencyToken string
	TargetRef        string
	Quantity         int
	NodeAddress      string
	NodePort         int
}

// DispatchOutcome classifies how a dispatch attempt concluded.
type DispatchOutcome int

const (
	// DispatchSuccess means the attempt fully delivered the requested quantity.
	DispatchSuccess DispatchOutcome = iota
	// DispatchTransient means the attempt failed in a way that is worth
	// retrying (timeout, 5xx, connection reset).
	DispatchTransient
	// DispatchPermanent means the attempt failed in a way retrying will
	// not fix (target rejected, invalid reference, banned node).
	DispatchPermanent
)

// DispatchResult is what a Dispatch Boundary returns for one attempt.
type DispatchResult struct {
	Outcome        DispatchOutcome
	PlaysDelivered int
	ErrorCode      string
	ErrorMessage   string
	LatencyMs      int64
}

// Dispatcher is the capability interface the worker depends on to
// actually execute a task against a node. It is the one seam where this
// core hands off to an external system it does not control.
type Dispatcher interface {
	Dispatch(ctx context.Context, req DispatchRequest) (DispatchResult, error)
}
