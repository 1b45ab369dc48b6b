package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"deliverycore/internal/observability"
)

// handleListTasksByOrder returns every task belonging to one order,
// identified by the path segment following /admin/tasks/.
func (a *API) handleListTasksByOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	orderID := strings.TrimPrefix(r.URL.Path, "/admin/tasks/")
	if orderID == "" {
		http.Error(w, "order id is required", http.StatusBadRequest)
		return
	}
	tasks, err := a.store.ListTasksByOrder(r.Context(), orderID)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tasks)
}

// handleListFailedPermanent returns the FAILED_PERMANENT tasks for one
// order, identified by the path segment following /admin/failed-permanent/.
func (a *API) handleListFailedPermanent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	orderID := strings.TrimPrefix(r.URL.Path, "/admin/failed-permanent/")
	if orderID == "" {
		http.Error(w, "order id is required", http.StatusBadRequest)
		return
	}
	tasks, err := a.store.ListFailedPermanentTasks(r.Context(), orderID)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tasks)
}

const deadLetterLimit = 200

// handleDeadLetter lists tasks that exhausted their retry budget across
// every order, bounded to deadLetterLimit entries.
func (a *API) handleDeadLetter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tasks, err := a.store.ListDeadLetterTasks(r.Context(), deadLetterLimit)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	observability.DeadLetterSize.Set(float64(len(tasks)))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tasks)
}

// workerLiveness is one worker's reported counters.
type workerLiveness struct {
	WorkerID        string `json:"worker_id"`
	ActiveClaims    int64  `json:"active_claims"`
	Processed       int64  `json:"processed"`
	Completed       int64  `json:"completed"`
	FailedPermanent int64  `json:"failed_permanent"`
	Retried         int64  `json:"retried"`
}

// handleWorkerLiveness reports every locally-registered Delivery
// Worker's counters.
func (a *API) handleWorkerLiveness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	out := make([]workerLiveness, 0, len(a.workers))
	for _, wk := range a.workers {
		m := wk.Metrics()
		out = append(out, workerLiveness{
			WorkerID:        wk.ID(),
			ActiveClaims:    m.ActiveClaims(),
			Processed:       m.Processed(),
			Completed:       m.Completed(),
			FailedPermanent: m.FailedPermanent(),
			Retried:         m.Retried(),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// capacitySnapshot summarizes the admission picture at one instant.
type capacitySnapshot struct {
	Available int `json:"available_plays_per_hour"`
	Pending   int `json:"pending_load"`
	Ceiling   int `json:"window_ceiling"`
}

// handleCapacitySnapshot reports the planner's current available
// throughput and pending load.
func (a *API) handleCapacitySnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	available, err := a.planner.Available(ctx)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	pending, err := a.planner.PendingLoad(ctx)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(capacitySnapshot{
		Available: available,
		Pending:   pending,
		Ceiling:   available*72 - pending,
	})
}

// handleTimelineByOrder returns the recorded audit trail for one order,
// identified by the path segment following /admin/timeline/. Reports an
// empty list when no timeline recorder is wired.
func (a *API) handleTimelineByOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	orderID := strings.TrimPrefix(r.URL.Path, "/admin/timeline/")
	if orderID == "" {
		http.Error(w, "order id is required", http.StatusBadRequest)
		return
	}
	var events interface{} = []struct{}{}
	if a.trail != nil {
		events = a.trail.ByOrder(orderID)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}
