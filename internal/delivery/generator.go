package delivery

import (
	"context"
	"math/rand"
	"time"

	"deliverycore/internal/store"
)

const (
	singleTaskThreshold = 1000
	quantityPerTask     = 400
	minBatchQuantity    = 200
	maxBatchQuantity    = 500
	defaultWindow       = 48 * time.Hour
	maxWindow           = 72 * time.Hour
	jitterFraction      = 0.05
)

// GeneratorConfig bounds the task count a single order may decompose into.
type GeneratorConfig struct {
	MaxTaskCeiling int
	Window         time.Duration
}

// DefaultGeneratorConfig mirrors the window/ceiling defaults named for
// task decomposition: a ~48h window (never exceeding 72h) and no
// configured ceiling beyond what quantity/400 naturally produces.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{MaxTaskCeiling: 0, Window: defaultWindow}
}

// Generator decomposes an accepted order into K persisted tasks.
type Generator struct {
	backing store.Store
	cfg     GeneratorConfig
}

func NewGenerator(backing store.Store, cfg GeneratorConfig) *Generator {
	if cfg.Window <= 0 || cfg.Window > maxWindow {
		cfg.Window = defaultWindow
	}
	return &Generator{backing: backing, cfg: cfg}
}

// taskCount picks K for a given quantity: a single task for quantity at
// or below the single-task threshold, otherwise ceil(quantity/400)
// capped by any configured ceiling.
func (g *Generator) taskCount(quantity int) int {
	if quantity <= singleTaskThreshold {
		return 1
	}
	k := (quantity + quantityPerTask - 1) / quantityPerTask
	if g.cfg.MaxTaskCeiling > 0 && k > g.cfg.MaxTaskCeiling {
		k = g.cfg.MaxTaskCeiling
	}
	if k < 1 {
		k = 1
	}
	return k
}

// quantityPerBatch divides quantity across k tasks as evenly as
// possible; any remainder is folded into the final batch so the sum
// always equals quantity exactly.
func quantityPerBatch(quantity, k int) []int {
	base := quantity / k
	remainder := quantity % k
	out := make([]int, k)
	for i := range out {
		out[i] = base
	}
	out[k-1] += remainder
	return out
}

// Generate builds and persists K tasks for order, distributing start
// times uniformly across the delivery window with +/-5% jitter. It is
// a no-op if tasks already exist for this order (enforced by the store's
// unique order-id+sequence constraint via CreateTasks' own idempotence).
func (g *Generator) Generate(ctx context.Context, order *store.Order) error {
	existing, err := g.backing.ListTasksByOrder(ctx, order.OrderID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	k := g.taskCount(order.Quantity)
	batches := quantityPerBatch(order.Quantity, k)
	step := g.cfg.Window / time.Duration(k)

	tasks := make([]*store.Task, 0, k)
	for i := 0; i < k; i++ {
		seq := i + 1 // sequence numbers are 1..K, not 0-based
		offset := time.Duration(i) * step
		offset = jitter(offset)
		tasks = append(tasks, &store.Task{
			TaskID:           store.IdempotencyToken(order.OrderID, seq, 0) + "-task",
			OrderID:          order.OrderID,
			Sequence:         seq,
			Quantity:         batches[i],
			Status:           store.TaskPending,
			MaxAttempts:      3,
			ScheduledAt:      order.StartedAt.Add(offset),
			IdempotencyToken: store.IdempotencyToken(order.OrderID, seq, 0),
		})
	}
	return g.backing.CreateTasks(ctx, tasks)
}

// jitter perturbs d by up to +/-5%. math/rand (not crypto/rand) is
// sufficient: desynchronizing scheduled-at values is a load-smoothing
// concern, not a security one.
func jitter(d time.Duration) time.Duration {
	factor := 1 + (rand.Float64()*2-1)*jitterFraction
	return time.Duration(float64(d) * factor)
}
