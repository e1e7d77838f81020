package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clubsuite/event-payments/internal/gateway"
	"github.com/clubsuite/event-payments/internal/metrics"
	"github.com/clubsuite/event-payments/internal/model"
	"golang.org/x/time/rate"
)

// ReconcileConfig bounds one reconciliation sweep.
type ReconcileConfig struct {
	// MaxAge is how long a transaction may stay non-terminal before the
	// sweep forces a resolution.
	MaxAge time.Duration

	// BatchSize caps how many stale transactions one run processes.
	BatchSize int

	// GatewayQPS paces status queries so a full batch cannot burst the
	// gateway.
	GatewayQPS float64
}

// DefaultReconcileConfig matches the platform's operational policy:
// 24h horizon, batches of 100, at most 10 gateway queries per second.
func DefaultReconcileConfig() ReconcileConfig {
	return ReconcileConfig{
		MaxAge:     24 * time.Hour,
		BatchSize:  100,
		GatewayQPS: 10,
	}
}

// ReconcileService forces terminal resolution onto transactions the
// gateway never reported back on. Local state yields to the gateway's
// answer; an unreachable or unaware gateway defaults the order to
// CANCELLED.
type ReconcileService struct {
	transactions TransactionStore
	gateway      StatusGateway
	cache        Cache
	limiter      *rate.Limiter
	cfg          ReconcileConfig
	now          func() time.Time
}

// NewReconcileService constructs a ReconcileService. cache may be nil.
func NewReconcileService(transactions TransactionStore, gw StatusGateway, cache Cache, cfg ReconcileConfig) *ReconcileService {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.GatewayQPS <= 0 {
		cfg.GatewayQPS = 10
	}
	return &ReconcileService{
		transactions: transactions,
		gateway:      gw,
		cache:        cache,
		limiter:      rate.NewLimiter(rate.Limit(cfg.GatewayQPS), 1),
		cfg:          cfg,
		now:          time.Now,
	}
}

// Run executes one sweep and returns its summary. The sweep is
// idempotent and safely re-entrant: the selection predicate only matches
// rows still unresolved, and the status update refuses terminal rows, so
// concurrent or repeated runs cannot double-apply effects. Per-item
// failures are counted, never propagated.
func (s *ReconcileService) Run(ctx context.Context) (*model.ReconcileSummary, error) {
	cutoff := s.now().Add(-s.cfg.MaxAge)

	stale, err := s.transactions.ListExpired(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("select stale transactions: %w", err)
	}

	summary := &model.ReconcileSummary{Total: len(stale), Cutoff: cutoff}
	for i := range stale {
		s.resolve(ctx, &stale[i], summary)
	}

	slog.Info("reconciliation sweep finished",
		"total", summary.Total,
		"updated", summary.Updated,
		"approved", summary.Approved,
		"cancelled", summary.Cancelled,
		"errors", summary.Errors,
		"cutoff", summary.Cutoff,
	)
	return summary, nil
}

// PendingCount reports how many transactions the next run would select,
// with the cutoff it would use.
func (s *ReconcileService) PendingCount(ctx context.Context) (int, time.Time, error) {
	cutoff := s.now().Add(-s.cfg.MaxAge)
	n, err := s.transactions.CountExpired(ctx, cutoff)
	if err != nil {
		return 0, cutoff, fmt.Errorf("count stale transactions: %w", err)
	}
	return n, cutoff, nil
}

func (s *ReconcileService) resolve(ctx context.Context, t *model.Transaction, summary *model.ReconcileSummary) {
	if err := s.limiter.Wait(ctx); err != nil {
		summary.Errors++
		metrics.ReconcileOutcomes.WithLabelValues("error").Inc()
		return
	}

	next := model.StatusCancelled
	status, err := s.gateway.QueryStatus(ctx, t.OrderID)
	switch {
	case err == nil:
		// The gateway is the authority; adopt its answer.
		next = status
	case errors.Is(err, gateway.ErrNotFound):
		// The order never completed or expired gateway-side.
		next = model.StatusCancelled
	default:
		// Fail-safe: an unreachable gateway cancels the order. Counted as
		// an error too so operators can tell fail-safe cancellations from
		// authoritative ones.
		slog.Warn("gateway query failed, cancelling order",
			"order_id", t.OrderID, "error", err)
		summary.Errors++
		metrics.ReconcileOutcomes.WithLabelValues("error").Inc()
		next = model.StatusCancelled
	}

	if next == t.Status || !t.Status.CanTransitionTo(next) {
		return
	}

	changed, err := s.transactions.UpdateStatus(ctx, t.OrderID, next, s.now())
	if err != nil {
		slog.Error("persist reconciled status failed",
			"order_id", t.OrderID, "status", next, "error", err)
		summary.Errors++
		metrics.ReconcileOutcomes.WithLabelValues("error").Inc()
		return
	}
	if !changed {
		// A concurrent run resolved it first.
		return
	}

	summary.Updated++
	switch next {
	case model.StatusApproved:
		summary.Approved++
		metrics.ReconcileOutcomes.WithLabelValues("approved").Inc()
	case model.StatusCancelled, model.StatusRejected, model.StatusFailed, model.StatusVoided:
		summary.Cancelled++
		metrics.ReconcileOutcomes.WithLabelValues("cancelled").Inc()
	default:
		metrics.ReconcileOutcomes.WithLabelValues("updated").Inc()
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, txCacheKey(t.OrderID))
	}
}
