package core

import (
	"context"
	"time"
)

// startPeriodicActions launches the three background goroutines described
// in spec §4.7: refill, housekeeping, and revive. It is called exactly
// once, from the first SUBSCRIBED event, never earlier.
func startPeriodicActions(ctx context.Context, state *internalState) {
	go refillLoop(ctx, state)
	go housekeepingLoop(ctx, state)
	go reviveLoop(ctx, state)
}

// refillLoop repopulates the work queue from the Order API on a fixed
// cadence, and also in response to the offer handler's opportunistic
// nudge. The product category is rotated exactly once per tick regardless
// of how many units came back, matching spec §4.7.
func refillLoop(ctx context.Context, state *internalState) {
	interval := time.Duration(state.cfg.ProductRequestFrequency) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refillOnce(ctx, state)
		case <-state.refillTrg:
			refillOnce(ctx, state)
		}
	}
}

func refillOnce(ctx context.Context, state *internalState) {
	if state.espa.MesosTasksDisabled(ctx) {
		return
	}
	if state.queue.ApproxLen() >= state.cfg.ProductScheduledMax {
		return
	}

	category := state.rotate.Next()
	units := state.espa.GetProductsToProcess(ctx, []string{category}, state.cfg.ProductRequestCount, "", "")
	if len(units) == 0 {
		log.WithPrefix("periodic").WithField("category", category).
			Debug("no work to do for product type")
		return
	}

	for i := range units {
		u := units[i]
		if err := state.queue.PutNoWait(&u); err != nil {
			log.WithPrefix("periodic").WithField("category", category).
				Info("queue full, stopping refill for this tick")
			break
		}
		if err := state.espa.SetToScheduled(ctx, &u); err != nil {
			log.WithPrefix("periodic").WithError(err).
				WithField("taskId", u.TaskID()).
				Warning("failed to set unit to scheduled")
		}
	}
	state.metricsAPI.tickQueueDepth(state.queue.ApproxLen())
}

// housekeepingLoop calls the Order API's order-processing sweep on a fixed
// cadence. Failures are logged and never fatal: this is best-effort
// housekeeping, not part of the admission critical path.
func housekeepingLoop(ctx context.Context, state *internalState) {
	interval := time.Duration(state.cfg.HandleOrdersFrequency) * time.Minute
	if interval <= 0 {
		interval = 7 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state.espa.HandleOrders(ctx)
		}
	}
}

// reviveLoop probes whether there is work available and, if so, nudges the
// controller loop to send REVIVE, clearing any filters set by prior
// DECLINE/ACCEPT calls.
func reviveLoop(ctx context.Context, state *internalState) {
	interval := time.Duration(state.cfg.ReviveFrequency) * time.Minute
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if state.espa.MesosTasksDisabled(ctx) {
				continue
			}
			units := state.espa.GetProductsToProcess(ctx, nil, 1, "", "")
			if len(units) == 0 {
				continue
			}
			select {
			case state.reviveTrg <- struct{}{}:
			default:
			}
		}
	}
}
