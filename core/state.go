package core

import (
	"sync"
	"time"

	"github.com/mesos/mesos-go/api/v1/lib/scheduler/calls"

	"github.com/cgaustin/espa-scheduler/core/config"
	"github.com/cgaustin/espa-scheduler/core/orderapi"
	"github.com/cgaustin/espa-scheduler/core/queue"
	"github.com/cgaustin/espa-scheduler/core/rotation"
)

// internalState is the single context object threaded through every
// handler. There are no package-level globals holding scheduler state: a
// handler that needs the queue, the running set, or a Mesos caller reaches
// them off this struct, the way awegrzyn-Control/core/scheduler.go's
// handlers all take *internalState.
type internalState struct {
	sync.Mutex

	cfg    *config.Config
	cli    calls.Caller
	espa   *orderapi.Client
	queue  *queue.Queue
	rotate *rotation.Rotation

	// running is the admission-control bookkeeping set: task id -> the
	// time TASK_RUNNING was first observed for it. The status-update
	// handler is its sole writer.
	running map[string]time.Time

	metricsAPI *metricsAPI

	// reviveTrg is written by the periodic revive goroutine and read by
	// runSchedulerController's dispatcher, mirroring the teacher's
	// reviveOffersTrg handshake channel.
	reviveTrg chan struct{}

	// refillTrg lets the offer handler opportunistically nudge the
	// periodic refill loop without blocking; see spec §4.6 step 3.
	refillTrg chan struct{}

	done chan struct{}
}

func newInternalState(cfg *config.Config, cli calls.Caller, espa *orderapi.Client) *internalState {
	metricsAPI := newMetricsAPI()
	return &internalState{
		cfg:        cfg,
		cli:        decorateCaller(cli, metricsAPI),
		espa:       espa,
		queue:      queue.New(cfg.ProductScheduledMax),
		rotate:     rotation.New(weightsFromConfig(cfg)),
		running:    make(map[string]time.Time),
		metricsAPI: metricsAPI,
		reviveTrg:  make(chan struct{}, 1),
		refillTrg:  make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

func weightsFromConfig(cfg *config.Config) []rotation.Weight {
	weights := make([]rotation.Weight, 0, len(cfg.ProductWeights))
	for _, w := range cfg.ProductWeights {
		weights = append(weights, rotation.Weight{Category: w.Category, Weight: w.Weight})
	}
	return weights
}

func (s *internalState) shutdown() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// markRunning records task id as running if it isn't already tracked.
func (s *internalState) markRunning(taskID string, at time.Time) {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.running[taskID]; !ok {
		s.running[taskID] = at
	}
}

// clearRunning removes task id from the running set; it is a no-op if the
// id was never tracked, matching the original scheduler's
// runningList.__delitem__ + KeyError-swallow behavior.
func (s *internalState) clearRunning(taskID string) {
	s.Lock()
	defer s.Unlock()
	delete(s.running, taskID)
}

// runningCount reports how many tasks are currently tracked as running,
// used by the admission policy's core-limit check.
func (s *internalState) runningCount() int {
	s.Lock()
	defer s.Unlock()
	return len(s.running)
}

// coreLimitReached mirrors EspaScheduler.core_limit_reached(): the product
// of the running-task count and per-task cpu demand compared against the
// configured ceiling.
func (s *internalState) coreLimitReached() bool {
	if s.cfg.MaxCPU <= 0 {
		return false
	}
	utilization := float64(s.runningCount()) * s.cfg.TaskCPU
	return utilization >= s.cfg.MaxCPU
}
