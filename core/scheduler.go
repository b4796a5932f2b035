package core

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/spf13/viper"

	mesos "github.com/mesos/mesos-go/api/v1/lib"
	"github.com/mesos/mesos-go/api/v1/lib/backoff"
	xmetrics "github.com/mesos/mesos-go/api/v1/lib/extras/metrics"
	"github.com/mesos/mesos-go/api/v1/lib/extras/scheduler/callrules"
	"github.com/mesos/mesos-go/api/v1/lib/extras/scheduler/controller"
	"github.com/mesos/mesos-go/api/v1/lib/extras/scheduler/eventrules"
	"github.com/mesos/mesos-go/api/v1/lib/extras/store"
	"github.com/mesos/mesos-go/api/v1/lib/scheduler"
	"github.com/mesos/mesos-go/api/v1/lib/scheduler/calls"
	"github.com/mesos/mesos-go/api/v1/lib/scheduler/events"
	"github.com/sirupsen/logrus"

	"github.com/cgaustin/espa-scheduler/core/orderapi"
	"github.com/cgaustin/espa-scheduler/core/resources"
	"github.com/cgaustin/espa-scheduler/core/task"
)

var (
	RegistrationMinBackoff = 1 * time.Second
	RegistrationMaxBackoff = 15 * time.Second
)

// StateError is returned when the subscription cannot be resumed and the
// process should exit rather than keep retrying.
type StateError string

func (err StateError) Error() string { return string(err) }

// runSchedulerController drives the subscribe/offers/update event loop,
// starting the periodic background actions once the first SUBSCRIBED event
// lands, never earlier.
func runSchedulerController(ctx context.Context, state *internalState, fidStore store.Singleton) error {
	var periodicStarted bool

	subscribed := make(chan struct{}, 1)
	go func() {
		<-subscribed
		if !periodicStarted {
			periodicStarted = true
			startPeriodicActions(ctx, state)
		}
	}()

	go func() {
		for {
			select {
			case <-state.reviveTrg:
				doReviveOffers(ctx, state)
			case <-ctx.Done():
				return
			}
		}
	}()

	return controller.Run(
		ctx,
		buildFrameworkInfo(state.cfg),
		state.cli,
		controller.WithEventHandler(buildEventHandler(state, fidStore, subscribed)),
		controller.WithFrameworkID(store.GetIgnoreErrors(fidStore)),
		controller.WithRegistrationTokens(
			backoff.Notifier(RegistrationMinBackoff, RegistrationMaxBackoff, ctx.Done()),
		),
		controller.WithSubscriptionTerminated(func(err error) {
			if err != nil {
				if err != io.EOF {
					log.WithPrefix("scheduler").WithField("error", err.Error()).
						Error("subscription terminated")
				}
				if _, ok := err.(StateError); ok {
					state.shutdown()
				}
				return
			}
			log.WithPrefix("scheduler").Info("disconnected")
		}),
	)
}

// buildEventHandler wires the logging/metrics rule chain around the three
// events this scheduler cares about, matching
// awegrzyn-Control/core/scheduler.go's buildEventHandler shape.
func buildEventHandler(state *internalState, fidStore store.Singleton, subscribed chan<- struct{}) events.Handler {
	logger := controller.LogEvents(nil).Unless(viper.GetBool("verbose"))

	return eventrules.New(
		logAllEvents().If(viper.GetBool("verbose")),
		eventMetrics(state.metricsAPI),
		controller.LiftErrors().DropOnError(),
	).Handle(events.Handlers{
		scheduler.Event_FAILURE: logger.HandleF(failure),
		scheduler.Event_OFFERS:  eventrules.HandleF(resourceOffers(state)),
		scheduler.Event_UPDATE:  controller.AckStatusUpdates(state.cli).AndThen().HandleF(statusUpdate(state)),
		scheduler.Event_SUBSCRIBED: eventrules.New(
			logger,
			controller.TrackSubscription(fidStore, viper.GetDuration("mesosFailoverTimeout")),
			eventrules.HandleF(func(ctx context.Context, e *scheduler.Event) error {
				select {
				case subscribed <- struct{}{}:
				default:
				}
				return nil
			}),
		),
	}.Otherwise(logger.HandleEvent))
}

// failure logs an Event_FAILURE for an executor or an agent. Task-container
// executors are out of scope for this scheduler, so this is informational
// only: the status-update handler is what actually reacts to task loss.
func failure(_ context.Context, e *scheduler.Event) error {
	f := e.GetFailure()
	if aid := f.AgentID; aid != nil {
		log.WithPrefix("scheduler").WithField("agent", aid.Value).Error("agent failed")
	}
	return nil
}

// resourceOffers implements spec §4.6's offer-handling policy in order:
// disabled → decline all + SUPPRESS; cap reached → decline all; otherwise
// opportunistic refill, then per-offer fit check, dequeue, build, ACCEPT or
// DECLINE.
func resourceOffers(state *internalState) events.HandlerFunc {
	return func(ctx context.Context, e *scheduler.Event) error {
		offers := e.GetOffers().GetOffers()
		refuse := calls.RefuseSeconds(time.Duration(state.cfg.OfferRefuseSeconds) * time.Second)

		if state.espa.MesosTasksDisabled(ctx) {
			declineAll(ctx, state, offers, refuse)
			if err := calls.CallNoData(ctx, state.cli, calls.Suppress(frameworkRole)); err != nil {
				log.WithPrefix("scheduler").WithError(err).Error("failed to suppress offers")
			}
			return nil
		}

		if state.coreLimitReached() {
			log.WithPrefix("scheduler").Debug("core limit reached, declining offers")
			declineAll(ctx, state, offers, refuse)
			return nil
		}

		triggerOpportunisticRefill(state)

		var accepted, declined int
		for i := range offers {
			offer := offers[i]
			if !resources.Fit(offer.Resources, resources.Requirement{
				CPU:  state.cfg.TaskCPU,
				Mem:  state.cfg.TaskMem,
				Disk: state.cfg.TaskDisk,
			}) {
				declineOne(ctx, state, offer.ID, refuse)
				declined++
				continue
			}

			u, err := state.queue.GetNoWait()
			if err != nil {
				declineOne(ctx, state, offer.ID, refuse)
				declined++
				continue
			}
			unit := u.(*orderapi.WorkUnit)

			ti, err := task.Build(state.cfg, &offer, unit)
			if err != nil {
				log.WithPrefix("scheduler").WithError(err).
					WithField("taskId", unit.TaskID()).
					Error("failed to build task, declining offer")
				declineOne(ctx, state, offer.ID, refuse)
				declined++
				continue
			}

			accept := calls.Accept(
				calls.OfferOperations{calls.OpLaunch(ti)}.WithOffers(offer.ID),
			).With(refuse)
			if err := calls.CallNoData(ctx, state.cli, accept); err != nil {
				log.WithPrefix("scheduler").WithError(err).Error("failed to launch task")
				declined++
				continue
			}
			accepted++
			if err := state.espa.UpdateStatus(ctx, unit.Scene, unit.OrderID, "tasked"); err != nil {
				log.WithPrefix("scheduler").WithError(err).
					WithField("taskId", unit.TaskID()).
					Warning("failed to update order api status to tasked")
			}
		}

		state.metricsAPI.offersDeclined(uint64(declined))
		state.metricsAPI.tasksLaunched(uint64(accepted))
		state.metricsAPI.tickQueueDepth(state.queue.ApproxLen())
		return nil
	}
}

func declineAll(ctx context.Context, state *internalState, offers []mesos.Offer, refuse calls.CallOpt) {
	if len(offers) == 0 {
		return
	}
	ids := make([]mesos.OfferID, len(offers))
	for i := range offers {
		ids[i] = offers[i].ID
	}
	if err := calls.CallNoData(ctx, state.cli, calls.Decline(ids...).With(refuse)); err != nil {
		log.WithPrefix("scheduler").WithError(err).Error("failed to decline offers")
	}
	state.metricsAPI.offersDeclined(uint64(len(offers)))
}

func declineOne(ctx context.Context, state *internalState, id mesos.OfferID, refuse calls.CallOpt) {
	if err := calls.CallNoData(ctx, state.cli, calls.Decline(id).With(refuse)); err != nil {
		log.WithPrefix("scheduler").WithError(err).Error("failed to decline offer")
	}
}

// triggerOpportunisticRefill is a non-blocking nudge; the periodic refill
// in periodic.go is authoritative and does the actual Order-API work. This
// just lets a quiet queue refill sooner than the next tick when offers are
// already arriving.
func triggerOpportunisticRefill(state *internalState) {
	select {
	case state.refillTrg <- struct{}{}:
	default:
	}
}

// statusUpdate implements spec §4.6's status-update policy: healthy states
// update the running set, anything else reports a scene error and clears
// the running set entry.
func statusUpdate(state *internalState) events.HandlerFunc {
	return func(ctx context.Context, e *scheduler.Event) error {
		s := e.GetUpdate().GetStatus()
		taskID := s.TaskID.Value
		st := s.GetState()

		orderID, scene, parseErr := orderapi.ParseTaskID(taskID)
		if parseErr != nil {
			log.WithPrefix("scheduler").WithError(parseErr).
				WithField("taskId", taskID).
				Error("cannot split task id, skipping status update")
			return nil
		}

		switch st {
		case mesos.TASK_STAGING, mesos.TASK_STARTING, mesos.TASK_RUNNING, mesos.TASK_FINISHED:
			log.WithPrefix("scheduler").WithFields(logrus.Fields{
				"taskId": taskID,
				"state":  st.String(),
			}).Debug("status update")

			if st == mesos.TASK_RUNNING {
				state.markRunning(taskID, time.Now())
				state.metricsAPI.tickTasksRunning(state.runningCount())
			}
			if st == mesos.TASK_FINISHED {
				state.clearRunning(taskID)
				state.metricsAPI.tasksFinished(1)
				state.metricsAPI.tickTasksRunning(state.runningCount())
			}

		default:
			log.WithPrefix("scheduler").WithFields(logrus.Fields{
				"taskId":  taskID,
				"state":   st.String(),
				"message": s.GetMessage(),
			}).Error("abnormal task state")

			state.metricsAPI.tasksFailed(1)
			if err := state.espa.SetSceneError(ctx, scene, orderID, rawUpdate(&s)); err != nil {
				log.WithPrefix("scheduler").WithError(err).
					WithField("taskId", taskID).
					Error("failed to report scene error to order api")
			}
			state.clearRunning(taskID)
			state.metricsAPI.tickTasksRunning(state.runningCount())
		}

		return nil
	}
}

func rawUpdate(s *mesos.TaskStatus) map[string]interface{} {
	return map[string]interface{}{
		"state":   s.GetState().String(),
		"reason":  s.GetReason().String(),
		"source":  s.GetSource().String(),
		"message": s.GetMessage(),
	}
}

func doReviveOffers(ctx context.Context, state *internalState) {
	if err := calls.CallNoData(ctx, state.cli, calls.Revive(frameworkRole)); err != nil {
		log.WithPrefix("scheduler").WithError(err).Error("failed to revive offers")
		return
	}
	log.WithPrefix("scheduler").Debug("revive offers done")
}

// logAllEvents logs every observed event; only enabled under verbose
// logging since marshaling every event is not free.
func logAllEvents() eventrules.Rule {
	return func(ctx context.Context, e *scheduler.Event, err error, ch eventrules.Chain) (context.Context, *scheduler.Event, error) {
		payload, _ := json.Marshal(e)
		log.WithPrefix("scheduler").WithField("event", string(payload)).Debug("incoming event")
		return ch(ctx, e, err)
	}
}

// eventMetrics counts every processed event, offers received, and any
// handler error.
func eventMetrics(m *metricsAPI) eventrules.Rule {
	return func(ctx context.Context, e *scheduler.Event, err error, ch eventrules.Chain) (context.Context, *scheduler.Event, error) {
		m.eventReceivedCount(1)
		if e != nil && e.GetType() == scheduler.Event_OFFERS {
			m.offersReceived(uint64(len(e.GetOffers().GetOffers())))
		}
		ctx, e, err = ch(ctx, e, err)
		if err != nil {
			m.eventErrorCount(1)
		}
		return ctx, e, err
	}
}

// callMetrics counts every outgoing scheduler call and any error returned
// for it, timing each one into callLatency.
func callMetrics(m *metricsAPI) callrules.Rule {
	harness := xmetrics.NewHarness(m.callCount, m.callErrorCount, m.callLatency, time.Now)
	return callrules.Metrics(harness, nil)
}

// logCalls logs a fixed message whenever a call of the given type goes out,
// used for the handful of call types worth a breadcrumb at debug level.
func logCalls(messages map[scheduler.Call_Type]string) callrules.Rule {
	return func(ctx context.Context, c *scheduler.Call, r mesos.Response, err error, ch callrules.Chain) (context.Context, *scheduler.Call, mesos.Response, error) {
		if message, ok := messages[c.GetType()]; ok {
			log.WithPrefix("scheduler").Debug(message)
		}
		return ch(ctx, c, r, err)
	}
}

// decorateCaller wraps cli with the callMetrics/logCalls rule chain so every
// outgoing ACCEPT/DECLINE/SUPPRESS/REVIVE call is counted and timed, the way
// awegrzyn-Control/core/scheduler.go's callMetrics/logCalls decorate state.cli.
func decorateCaller(cli calls.Caller, m *metricsAPI) calls.Caller {
	return callrules.New(
		callMetrics(m),
		logCalls(map[scheduler.Call_Type]string{
			scheduler.Call_ACCEPT:   "outgoing ACCEPT call",
			scheduler.Call_DECLINE:  "outgoing DECLINE call",
			scheduler.Call_SUPPRESS: "outgoing SUPPRESS call",
			scheduler.Call_REVIVE:   "outgoing REVIVE call",
		}),
	).Caller(cli)
}
