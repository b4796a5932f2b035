package core

import (
	xmetrics "github.com/mesos/mesos-go/api/v1/lib/extras/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// metricsAPI bundles every counter/gauge/histogram this scheduler exports,
// backed by prometheus/client_golang and wired into the mesos-go event/call
// rule chains via xmetrics.Harness, exactly as
// awegrzyn-Control/core/scheduler.go's eventMetrics/callMetrics do.
type metricsAPI struct {
	offersReceived xmetrics.AddUint64
	offersDeclined xmetrics.AddUint64
	tasksLaunched  xmetrics.AddUint64
	tasksRunning   prometheus.Gauge
	tasksFinished  xmetrics.AddUint64
	tasksFailed    xmetrics.AddUint64
	queueDepth     prometheus.Gauge

	eventReceivedCount   xmetrics.AddUint64
	eventErrorCount      xmetrics.AddUint64
	eventReceivedLatency xmetrics.AddMultiple

	callCount      xmetrics.AddUint64
	callErrorCount xmetrics.AddUint64
	callLatency    xmetrics.AddMultiple
}

func counterAdder(c prometheus.Counter) xmetrics.AddUint64 {
	return func(delta uint64) { c.Add(float64(delta)) }
}

func histogramAdder(h prometheus.Histogram) xmetrics.AddMultiple {
	return func(values ...float64) {
		for _, v := range values {
			h.Observe(v)
		}
	}
}

func newMetricsAPI() *metricsAPI {
	offersReceived := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "espa_scheduler", Subsystem: "offers", Name: "received_total",
		Help: "Number of resource offers received from the cluster master.",
	})
	offersDeclined := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "espa_scheduler", Subsystem: "offers", Name: "declined_total",
		Help: "Number of resource offers declined.",
	})
	tasksLaunched := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "espa_scheduler", Subsystem: "tasks", Name: "launched_total",
		Help: "Number of tasks launched via ACCEPT.",
	})
	tasksFinished := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "espa_scheduler", Subsystem: "tasks", Name: "finished_total",
		Help: "Number of tasks that reached TASK_FINISHED.",
	})
	tasksFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "espa_scheduler", Subsystem: "tasks", Name: "failed_total",
		Help: "Number of tasks that reached an abnormal terminal state.",
	})
	tasksRunning := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "espa_scheduler", Subsystem: "tasks", Name: "running",
		Help: "Number of tasks currently tracked as running.",
	})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "espa_scheduler", Subsystem: "queue", Name: "depth",
		Help: "Approximate number of work units currently queued.",
	})
	eventReceivedCount := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "espa_scheduler", Subsystem: "events", Name: "received_total",
		Help: "Number of scheduler events processed.",
	})
	eventErrorCount := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "espa_scheduler", Subsystem: "events", Name: "error_total",
		Help: "Number of scheduler events that errored during handling.",
	})
	eventReceivedLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "espa_scheduler", Subsystem: "events", Name: "latency_seconds",
		Help: "Time spent handling a scheduler event.",
	})
	callCount := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "espa_scheduler", Subsystem: "calls", Name: "sent_total",
		Help: "Number of scheduler calls sent to the cluster master.",
	})
	callErrorCount := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "espa_scheduler", Subsystem: "calls", Name: "error_total",
		Help: "Number of scheduler calls that returned an error.",
	})
	callLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "espa_scheduler", Subsystem: "calls", Name: "latency_seconds",
		Help: "Time spent waiting for a scheduler call's response.",
	})

	prometheus.MustRegister(
		offersReceived, offersDeclined, tasksLaunched, tasksFinished, tasksFailed,
		tasksRunning, queueDepth, eventReceivedCount, eventErrorCount,
		eventReceivedLatency, callCount, callErrorCount, callLatency,
	)

	return &metricsAPI{
		offersReceived:       counterAdder(offersReceived),
		offersDeclined:       counterAdder(offersDeclined),
		tasksLaunched:        counterAdder(tasksLaunched),
		tasksRunning:         tasksRunning,
		tasksFinished:        counterAdder(tasksFinished),
		tasksFailed:          counterAdder(tasksFailed),
		queueDepth:           queueDepth,
		eventReceivedCount:   counterAdder(eventReceivedCount),
		eventErrorCount:      counterAdder(eventErrorCount),
		eventReceivedLatency: histogramAdder(eventReceivedLatency),
		callCount:            counterAdder(callCount),
		callErrorCount:       counterAdder(callErrorCount),
		callLatency:          histogramAdder(callLatency),
	}
}

func (m *metricsAPI) tickQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

func (m *metricsAPI) tickTasksRunning(n int) {
	m.tasksRunning.Set(float64(n))
}
