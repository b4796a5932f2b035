package core

import (
	"net/url"
	"time"

	mesos "github.com/mesos/mesos-go/api/v1/lib"
	"github.com/mesos/mesos-go/api/v1/lib/httpcli"
	"github.com/mesos/mesos-go/api/v1/lib/httpcli/httpsched"
	"github.com/mesos/mesos-go/api/v1/lib/scheduler/calls"

	"github.com/cgaustin/espa-scheduler/core/config"
)

// buildHTTPCaller wires up the Mesos V1 HTTP Scheduler API transport:
// an httpcli.Client pointed at the cluster master's /api/v1/scheduler
// endpoint, wrapped by httpsched's long-poll-aware Caller. This is the
// transport that state.cli carries through every calls.CallNoData(...) in
// the scheduler event handlers, grounded on
// awegrzyn-Control/core/scheduler.go's state.cli call sites.
func buildHTTPCaller(cfg *config.Config) calls.Caller {
	endpoint := url.URL{Scheme: "http", Host: cfg.MesosMaster, Path: "/api/v1/scheduler"}

	cli := httpcli.New(
		httpcli.Endpoint(endpoint.String()),
		httpcli.Timeout(20*time.Second),
	)
	return httpsched.NewCaller(cli)
}

// frameworkRole is the single role this scheduler registers under. SUPPRESS
// and REVIVE calls are scoped to it rather than suppressing every role the
// cluster master knows about.
const frameworkRole = "*"

// buildFrameworkInfo describes this scheduler to the cluster master. A
// FrameworkID is deliberately left unset here: controller.Run supplies one
// from the persisted store (store.GetIgnoreErrors(fidStore)) once the
// scheduler has subscribed at least once before.
func buildFrameworkInfo(cfg *config.Config) *mesos.FrameworkInfo {
	info := &mesos.FrameworkInfo{
		User:            cfg.MesosUser,
		Name:            "ESPAScheduler",
		Hostname:        &cfg.Hostname,
		FailoverTimeout: floatPtr((75 * time.Second).Seconds()),
		Checkpoint:      boolPtr(true),
		Roles:           []string{frameworkRole},
	}
	if cfg.MesosPrincipal != "" {
		info.Principal = &cfg.MesosPrincipal
	}
	return info
}

func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }
