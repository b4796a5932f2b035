package core

import (
	"context"

	"github.com/mesos/mesos-go/api/v1/lib/extras/store"

	"github.com/cgaustin/espa-scheduler/core/config"
	"github.com/cgaustin/espa-scheduler/core/orderapi"
)

// Run wires together the Order-API client, the Mesos V1 HTTP transport, and
// the controller event loop, then blocks until ctx is canceled or the
// subscription terminates unrecoverably. This is the single entrypoint
// cmd/espa-scheduler calls after loading configuration.
func Run(ctx context.Context, cfg *config.Config) error {
	espaClient, err := orderapi.NewClient(cfg.EspaAPI, cfg.TaskImage, log.WithPrefix("orderapi"))
	if err != nil {
		return err
	}

	cli := buildHTTPCaller(cfg)
	state := newInternalState(cfg, cli, espaClient)

	fidStore := store.NewInMemorySingleton()

	return runSchedulerController(ctx, state, fidStore)
}
