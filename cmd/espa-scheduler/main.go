// Command espa-scheduler subscribes to a Cluster Master, pulls work from an
// Order API, and dispatches tasks against offered resources until stopped.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cgaustin/espa-scheduler/common/logger"
	"github.com/cgaustin/espa-scheduler/core"
	"github.com/cgaustin/espa-scheduler/core/config"
)

var log = logger.New(logrus.StandardLogger(), "main")

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.WithError(err).Fatal("espa-scheduler exited with error")
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "espa-scheduler",
		Short: "Bridges the ESPA Order API work queue to a Mesos-style cluster master",
		RunE:  run,
	}

	cmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
	cmd.PersistentFlags().String("admin-addr", ":9090", "address for the /healthz and /metrics HTTP surface")
	viper.BindPFlag("verbose", cmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("admin_addr", cmd.PersistentFlags().Lookup("admin-addr"))

	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("verbose") {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("shutting down")
		cancel()
	}()

	go serveAdminHTTP(viper.GetString("admin_addr"))

	return core.Run(ctx, cfg)
}

// serveAdminHTTP exposes /healthz and /metrics for an operator running this
// scheduler under something like Marathon or systemd.
func serveAdminHTTP(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	log.WithField("addr", addr).Info("admin http listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Error("admin http server exited")
	}
}
