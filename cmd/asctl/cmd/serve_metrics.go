package cmd

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/epics-controls/accesssecurity/internal/metrics"
	"github.com/epics-controls/accesssecurity/pkg/accesssecurity"
)

var serveMetricsAddr string

var serveMetricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Load a policy and expose its Prometheus metrics over HTTP",
	Long: `Loads the configured policy once, registers its metrics against a
fresh Prometheus registry, and blocks serving /metrics on --addr. There is
no policy reload: restart the process to pick up a changed policy file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := metrics.New(reg)

		if _, err := accesssecurity.New(*cfg, accesssecurity.WithMetrics(m)); err != nil {
			return err
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

		slog.Info("serving metrics", "addr", serveMetricsAddr)
		return http.ListenAndServe(serveMetricsAddr, mux)
	},
}

func init() {
	serveMetricsCmd.Flags().StringVar(&serveMetricsAddr, "addr", ":9090", "listen address")
	rootCmd.AddCommand(serveMetricsCmd)
}
