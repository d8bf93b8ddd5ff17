package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	prometheus.MustRegister(MessagesSent, SendFailures, SendLatency)
	prometheus.MustRegister(ProducersCreated, CreateFailures, ProducersClosed)
	prometheus.MustRegister(ActiveProducers, PendingCreations, QueueDepth)
}

func StartMetricsServer(port int) {
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", port)
		fmt.Println("[METRICS] Prometheus exporter listening on", addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			fmt.Printf("[METRICS] Failed to start metrics server: %v\n", err)
		}
	}()
}

// ObserveSend updates the send metrics for one completed publish attempt.
func ObserveSend(elapsedSeconds float64, err error) {
	if err != nil {
		SendFailures.Inc()
		return
	}
	MessagesSent.Inc()
	SendLatency.Observe(elapsedSeconds)
}
