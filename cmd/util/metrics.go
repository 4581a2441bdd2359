package util

import (
	"context"
	"errors"
	vmetrics "github.com/VictoriaMetrics/metrics"
	"net/http"
	"time"
)

// MetricsHandler writes all dping counters and the process metrics in the prometheus text format
func MetricsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		vmetrics.WritePrometheus(w, true)
	})
}

// StartMetricsEndpoint serves /metrics on addr in the background
func StartMetricsEndpoint(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		Logger.Infof("serving metrics on http://%s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("metrics endpoint: %v", err)
		}
	}()

	return srv
}

// StopMetricsEndpoint shuts the metrics endpoint down
func StopMetricsEndpoint(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		Logger.Warningf("failed to stop metrics endpoint: %v", err)
	}
}
