package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"playgate/cmd/internal/play/playapi"
	"playgate/cmd/internal/play/session"
	"playgate/cmd/internal/realtime"
	v1 "playgate/contracts/play/v1"
)

const readinessTimeout = 2 * time.Second

type routes struct {
	log   *slog.Logger
	store session.Store
	reg   *prometheus.Registry
	play  *playapi.Handler
	ws    *realtime.WSGateway

	// Global otel provider and propagator when nil.
	tp   trace.TracerProvider
	prop propagation.TextMapPropagator
}

// handler builds the full router wrapped in the cross-cutting middleware.
func (rt routes) handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet, http.MethodHead)

	r.HandleFunc("/readyz", rt.handleReady).Methods(http.MethodGet, http.MethodHead)

	r.Handle("/metrics", promhttp.HandlerFor(rt.reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// Registered before the /play subrouter so the POST-only protocol routes do not shadow it.
	if rt.ws != nil {
		r.HandleFunc(v1.PathEvents, rt.ws.HandleWS).Methods(http.MethodGet)
	}
	rt.play.Register(r)

	tp, prop := rt.tp, rt.prop
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}
	return WithTracing(WithRequestLogging(WithSecurityHeaders(r), rt.log), tp, prop)
}

func (rt routes) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := rt.store.Ping(ctx); err != nil {
		rt.log.Info("readyz.store.not_ready", "err", err)
		http.Error(w, "store not ready", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready\n"))
}
