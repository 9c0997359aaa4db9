package transport

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the name readiness is reported under, next to the server-wide "" entry.
const HealthService = "multialgo.retarget.v1.Auditor"

// Health mirrors the auditor's readiness into the standard gRPC health service.
type Health struct {
	server *health.Server
	logger *zap.Logger
	ready  bool
}

// NewHealth returns a Health reporting NOT_SERVING until the first readiness change.
func NewHealth(logger *zap.Logger) *Health {
	h := &Health{server: health.NewServer(), logger: logger}
	h.apply(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Server returns the gRPC health server to register.
func (h *Health) Server() *health.Server {
	return h.server
}

// Watch polls ready every interval until ctx is done, then marks the service
// as shutting down.
func (h *Health) Watch(ctx context.Context, ready func() bool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.update(ready())
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.update(ready())
		}
	}
}

func (h *Health) update(ready bool) {
	if ready == h.ready {
		return
	}
	h.ready = ready
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.logger.Info("readiness changed", zap.Stringer("status", status))
	h.apply(status)
}

func (h *Health) apply(status healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(HealthService, status)
}
