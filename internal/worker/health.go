package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aescanero/dago-childcare-router/internal/router"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 2 * time.Second

// usageReporter is implemented by strategies that defer to a delegate
type usageReporter interface {
	DelegateUsage() router.Usage
}

// HealthServer serves liveness and readiness for the routing worker
type HealthServer struct {
	port        int
	redisClient *redis.Client
	strategy    router.Strategy
	logger      *zap.Logger
	server      *http.Server
}

// NewHealthServer creates a health server reporting on redis and the active strategy
func NewHealthServer(port int, redisClient *redis.Client, strategy router.Strategy, logger *zap.Logger) *HealthServer {
	return &HealthServer{
		port:        port,
		redisClient: redisClient,
		strategy:    strategy,
		logger:      logger,
	}
}

// Start listens in the background; listener errors are logged, not returned
func (hs *HealthServer) Start() error {
	hs.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", hs.port),
		Handler:           hs.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	hs.logger.Info("starting health server", zap.Int("port", hs.port))

	go func() {
		if err := hs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			hs.logger.Error("health server error", zap.Error(err))
		}
	}()

	return nil
}

// Handler returns the health endpoints without starting a listener
func (hs *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", hs.handleHealth)
	mux.HandleFunc("/ready", hs.handleReady)
	return mux
}

// Stop shuts the listener down, if it was started
func (hs *HealthServer) Stop() error {
	if hs.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hs.logger.Info("stopping health server")
	return hs.server.Shutdown(ctx)
}

// HealthResponse is the body of both endpoints
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Routing *RoutingStatus    `json:"routing,omitempty"`
}

// RoutingStatus describes the strategy serving requests
type RoutingStatus struct {
	Strategy string        `json:"strategy"`
	Kind     router.Kind   `json:"kind"`
	Delegate *router.Usage `json:"delegate_usage,omitempty"`
}

func (hs *HealthServer) routingStatus() *RoutingStatus {
	status := &RoutingStatus{
		Strategy: hs.strategy.Name(),
		Kind:     hs.strategy.Kind(),
	}
	if r, ok := hs.strategy.(usageReporter); ok {
		usage := r.DelegateUsage()
		status.Delegate = &usage
	}
	return status
}

func (hs *HealthServer) pingRedis(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return hs.redisClient.Ping(ctx).Err()
}

func (hs *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "healthy",
		Checks:  map[string]string{"redis": "healthy"},
		Routing: hs.routingStatus(),
	}
	code := http.StatusOK

	if err := hs.pingRedis(r.Context()); err != nil {
		resp.Status = "unhealthy"
		resp.Checks["redis"] = fmt.Sprintf("unhealthy: %v", err)
		code = http.StatusServiceUnavailable
	}

	hs.respondJSON(w, code, resp)
}

// handleReady only answers whether the stream backend is reachable
func (hs *HealthServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := hs.pingRedis(r.Context()); err != nil {
		hs.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "not ready"})
		return
	}
	hs.respondJSON(w, http.StatusOK, HealthResponse{Status: "ready"})
}

func (hs *HealthServer) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		hs.logger.Error("failed to encode response", zap.Error(err))
	}
}
