package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aescanero/dago-childcare-router/internal/config"
	"github.com/aescanero/dago-childcare-router/internal/delegate"
	"github.com/aescanero/dago-childcare-router/internal/router"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Resolver answers requests the strategy deferred to the coordinator
type Resolver interface {
	Resolve(ctx context.Context, req router.Request) delegate.Resolution
}

// Worker represents the routing worker
type Worker struct {
	id            string
	config        *config.Config
	redisClient   *redis.Client
	strategy      router.Strategy
	resolver      Resolver
	logger        *zap.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	streamKey     string
	consumerGroup string
	resultStream  string
}

// NewWorker creates a new worker; resolver may be nil when the strategy never defers
func NewWorker(
	cfg *config.Config,
	redisClient *redis.Client,
	strategy router.Strategy,
	resolver Resolver,
	logger *zap.Logger,
) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		id:            cfg.WorkerID,
		config:        cfg,
		redisClient:   redisClient,
		strategy:      strategy,
		resolver:      resolver,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		streamKey:     cfg.StreamKey,
		consumerGroup: cfg.ConsumerGroup,
		resultStream:  cfg.ResultStream,
	}
}

// Start starts the worker
func (w *Worker) Start() error {
	w.logger.Info("starting routing worker",
		zap.String("worker_id", w.id),
		zap.String("stream_key", w.streamKey),
		zap.String("consumer_group", w.consumerGroup),
		zap.String("strategy", w.strategy.Name()),
	)

	if err := w.ensureConsumerGroup(); err != nil {
		return fmt.Errorf("failed to ensure consumer group: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.processWork()
	}()

	w.logger.Info("routing worker started", zap.String("worker_id", w.id))
	return nil
}

// Stop stops the worker and waits for the in-flight message
func (w *Worker) Stop() error {
	w.logger.Info("stopping routing worker", zap.String("worker_id", w.id))

	w.cancel()
	w.wg.Wait()

	w.logger.Info("routing worker stopped", zap.String("worker_id", w.id))
	return nil
}

// ensureConsumerGroup creates the consumer group if it doesn't exist
func (w *Worker) ensureConsumerGroup() error {
	err := w.redisClient.XGroupCreateMkStream(w.ctx, w.streamKey, w.consumerGroup, "0").Err()
	if err != nil {
		// BUSYGROUP means the group already exists, which is fine
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			w.logger.Debug("consumer group already exists",
				zap.String("group", w.consumerGroup),
			)
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	w.logger.Info("created consumer group",
		zap.String("group", w.consumerGroup),
		zap.String("stream", w.streamKey),
	)
	return nil
}

// processWork processes work from the Redis stream until the worker stops
func (w *Worker) processWork() {
	w.logger.Info("starting work processing loop")

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("work processing loop stopped")
			return
		default:
		}

		if err := w.readBatch(); err != nil {
			if w.ctx.Err() != nil {
				continue
			}
			w.logger.Error("failed to read from stream", zap.Error(err))
			time.Sleep(time.Second)
		}
	}
}

// readBatch reads one batch from the stream and handles every message in it
func (w *Worker) readBatch() error {
	streams, err := w.redisClient.XReadGroup(w.ctx, &redis.XReadGroupArgs{
		Group:    w.consumerGroup,
		Consumer: w.id,
		Streams:  []string{w.streamKey, ">"},
		Count:    10,
		Block:    w.config.BlockTime,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			w.handleMessage(message)
		}
	}
	return nil
}

// handleMessage handles a single routing request message
func (w *Worker) handleMessage(message redis.XMessage) {
	messageID := message.ID

	request, err := parseRoutingRequest(message.Values)
	if err != nil {
		w.logger.Error("failed to parse routing request",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		w.publishError(&RoutingRequest{RequestID: messageID}, err)
		w.acknowledgeMessage(messageID)
		return
	}

	w.logger.Info("processing routing request",
		zap.String("message_id", messageID),
		zap.String("request_id", request.RequestID),
	)

	record := w.route(request)

	if err := w.publishDispatch(record); err != nil {
		w.logger.Error("failed to publish dispatch",
			zap.String("message_id", messageID),
			zap.String("request_id", request.RequestID),
			zap.Error(err),
		)
		w.publishError(request, err)
	}

	w.acknowledgeMessage(messageID)
}

// RoutingRequest is the payload of a routing stream message
type RoutingRequest struct {
	RequestID   string                 `json:"request_id"`
	SessionID   string                 `json:"session_id,omitempty"`
	Message     string                 `json:"message"`
	MessageType router.MessageType     `json:"message_type,omitempty"`
	HasImage    bool                   `json:"has_image,omitempty"`
	History     []router.Turn          `json:"history,omitempty"`
	Context     map[string]interface{} `json:"context,omitempty"`
}

// toRouterRequest converts the wire payload to a router request
func (r *RoutingRequest) toRouterRequest() router.Request {
	return router.Request{
		Message: r.Message,
		History: r.History,
		Context: r.Context,
		Signals: router.Signals{
			HasImage:    r.HasImage,
			MessageType: r.MessageType,
		},
	}
}

// parseRoutingRequest parses a routing request from a Redis message
func parseRoutingRequest(values map[string]interface{}) (*RoutingRequest, error) {
	dataStr, ok := values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'data' field")
	}

	var request RoutingRequest
	if err := json.Unmarshal([]byte(dataStr), &request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal routing request: %w", err)
	}

	if request.RequestID == "" {
		request.RequestID = uuid.NewString()
	}

	return &request, nil
}

// DispatchRecord tells downstream consumers which specialist handles a request.
// For a deferred request AgentID, Confidence and Reasoning come from the coordinator's
// resolution; Layer and Deferred still describe the strategy's decision.
type DispatchRecord struct {
	RequestID       string    `json:"request_id"`
	SessionID       string    `json:"session_id,omitempty"`
	AgentID         string    `json:"agent_id"`
	Confidence      float64   `json:"confidence"`
	Reasoning       string    `json:"reasoning"`
	Strategy        string    `json:"strategy"`
	Layer           string    `json:"layer"`
	MatchedKeywords []string  `json:"matched_keywords,omitempty"`
	Deferred        bool      `json:"deferred,omitempty"`
	ResolvedBy      string    `json:"resolved_by,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// route runs the strategy and, for deferred decisions, the coordinator
func (w *Worker) route(request *RoutingRequest) DispatchRecord {
	req := request.toRouterRequest()
	decision := w.strategy.DetermineAgent(req)

	record := DispatchRecord{
		RequestID:       request.RequestID,
		SessionID:       request.SessionID,
		AgentID:         decision.AgentID,
		Confidence:      decision.Confidence,
		Reasoning:       decision.Reasoning,
		Strategy:        decision.Strategy,
		Layer:           string(decision.Layer),
		MatchedKeywords: decision.MatchedKeywords,
		Deferred:        decision.Deferred,
		Timestamp:       time.Now().UTC(),
	}

	if decision.Deferred && w.resolver != nil {
		ctx, cancel := context.WithTimeout(w.ctx, w.config.LLMTimeout)
		defer cancel()

		resolution := w.resolver.Resolve(ctx, req)
		record.AgentID = resolution.AgentID
		record.Confidence = resolution.Confidence
		record.Reasoning = resolution.Reasoning
		record.ResolvedBy = resolution.PathTaken
	}

	w.logger.Info("routing decision",
		zap.String("request_id", record.RequestID),
		zap.String("agent_id", record.AgentID),
		zap.String("layer", record.Layer),
		zap.Float64("confidence", record.Confidence),
		zap.Bool("deferred", record.Deferred),
	)

	return record
}

// publishDispatch publishes the dispatch record to the result stream
func (w *Worker) publishDispatch(record DispatchRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch: %w", err)
	}

	_, err = w.redisClient.XAdd(w.ctx, &redis.XAddArgs{
		Stream: w.resultStream,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}

	return nil
}

// publishError publishes an error event
func (w *Worker) publishError(request *RoutingRequest, err error) {
	errorEvent := map[string]interface{}{
		"request_id": request.RequestID,
		"session_id": request.SessionID,
		"error":      err.Error(),
		"timestamp":  time.Now().UTC(),
	}

	data, marshalErr := json.Marshal(errorEvent)
	if marshalErr != nil {
		w.logger.Error("failed to marshal error event", zap.Error(marshalErr))
		return
	}

	_, publishErr := w.redisClient.XAdd(w.ctx, &redis.XAddArgs{
		Stream: w.resultStream + ".errors",
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if publishErr != nil {
		w.logger.Error("failed to publish error event", zap.Error(publishErr))
	}
}

// acknowledgeMessage acknowledges a message from the stream
func (w *Worker) acknowledgeMessage(messageID string) {
	err := w.redisClient.XAck(w.ctx, w.streamKey, w.consumerGroup, messageID).Err()
	if err != nil {
		w.logger.Error("failed to acknowledge message",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}
