package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aescanero/dago-childcare-router/internal/config"
	"github.com/aescanero/dago-childcare-router/internal/delegate"
	"github.com/aescanero/dago-childcare-router/internal/registry"
	"github.com/aescanero/dago-childcare-router/internal/router"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// stubResolver is both the strategy's delegate and the worker's resolver
type stubResolver struct {
	agentID string
	calls   int
}

func (r *stubResolver) Name() string          { return "stub_coordinator" }
func (r *stubResolver) Specialists() []string { return nil }
func (r *stubResolver) Usage() router.Usage   { return router.Usage{} }

func (r *stubResolver) Resolve(ctx context.Context, _ router.Request) delegate.Resolution {
	r.calls++
	if _, ok := ctx.Deadline(); !ok {
		return delegate.Resolution{AgentID: registry.Coordinator, Confidence: 0.3, PathTaken: "fallback"}
	}
	return delegate.Resolution{AgentID: r.agentID, Confidence: 0.7, Reasoning: "stub", PathTaken: "llm"}
}

func testConfig() *config.Config {
	return &config.Config{
		WorkerID:      "test-worker",
		StreamKey:     "childcare.route",
		ConsumerGroup: "childcare-routers",
		ResultStream:  "childcare.dispatch",
		BlockTime:     50 * time.Millisecond,
		LLMTimeout:    time.Second,
	}
}

func newTestWorker(t *testing.T, kind router.Kind, resolver *stubResolver) (*Worker, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	reg, err := registry.Default()
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	opts := []router.Option{router.WithLogger(logger)}

	var res Resolver
	if resolver != nil {
		opts = append(opts, router.WithDelegate(resolver))
		res = resolver
	}

	strategy, err := router.New(kind, reg, opts...)
	require.NoError(t, err)

	w := NewWorker(testConfig(), client, strategy, res, logger)
	require.NoError(t, w.ensureConsumerGroup())
	return w, client
}

func addRequest(t *testing.T, client *redis.Client, values map[string]interface{}) {
	t.Helper()
	err := client.XAdd(context.Background(), &redis.XAddArgs{
		Stream: "childcare.route",
		Values: values,
	}).Err()
	require.NoError(t, err)
}

func addRoutingRequest(t *testing.T, client *redis.Client, req RoutingRequest) {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	addRequest(t, client, map[string]interface{}{"data": string(data)})
}

func readDispatches(t *testing.T, client *redis.Client, stream string) []map[string]interface{} {
	t.Helper()

	messages, err := client.XRange(context.Background(), stream, "-", "+").Result()
	require.NoError(t, err)

	out := make([]map[string]interface{}, 0, len(messages))
	for _, m := range messages {
		data, ok := m.Values["data"].(string)
		require.True(t, ok)

		var record map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(data), &record))
		out = append(out, record)
	}
	return out
}

func TestWorker_EnsureConsumerGroupIsIdempotent(t *testing.T) {
	w, _ := newTestWorker(t, router.KindKeyword, nil)
	assert.NoError(t, w.ensureConsumerGroup())
}

func TestWorker_RoutesRequest(t *testing.T) {
	w, client := newTestWorker(t, router.KindKeyword, nil)

	addRoutingRequest(t, client, RoutingRequest{
		RequestID: "req-1",
		SessionID: "sess-1",
		Message:   "What to do when my child won't eat",
	})

	require.NoError(t, w.readBatch())

	records := readDispatches(t, client, "childcare.dispatch")
	require.Len(t, records, 1)
	assert.Equal(t, "req-1", records[0]["request_id"])
	assert.Equal(t, "sess-1", records[0]["session_id"])
	assert.Equal(t, "nutrition_specialist", records[0]["agent_id"])
	assert.Equal(t, "keyword_routing", records[0]["strategy"])
	assert.Equal(t, string(router.LayerScoring), records[0]["layer"])
	assert.NotContains(t, records[0], "deferred")

	pending, err := client.XPending(context.Background(), "childcare.route", "childcare-routers").Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestWorker_PassesSignalsToStrategy(t *testing.T) {
	w, client := newTestWorker(t, router.KindIntent, nil)

	addRoutingRequest(t, client, RoutingRequest{RequestID: "img", Message: "what is this?", HasImage: true})
	addRoutingRequest(t, client, RoutingRequest{RequestID: "voice", Message: "hello", MessageType: router.MessageVoice})

	require.NoError(t, w.readBatch())

	records := readDispatches(t, client, "childcare.dispatch")
	require.Len(t, records, 2)
	assert.Equal(t, registry.ImageSpecialist, records[0]["agent_id"])
	assert.Equal(t, "voice_specialist", records[1]["agent_id"])
}

func TestWorker_ResolvesDeferredDecisions(t *testing.T) {
	resolver := &stubResolver{agentID: "sleep_specialist"}
	w, client := newTestWorker(t, router.KindDelegating, resolver)

	addRoutingRequest(t, client, RoutingRequest{RequestID: "deferred", Message: "my son keeps waking up"})
	addRoutingRequest(t, client, RoutingRequest{RequestID: "flagged", Message: "[SEARCH] baby carriers"})

	require.NoError(t, w.readBatch())

	records := readDispatches(t, client, "childcare.dispatch")
	require.Len(t, records, 2)

	assert.Equal(t, "sleep_specialist", records[0]["agent_id"])
	assert.Equal(t, true, records[0]["deferred"])
	assert.Equal(t, "llm", records[0]["resolved_by"])
	assert.Equal(t, 0.7, records[0]["confidence"])
	assert.Equal(t, "stub", records[0]["reasoning"])
	assert.Equal(t, string(router.LayerDeferred), records[0]["layer"])

	assert.Equal(t, registry.SearchSpecialist, records[1]["agent_id"])
	assert.NotContains(t, records[1], "resolved_by")

	assert.Equal(t, 1, resolver.calls)
}

func TestWorker_PublishesParseErrors(t *testing.T) {
	w, client := newTestWorker(t, router.KindKeyword, nil)

	addRequest(t, client, map[string]interface{}{"data": "{not json"})
	addRequest(t, client, map[string]interface{}{"payload": "{}"})

	require.NoError(t, w.readBatch())

	assert.Empty(t, readDispatches(t, client, "childcare.dispatch"))

	errs := readDispatches(t, client, "childcare.dispatch.errors")
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0]["error"], "failed to unmarshal routing request")
	assert.Contains(t, errs[1]["error"], "missing or invalid 'data' field")

	pending, err := client.XPending(context.Background(), "childcare.route", "childcare-routers").Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestWorker_EmptyStream(t *testing.T) {
	w, client := newTestWorker(t, router.KindKeyword, nil)

	require.NoError(t, w.readBatch())
	assert.Empty(t, readDispatches(t, client, "childcare.dispatch"))
}

func TestWorker_StartStop(t *testing.T) {
	w, client := newTestWorker(t, router.KindKeyword, nil)
	require.NoError(t, w.Start())

	addRoutingRequest(t, client, RoutingRequest{RequestID: "live", Message: "My baby has a 38°C fever since this morning"})

	assert.Eventually(t, func() bool {
		n, err := client.XLen(context.Background(), "childcare.dispatch").Result()
		return err == nil && n == 1
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, w.Stop())

	records := readDispatches(t, client, "childcare.dispatch")
	require.Len(t, records, 1)
	assert.Equal(t, "health_specialist", records[0]["agent_id"])
	assert.Equal(t, string(router.LayerForce), records[0]["layer"])
}

func TestParseRoutingRequest(t *testing.T) {
	req, err := parseRoutingRequest(map[string]interface{}{
		"data": `{"message":"hello","message_type":"voice","has_image":true,"history":[{"role":"user","content":"hi"}]}`,
	})
	require.NoError(t, err)

	_, err = uuid.Parse(req.RequestID)
	assert.NoError(t, err, "a missing request id is generated")

	r := req.toRouterRequest()
	assert.Equal(t, "hello", r.Message)
	assert.Equal(t, router.MessageVoice, r.Signals.MessageType)
	assert.True(t, r.Signals.HasImage)
	require.Len(t, r.History, 1)
	assert.Equal(t, "hi", r.History[0].Content)

	_, err = parseRoutingRequest(map[string]interface{}{"data": 42})
	assert.Error(t, err)
}

func newHealthFixture(t *testing.T, kind router.Kind, d router.Delegate) (*miniredis.Miniredis, http.Handler) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	reg, err := registry.Default()
	require.NoError(t, err)

	var opts []router.Option
	if d != nil {
		opts = append(opts, router.WithDelegate(d))
	}
	strategy, err := router.New(kind, reg, opts...)
	require.NoError(t, err)

	hs := NewHealthServer(0, client, strategy, zaptest.NewLogger(t))
	assert.NoError(t, hs.Stop(), "stopping a server that never started is a no-op")
	return mr, hs.Handler()
}

func getHealth(t *testing.T, handler http.Handler, path string) (int, HealthResponse) {
	t.Helper()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealthServer(t *testing.T) {
	mr, handler := newHealthFixture(t, router.KindKeyword, nil)

	code, body := getHealth(t, handler, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["redis"])
	require.NotNil(t, body.Routing)
	assert.Equal(t, "keyword_routing", body.Routing.Strategy)
	assert.Equal(t, router.KindKeyword, body.Routing.Kind)
	assert.Nil(t, body.Routing.Delegate)

	code, body = getHealth(t, handler, "/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body.Status)

	mr.Close()

	code, body = getHealth(t, handler, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Contains(t, body.Checks["redis"], "unhealthy")

	code, body = getHealth(t, handler, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not ready", body.Status)
}

func TestHealthServer_ReportsDelegateUsage(t *testing.T) {
	_, handler := newHealthFixture(t, router.KindDelegating, &stubResolver{})

	code, body := getHealth(t, handler, "/health")
	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, body.Routing)
	assert.Equal(t, "delegating_coordinator", body.Routing.Strategy)
	require.NotNil(t, body.Routing.Delegate)
	assert.Equal(t, router.Usage{}, *body.Routing.Delegate)
}
