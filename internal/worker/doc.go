// Package worker runs the routing strategy behind Redis Streams.
//
// The worker reads routing requests from a consumer group, asks the configured
// strategy for a decision, lets the coordinator resolve deferred decisions, and
// publishes a dispatch record that tells the specialist handlers who answers.
//
// Example usage:
//
//	cfg, _ := config.Load()
//	redisClient := redis.NewClient(&redis.Options{...})
//	strategy, _ := router.New(router.KindKeyword, reg, router.WithLogger(logger))
//
//	worker := worker.NewWorker(cfg, redisClient, strategy, nil, logger)
//	if err := worker.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer worker.Stop()
//
// Request payload (field "data" of the stream entry):
//
//	{"request_id": "r-1", "message": "My baby won't eat", "has_image": false}
//
// Dispatch payload (field "data" of the result stream entry):
//
//	{"request_id": "r-1", "agent_id": "nutrition_specialist", "confidence": 0.04, ...}
//
// Unparseable requests and publish failures go to "<result stream>.errors".
//
// Health checks are provided via a separate HTTP server:
//
//	healthServer := worker.NewHealthServer(8082, redisClient, strategy, logger)
//	healthServer.Start()
//	defer healthServer.Stop()
package worker
