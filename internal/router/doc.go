// Package router decides which childcare specialist handles a message.
//
// Three strategies share the Strategy contract and are chosen once per deployment:
//   - Keyword: force keywords, fan-out triggers, then weighted keyword scoring
//   - Intent: sentinels, attachments, explicit flags and signal rules before unweighted keyword matching
//   - Delegating: explicit and search-shaped overrides in front of an LLM coordinator
//
// Every strategy is a pure function of the request and an immutable registry.
// Precedence layers short-circuit: once a layer matches, later layers are not
// consulted. No strategy ever fails; unmatched requests go to the coordinator.
//
// Example keyword routing:
//
//	reg, _ := registry.Default()
//	strategy, err := router.New(router.KindKeyword, reg, router.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	decision := strategy.DetermineAgent(router.Request{
//	    Message: "My baby won't eat the leftover weaning food",
//	})
//	// decision.AgentID == "nutrition_specialist"
//
// Example intent routing with an attachment:
//
//	strategy, _ := router.New(router.KindIntent, reg)
//	decision := strategy.DetermineAgent(router.Request{
//	    Message: "what is this rash?",
//	    Signals: router.Signals{HasImage: true},
//	})
//	// decision.AgentID == "image_specialist"
//
// Example delegating routing:
//
//	strategy, _ := router.New(router.KindDelegating, reg, router.WithDelegate(coordinator))
//	decision := strategy.DetermineAgent(router.Request{Message: "My toddler bites"})
//	if decision.Deferred {
//	    // hand the message to the coordinator delegate
//	}
//
// Known gap: matching is raw substring containment, so negated phrases still
// count ("won't eat" routes to nutrition, "not stressed" to mental care).
package router
