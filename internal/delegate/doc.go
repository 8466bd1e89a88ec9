// Package delegate implements the LLM-backed coordinator that the delegating
// routing strategy defers to.
//
// The coordinator renders a classification prompt listing the registry's
// specialists, asks the model for one id and maps the answer back onto the
// registry (exact id, short name, then partial match). Anything it cannot map
// stays with the coordinator.
//
//	coordinator, err := delegate.NewCoordinator(reg, llmClient, delegate.Config{Model: model}, logger)
//	strategy, _ := router.New(router.KindDelegating, reg, router.WithDelegate(coordinator))
//
//	decision := strategy.DetermineAgent(req)
//	if decision.Deferred {
//	    resolution := coordinator.Resolve(ctx, req)
//	    // dispatch to resolution.AgentID
//	}
package delegate
