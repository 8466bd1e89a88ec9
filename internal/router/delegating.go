package router

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/aescanero/dago-childcare-router/internal/registry"
	"go.uber.org/zap"
)

const (
	delegatingStrategyName = "delegating_coordinator"

	searchHintConfidence        = 0.8
	delegatingErrorConfidence   = 0.5
	delegatingDeferredReasoning = "no override matched, deferring to coordinator delegate"
)

// Delegate is the coordinator capability the delegating strategy defers to.
// Its methods are metadata only and never influence a decision.
type Delegate interface {
	Name() string
	Specialists() []string
	Usage() Usage
}

// Usage counts what a delegate has done so far
type Usage struct {
	Invocations int64 `json:"invocations"`
	Handoffs    int64 `json:"handoffs"`
	Failures    int64 `json:"failures"`
}

// RoutingComputationError wraps an unexpected failure while computing a decision
type RoutingComputationError struct {
	Strategy string
	Err      error
}

func (e *RoutingComputationError) Error() string {
	return fmt.Sprintf("%s: routing computation failed: %v", e.Strategy, e.Err)
}

func (e *RoutingComputationError) Unwrap() error {
	return e.Err
}

// overrideCheck inspects a request and either claims it or passes it on
type overrideCheck func(req Request, lowered string) (Decision, bool, error)

// DelegatingStrategy puts explicit and search-shaped overrides in front of a coordinator delegate.
// Requests that no override claims come back Deferred; the caller must invoke the delegate.
type DelegatingStrategy struct {
	delegate Delegate
	checks   []overrideCheck
	flags    []string
	hints    []string
	logger   *zap.Logger
}

// NewDelegatingStrategy creates a delegating strategy; a delegate is required
func NewDelegatingStrategy(reg *registry.Registry, opts ...Option) (*DelegatingStrategy, error) {
	o := buildOptions(opts)
	if o.delegate == nil {
		return nil, fmt.Errorf("delegating strategy requires a delegate")
	}

	s := &DelegatingStrategy{
		delegate: o.delegate,
		flags:    reg.ExplicitFlags(),
		hints:    reg.SearchHints(),
		logger:   o.logger.Named(delegatingStrategyName),
	}
	s.checks = []overrideCheck{s.checkExplicitFlag, s.checkSearchHint}

	return s, nil
}

// Name returns the strategy name used in decisions and telemetry
func (s *DelegatingStrategy) Name() string { return delegatingStrategyName }

// Kind returns KindDelegating
func (s *DelegatingStrategy) Kind() Kind { return KindDelegating }

func (s *DelegatingStrategy) sealed() {}

// DelegateSpecialists lists the specialists the delegate can hand off to
func (s *DelegatingStrategy) DelegateSpecialists() []string {
	return s.delegate.Specialists()
}

// DelegateUsage reports the delegate's usage counters
func (s *DelegatingStrategy) DelegateUsage() Usage {
	return s.delegate.Usage()
}

// DetermineAgent runs the overrides and defers everything else.
// Failures become a low-confidence coordinator decision and are never returned.
func (s *DelegatingStrategy) DetermineAgent(req Request) Decision {
	decision, err := s.compute(req)
	if err != nil {
		s.logger.Error("routing computation failed, falling back to coordinator",
			zap.Error(err),
		)
		decision = Decision{
			AgentID:    registry.Coordinator,
			Confidence: delegatingErrorConfidence,
			Reasoning:  fmt.Sprintf("routing error: %v", err),
			Layer:      LayerError,
		}
	}
	decision.Strategy = delegatingStrategyName

	s.logger.Debug("routing decision",
		zap.String("agent_id", decision.AgentID),
		zap.String("layer", string(decision.Layer)),
		zap.Bool("deferred", decision.Deferred),
		zap.Float64("confidence", decision.Confidence),
	)

	return decision
}

// compute returns the decision or a *RoutingComputationError
func (s *DelegatingStrategy) compute(req Request) (decision Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic during routing computation",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			err = &RoutingComputationError{Strategy: delegatingStrategyName, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	lowered := strings.ToLower(req.Message)

	for _, check := range s.checks {
		d, ok, checkErr := check(req, lowered)
		if checkErr != nil {
			return Decision{}, &RoutingComputationError{Strategy: delegatingStrategyName, Err: checkErr}
		}
		if ok {
			return d, nil
		}
	}

	return Decision{
		AgentID:   registry.Coordinator,
		Reasoning: fmt.Sprintf("%s %q", delegatingDeferredReasoning, s.delegate.Name()),
		Layer:     LayerDeferred,
		Deferred:  true,
	}, nil
}

func (s *DelegatingStrategy) checkExplicitFlag(req Request, lowered string) (Decision, bool, error) {
	flag, ok := matchFlag(req.Message, lowered, s.flags)
	if !ok {
		return Decision{}, false, nil
	}
	return Decision{
		AgentID:         registry.SearchSpecialist,
		Confidence:      1.0,
		Reasoning:       fmt.Sprintf("explicit search flag %q, bypassing delegate", flag),
		MatchedKeywords: []string{flag},
		MatchedFlag:     flag,
		Layer:           LayerFlag,
	}, true, nil
}

// checkSearchHint is intentionally broad: search-shaped requests never reach the delegate
func (s *DelegatingStrategy) checkSearchHint(_ Request, lowered string) (Decision, bool, error) {
	matched := matchedIn(lowered, s.hints)
	if len(matched) == 0 {
		return Decision{}, false, nil
	}
	return Decision{
		AgentID:         registry.SearchSpecialist,
		Confidence:      searchHintConfidence,
		Reasoning:       fmt.Sprintf("search-like request (%s), bypassing delegate", strings.Join(matched, ", ")),
		MatchedKeywords: matched,
		Layer:           LayerSearchHint,
	}, true, nil
}
