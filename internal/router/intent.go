package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/aescanero/dago-childcare-router/internal/eval/cel"
	"github.com/aescanero/dago-childcare-router/internal/registry"
	"go.uber.org/zap"
)

const (
	intentStrategyName = "intent_based_routing"

	// SentinelImageAnalysis is injected by the upload surface to force image analysis
	SentinelImageAnalysis = "FORCE_IMAGE_ANALYSIS_ROUTING"

	// SentinelSearchAgent is injected by the calling surface to force a web search
	SentinelSearchAgent = "FORCE_SEARCH_AGENT_ROUTING"

	intentFallbackConfidence = 0.5
)

type keywordSet struct {
	id       string
	keywords []string
}

// IntentStrategy honors explicit signals before falling back to unweighted keyword matching
type IntentStrategy struct {
	keywordSets  []keywordSet
	flags        []string
	signalRules  []registry.SignalRule
	celEvaluator *cel.Evaluator
	logger       *zap.Logger
}

// NewIntentStrategy creates an intent strategy from a registry snapshot
func NewIntentStrategy(reg *registry.Registry, opts ...Option) *IntentStrategy {
	o := buildOptions(opts)

	s := &IntentStrategy{
		flags:        reg.ExplicitFlags(),
		signalRules:  reg.SignalRules(),
		celEvaluator: cel.NewEvaluator(),
		logger:       o.logger.Named(intentStrategyName),
	}

	for _, spec := range reg.Specialists() {
		if len(spec.Keywords) > 0 {
			s.keywordSets = append(s.keywordSets, keywordSet{id: spec.ID, keywords: spec.Keywords})
		}
	}

	// Rules were validated by the registry; warm the cache so requests only read it
	conditions := make([]string, len(s.signalRules))
	for i, rule := range s.signalRules {
		conditions[i] = rule.Condition
	}
	if err := s.celEvaluator.Precompile(conditions...); err != nil {
		s.logger.Warn("failed to precompile signal rules", zap.Error(err))
	}

	return s
}

// Name returns the strategy name used in decisions and telemetry
func (s *IntentStrategy) Name() string { return intentStrategyName }

// Kind returns KindIntent
func (s *IntentStrategy) Kind() Kind { return KindIntent }

func (s *IntentStrategy) sealed() {}

// DetermineAgent evaluates sentinels, attachments, flags, signal rules, keywords and fallback in that order
func (s *IntentStrategy) DetermineAgent(req Request) Decision {
	decision := s.decide(req)
	decision.Strategy = intentStrategyName

	s.logger.Debug("routing decision",
		zap.String("agent_id", decision.AgentID),
		zap.String("layer", string(decision.Layer)),
		zap.Float64("confidence", decision.Confidence),
		zap.Bool("has_image", req.Signals.HasImage),
		zap.String("message_type", string(req.Signals.MessageType)),
	)

	return decision
}

func (s *IntentStrategy) decide(req Request) Decision {
	message := req.Message

	if strings.Contains(message, SentinelImageAnalysis) {
		return Decision{
			AgentID:    registry.ImageSpecialist,
			Confidence: 1.0,
			Reasoning:  "image analysis sentinel present",
			Layer:      LayerSentinel,
		}
	}

	// An attachment always wins over the text content
	if req.Signals.HasImage || req.Signals.MessageType == MessageImage {
		return Decision{
			AgentID:    registry.ImageSpecialist,
			Confidence: 1.0,
			Reasoning:  "image attachment present",
			Layer:      LayerAttachment,
		}
	}

	if strings.Contains(message, SentinelSearchAgent) {
		return Decision{
			AgentID:    registry.SearchSpecialist,
			Confidence: 1.0,
			Reasoning:  "search agent sentinel present",
			Layer:      LayerSentinel,
		}
	}

	lowered := strings.ToLower(message)

	if flag, ok := matchFlag(message, lowered, s.flags); ok {
		return Decision{
			AgentID:         registry.SearchSpecialist,
			Confidence:      1.0,
			Reasoning:       fmt.Sprintf("explicit search flag %q", flag),
			MatchedKeywords: []string{flag},
			MatchedFlag:     flag,
			Layer:           LayerFlag,
		}
	}

	// Signal rules never override the search sentinel or an explicit flag
	if d, ok := s.evaluateSignalRules(req); ok {
		return d
	}

	for _, set := range s.keywordSets {
		matched := matchedIn(lowered, set.keywords)
		if len(matched) == 0 {
			continue
		}
		return Decision{
			AgentID:         set.id,
			Confidence:      clamp01(float64(len(matched)) / float64(len(set.keywords))),
			Reasoning:       fmt.Sprintf("matched %d of %d keywords", len(matched), len(set.keywords)),
			MatchedKeywords: matched,
			Layer:           LayerKeyword,
		}
	}

	return Decision{
		AgentID:    registry.Coordinator,
		Confidence: intentFallbackConfidence,
		Reasoning:  "no intent detected",
		Layer:      LayerFallback,
	}
}

// evaluateSignalRules runs the registry's CEL rules; a failing rule is skipped
func (s *IntentStrategy) evaluateSignalRules(req Request) (Decision, bool) {
	if len(s.signalRules) == 0 {
		return Decision{}, false
	}

	vars := map[string]interface{}{
		"message": req.Message,
		"signals": map[string]interface{}{
			"has_image":    req.Signals.HasImage,
			"message_type": string(req.Signals.MessageType),
		},
	}

	for i, rule := range s.signalRules {
		matched, err := s.celEvaluator.EvaluateBool(context.Background(), rule.Condition, vars)
		if err != nil {
			s.logger.Warn("signal rule evaluation error",
				zap.Int("rule_index", i),
				zap.String("condition", rule.Condition),
				zap.Error(err),
			)
			continue
		}

		if matched {
			return Decision{
				AgentID:    rule.Target,
				Confidence: 1.0,
				Reasoning:  fmt.Sprintf("matched signal rule %d: %s", i, rule.Condition),
				Layer:      LayerSignal,
			}, true
		}
	}

	return Decision{}, false
}
