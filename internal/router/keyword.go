package router

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aescanero/dago-childcare-router/internal/registry"
	"go.uber.org/zap"
)

const (
	keywordStrategyName = "keyword_routing"

	// scoreNormalizer maps raw scores onto confidence; larger scores clamp to 1.0
	scoreNormalizer = 50.0

	fanOutConfidence          = 0.9
	keywordFallbackConfidence = 0.3
)

type weightedSpecialist struct {
	id       string
	keywords []string
	weight   float64
}

type forceSet struct {
	id       string
	keywords []string
}

// KeywordStrategy routes by force keywords, fan-out triggers and weighted keyword scoring
type KeywordStrategy struct {
	force              []forceSet
	weighted           []weightedSpecialist
	parallelTriggers   []string
	sequentialTriggers []string
	logger             *zap.Logger
}

// NewKeywordStrategy creates a keyword strategy from a registry snapshot
func NewKeywordStrategy(reg *registry.Registry, opts ...Option) *KeywordStrategy {
	o := buildOptions(opts)

	s := &KeywordStrategy{
		parallelTriggers:   reg.ParallelTriggers(),
		sequentialTriggers: reg.SequentialTriggers(),
		logger:             o.logger.Named(keywordStrategyName),
	}

	for _, spec := range reg.Specialists() {
		if len(spec.ForceKeywords) > 0 {
			s.force = append(s.force, forceSet{id: spec.ID, keywords: spec.ForceKeywords})
		}
		if spec.Weighted {
			s.weighted = append(s.weighted, weightedSpecialist{
				id:       spec.ID,
				keywords: spec.Keywords,
				weight:   spec.Priority,
			})
		}
	}

	return s
}

// Name returns the strategy name used in decisions and telemetry
func (s *KeywordStrategy) Name() string { return keywordStrategyName }

// Kind returns KindKeyword
func (s *KeywordStrategy) Kind() Kind { return KindKeyword }

func (s *KeywordStrategy) sealed() {}

// DetermineAgent evaluates force routing, parallel, sequential, scoring and fallback in that order
func (s *KeywordStrategy) DetermineAgent(req Request) Decision {
	lowered := strings.ToLower(req.Message)

	decision := s.decide(lowered)
	decision.Strategy = keywordStrategyName

	s.logger.Debug("routing decision",
		zap.String("agent_id", decision.AgentID),
		zap.String("layer", string(decision.Layer)),
		zap.Float64("confidence", decision.Confidence),
		zap.Strings("matched_keywords", decision.MatchedKeywords),
	)

	return decision
}

func (s *KeywordStrategy) decide(lowered string) Decision {
	// Force routing wins in registry declaration order
	for _, set := range s.force {
		if k, ok := firstIn(lowered, set.keywords); ok {
			return Decision{
				AgentID:         set.id,
				Confidence:      1.0,
				Reasoning:       "force routing",
				MatchedKeywords: []string{k},
				Layer:           LayerForce,
			}
		}
	}

	if k, ok := firstIn(lowered, s.parallelTriggers); ok {
		return Decision{
			AgentID:         registry.Parallel,
			Confidence:      fanOutConfidence,
			Reasoning:       fmt.Sprintf("parallel analysis requested: %q", k),
			MatchedKeywords: []string{k},
			Layer:           LayerParallel,
		}
	}

	if k, ok := firstIn(lowered, s.sequentialTriggers); ok {
		return Decision{
			AgentID:         registry.Sequential,
			Confidence:      fanOutConfidence,
			Reasoning:       fmt.Sprintf("sequential processing requested: %q", k),
			MatchedKeywords: []string{k},
			Layer:           LayerSequential,
		}
	}

	scores := make(map[string]float64)
	var (
		bestID      string
		bestScore   float64
		bestMatched []string
	)

	for _, w := range s.weighted {
		matched := matchedIn(lowered, w.keywords)
		if len(matched) == 0 {
			continue
		}

		score := keywordScore(matched, w.weight)
		scores[w.id] = score

		// Equal scores go to the lexicographically smallest id
		if bestID == "" || score > bestScore || (score == bestScore && w.id < bestID) {
			bestID = w.id
			bestScore = score
			bestMatched = matched
		}
	}

	if bestID == "" {
		return Decision{
			AgentID:    registry.Coordinator,
			Confidence: keywordFallbackConfidence,
			Reasoning:  "no specialist keywords matched",
			Layer:      LayerFallback,
		}
	}

	return Decision{
		AgentID:         bestID,
		Confidence:      clamp01(bestScore / scoreNormalizer),
		Reasoning:       fmt.Sprintf("highest keyword score %.2f from %d matched keywords", bestScore, len(bestMatched)),
		MatchedKeywords: bestMatched,
		Layer:           LayerScoring,
		Score:           bestScore,
		Scores:          scores,
	}
}

// keywordScore is |matched| × weight × (1 + 0.1 × total matched keyword length in runes)
func keywordScore(matched []string, weight float64) float64 {
	total := 0
	for _, k := range matched {
		total += utf8.RuneCountInString(k)
	}
	return float64(len(matched)) * weight * (1 + 0.1*float64(total))
}
