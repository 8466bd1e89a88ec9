package router

import (
	"fmt"
	"strings"

	"github.com/aescanero/dago-childcare-router/internal/registry"
	"go.uber.org/zap"
)

// Kind names one of the strategy implementations
type Kind string

const (
	// KindKeyword uses force keywords, fan-out triggers and weighted scoring
	KindKeyword Kind = "keyword"

	// KindIntent honors sentinels, attachments, flags and signal rules before keyword matching
	KindIntent Kind = "intent"

	// KindDelegating catches explicit and search-shaped requests and defers the rest
	KindDelegating Kind = "delegating"
)

// ParseKind maps a configuration value to a Kind
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindKeyword, KindIntent, KindDelegating:
		return k, nil
	default:
		return "", fmt.Errorf("unknown routing strategy: %q", s)
	}
}

// MessageType is the kind of payload the user sent
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageVoice MessageType = "voice"
)

// Signals are non-text facts about a request supplied by the calling surface
type Signals struct {
	HasImage    bool        `json:"has_image"`
	MessageType MessageType `json:"message_type,omitempty"`
}

// Turn is one prior exchange in the conversation
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the input to a routing decision.
// History and Context are accepted but not consulted by any strategy yet.
type Request struct {
	Message string                 `json:"message"`
	History []Turn                 `json:"history,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
	Signals Signals                `json:"signals"`
}

// Layer identifies the precedence layer that produced a decision
type Layer string

const (
	LayerSentinel   Layer = "sentinel"
	LayerAttachment Layer = "attachment"
	LayerFlag       Layer = "flag"
	LayerSignal     Layer = "signal"
	LayerForce      Layer = "force"
	LayerParallel   Layer = "parallel"
	LayerSequential Layer = "sequential"
	LayerScoring    Layer = "scoring"
	LayerKeyword    Layer = "keyword"
	LayerSearchHint Layer = "search_hint"
	LayerDeferred   Layer = "deferred"
	LayerFallback   Layer = "fallback"
	LayerError      Layer = "error"
)

// Decision is the outcome of routing one request
type Decision struct {
	AgentID         string             `json:"agent_id"`
	Confidence      float64            `json:"confidence"`
	Reasoning       string             `json:"reasoning"`
	MatchedKeywords []string           `json:"matched_keywords,omitempty"`
	Strategy        string             `json:"strategy"`
	Layer           Layer              `json:"layer"`
	Score           float64            `json:"score,omitempty"`
	Scores          map[string]float64 `json:"scores,omitempty"`
	MatchedFlag     string             `json:"matched_flag,omitempty"`
	// Deferred means the caller must hand the request to the coordinator delegate
	Deferred bool `json:"deferred,omitempty"`
}

// Strategy selects a destination for a request.
// Implementations are safe for concurrent use and never fail: every call
// returns a decision whose AgentID is known to the registry.
type Strategy interface {
	DetermineAgent(req Request) Decision
	Name() string
	Kind() Kind

	// sealed restricts implementations to this package
	sealed()
}

// Option configures a strategy
type Option func(*options)

type options struct {
	logger   *zap.Logger
	delegate Delegate
}

// WithLogger sets the logger used for decision tracing
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDelegate sets the coordinator the delegating strategy defers to
func WithDelegate(d Delegate) Option {
	return func(o *options) {
		o.delegate = d
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// New creates the strategy for kind over the given registry
func New(kind Kind, reg *registry.Registry, opts ...Option) (Strategy, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry is nil")
	}

	switch kind {
	case KindKeyword:
		return NewKeywordStrategy(reg, opts...), nil
	case KindIntent:
		return NewIntentStrategy(reg, opts...), nil
	case KindDelegating:
		return NewDelegatingStrategy(reg, opts...)
	default:
		return nil, fmt.Errorf("unknown routing strategy: %q", kind)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// matchedIn returns the keywords that occur in text, in keyword order
func matchedIn(text string, keywords []string) []string {
	var matched []string
	for _, k := range keywords {
		if strings.Contains(text, k) {
			matched = append(matched, k)
		}
	}
	return matched
}

// firstIn returns the first keyword that occurs in text
func firstIn(text string, keywords []string) (string, bool) {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return k, true
		}
	}
	return "", false
}

// matchFlag finds an explicit flag in message: exact match first, then case-insensitive
func matchFlag(message, lowered string, flags []string) (string, bool) {
	for _, f := range flags {
		if strings.Contains(message, f) {
			return f, true
		}
	}
	for _, f := range flags {
		if strings.Contains(lowered, strings.ToLower(f)) {
			return f, true
		}
	}
	return "", false
}
