package delegate

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/aescanero/dago-childcare-router/internal/eval/template"
	"github.com/aescanero/dago-childcare-router/internal/registry"
	"github.com/aescanero/dago-childcare-router/internal/router"
	"github.com/aescanero/dago-libs/pkg/domain"
	"github.com/aescanero/dago-libs/pkg/ports"
	"go.uber.org/zap"
)

const coordinatorName = "childcare_coordinator"

// Confidence reported with a resolution
const (
	llmConfidence      = 0.7
	fallbackConfidence = 0.3
)

// completionMaxTokens bounds the answer; a specialist id is a handful of tokens
const completionMaxTokens = 64

// DefaultPrompt asks the model for a single specialist id
const DefaultPrompt = `You are the coordinator of a childcare consultation service.
Pick the one specialist best suited to answer the parent's message.

Specialists:
{{#each specialists}}- {{id}}: {{description}}
{{/each}}
If none fits, answer "coordinator".

Message: {{truncate message 2000}}

Answer with the specialist id only.`

// completeFunc sends a prompt to a model and returns its text answer
type completeFunc func(ctx context.Context, prompt string) (string, error)

// Resolution is the coordinator's answer for a deferred request
type Resolution struct {
	AgentID    string  `json:"agent_id"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	PathTaken  string  `json:"path_taken"` // "llm", "fallback"
}

// Config holds coordinator settings
type Config struct {
	Model          string
	PromptTemplate string
}

// Coordinator is the LLM-backed delegate behind the delegating strategy
type Coordinator struct {
	complete       completeFunc
	templateEngine *template.Engine
	prompt         string
	specialists    []specialistInfo
	routes         map[string]string
	logger         *zap.Logger

	invocations atomic.Int64
	handoffs    atomic.Int64
	failures    atomic.Int64
}

type specialistInfo struct {
	ID          string
	Description string
}

// NewCoordinator creates a coordinator; llmClient may be nil, in which case every
// request stays with the coordinator
func NewCoordinator(reg *registry.Registry, llmClient ports.LLMClient, cfg Config, logger *zap.Logger) (*Coordinator, error) {
	var complete completeFunc
	if llmClient != nil {
		complete = llmCompletion(llmClient, cfg)
	}
	return newCoordinator(reg, complete, cfg, logger)
}

func newCoordinator(reg *registry.Registry, complete completeFunc, cfg Config, logger *zap.Logger) (*Coordinator, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	prompt := cfg.PromptTemplate
	if prompt == "" {
		prompt = DefaultPrompt
	}

	engine := template.NewEngine()
	if err := engine.ValidateTemplate(prompt); err != nil {
		return nil, fmt.Errorf("invalid prompt template: %w", err)
	}

	c := &Coordinator{
		complete:       complete,
		templateEngine: engine,
		prompt:         prompt,
		routes:         make(map[string]string),
		logger:         logger.Named(coordinatorName),
	}

	for _, s := range reg.Specialists() {
		c.specialists = append(c.specialists, specialistInfo{ID: s.ID, Description: s.Description})
		c.routes[s.ID] = s.ID
		// Models often drop the suffix: "nutrition" -> nutrition_specialist
		if short := strings.TrimSuffix(s.ID, "_specialist"); short != s.ID {
			c.routes[short] = s.ID
		}
	}
	c.routes[registry.Coordinator] = registry.Coordinator

	return c, nil
}

// Name identifies the delegate in decisions
func (c *Coordinator) Name() string { return coordinatorName }

// Specialists lists the ids the coordinator can hand off to
func (c *Coordinator) Specialists() []string {
	ids := make([]string, len(c.specialists))
	for i, s := range c.specialists {
		ids[i] = s.ID
	}
	return ids
}

// Usage reports invocation, handoff and failure counts
func (c *Coordinator) Usage() router.Usage {
	return router.Usage{
		Invocations: c.invocations.Load(),
		Handoffs:    c.handoffs.Load(),
		Failures:    c.failures.Load(),
	}
}

// Resolve picks the specialist for a deferred request.
// It never fails: without a model or with an unusable answer the coordinator keeps the request.
func (c *Coordinator) Resolve(ctx context.Context, req router.Request) Resolution {
	c.invocations.Add(1)

	if c.complete == nil {
		return Resolution{
			AgentID:    registry.Coordinator,
			Confidence: fallbackConfidence,
			Reasoning:  "llm client not configured",
			PathTaken:  "fallback",
		}
	}

	prompt, err := c.renderPrompt(req)
	if err != nil {
		c.failures.Add(1)
		c.logger.Error("failed to render coordinator prompt", zap.Error(err))
		return Resolution{
			AgentID:    registry.Coordinator,
			Confidence: fallbackConfidence,
			Reasoning:  fmt.Sprintf("failed to render prompt: %v", err),
			PathTaken:  "fallback",
		}
	}

	c.logger.Debug("calling llm for coordination",
		zap.String("prompt", prompt),
	)

	response, err := c.complete(ctx, prompt)
	if err != nil {
		c.failures.Add(1)
		c.logger.Error("llm call failed", zap.Error(err))
		return Resolution{
			AgentID:    registry.Coordinator,
			Confidence: fallbackConfidence,
			Reasoning:  fmt.Sprintf("llm call failed: %v", err),
			PathTaken:  "fallback",
		}
	}

	target, matched := c.matchResponse(response)
	if !matched {
		c.logger.Warn("llm response did not match any specialist",
			zap.String("response", response),
		)
		return Resolution{
			AgentID:    registry.Coordinator,
			Confidence: fallbackConfidence,
			Reasoning:  fmt.Sprintf("llm response '%s' did not match any specialist", response),
			PathTaken:  "fallback",
		}
	}

	if target != registry.Coordinator {
		c.handoffs.Add(1)
	}

	return Resolution{
		AgentID:    target,
		Confidence: llmConfidence,
		Reasoning:  fmt.Sprintf("coordinator classified as: %s", strings.TrimSpace(response)),
		PathTaken:  "llm",
	}
}

// renderPrompt renders the Handlebars prompt with the message and specialist list
func (c *Coordinator) renderPrompt(req router.Request) (string, error) {
	specialists := make([]map[string]interface{}, len(c.specialists))
	for i, s := range c.specialists {
		specialists[i] = map[string]interface{}{
			"id":          s.ID,
			"description": s.Description,
		}
	}

	data := map[string]interface{}{
		"message":      req.Message,
		"message_type": string(req.Signals.MessageType),
		"specialists":  specialists,
	}

	return c.templateEngine.Render(c.prompt, data)
}

// matchResponse maps a model answer to a specialist id
func (c *Coordinator) matchResponse(response string) (string, bool) {
	normalized := strings.Trim(strings.TrimSpace(strings.ToLower(response)), "\"'`.")

	if target, ok := c.routes[normalized]; ok {
		return target, true
	}

	// Partial match in declaration order, full ids before short names
	for _, s := range c.specialists {
		if strings.Contains(normalized, s.ID) {
			return s.ID, true
		}
	}
	for _, s := range c.specialists {
		short := strings.TrimSuffix(s.ID, "_specialist")
		if short != s.ID && strings.Contains(normalized, short) {
			c.logger.Debug("matched specialist by partial match",
				zap.String("response", response),
				zap.String("matched_key", short),
			)
			return s.ID, true
		}
	}

	return "", false
}

// llmCompletion adapts a dago LLM client to completeFunc
func llmCompletion(llmClient ports.LLMClient, cfg Config) completeFunc {
	model := cfg.Model

	return func(ctx context.Context, prompt string) (string, error) {
		req := &domain.LLMRequest{
			Model: model,
			Messages: []domain.Message{
				{
					Role:    "user",
					Content: prompt,
				},
			},
			MaxTokens: completionMaxTokens,
		}

		respInterface, err := llmClient.GenerateCompletion(ctx, req)
		if err != nil {
			return "", fmt.Errorf("llm completion failed: %w", err)
		}

		resp, ok := respInterface.(*domain.LLMResponse)
		if !ok {
			return "", fmt.Errorf("unexpected response type from LLM")
		}

		return resp.Content, nil
	}
}
