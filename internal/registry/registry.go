package registry

import (
	"fmt"
	"strings"

	"github.com/aescanero/dago-childcare-router/internal/eval/cel"
)

// Reserved destinations that are never declared as registry entries
const (
	Coordinator = "coordinator"
	Parallel    = "parallel"
	Sequential  = "sequential"
)

// Specialists the strategies route to by name
const (
	SearchSpecialist = "search_specialist"
	ImageSpecialist  = "image_specialist"
)

// Spec is the declarative form of a registry, as read from YAML
type Spec struct {
	Specialists        []SpecialistSpec `yaml:"specialists"`
	ExplicitFlags      []string         `yaml:"explicit_flags"`
	ParallelTriggers   []string         `yaml:"parallel_triggers"`
	SequentialTriggers []string         `yaml:"sequential_triggers"`
	SearchHints        []string         `yaml:"search_hints"`
	SignalRules        []SignalRule     `yaml:"signal_rules"`
}

// SpecialistSpec declares one specialist
type SpecialistSpec struct {
	ID            string   `yaml:"id"`
	Description   string   `yaml:"description,omitempty"`
	Priority      *float64 `yaml:"priority,omitempty"`
	Keywords      []string `yaml:"keywords"`
	ForceKeywords []string `yaml:"force_keywords,omitempty"`
}

// SignalRule routes on request signals using a CEL condition
type SignalRule struct {
	Condition string `yaml:"condition"`
	Target    string `yaml:"target"`
}

// Specialist is a validated registry entry
type Specialist struct {
	ID            string
	Description   string
	Keywords      []string
	ForceKeywords []string
	// Priority is only meaningful when Weighted is true
	Priority float64
	Weighted bool
}

// Registry is the immutable routing configuration
type Registry struct {
	specialists        []Specialist
	index              map[string]int
	explicitFlags      []string
	parallelTriggers   []string
	sequentialTriggers []string
	searchHints        []string
	signalRules        []SignalRule
}

// Build validates a Spec and returns the registry it describes
func Build(spec Spec) (*Registry, error) {
	if len(spec.Specialists) == 0 {
		return nil, configErr("specialists", "at least one specialist is required")
	}

	reg := &Registry{
		index: make(map[string]int, len(spec.Specialists)),
	}

	for i, s := range spec.Specialists {
		field := fmt.Sprintf("specialists[%d]", i)

		id := strings.TrimSpace(s.ID)
		if id == "" {
			return nil, configErr(field, "id is required")
		}
		if isReserved(id) {
			return nil, configErr(field, "id %q is reserved", id)
		}
		if _, dup := reg.index[id]; dup {
			return nil, configErr(field, "duplicate id %q", id)
		}

		keywords, err := normalizeKeywords(field+".keywords", s.Keywords)
		if err != nil {
			return nil, err
		}
		force, err := normalizeKeywords(field+".force_keywords", s.ForceKeywords)
		if err != nil {
			return nil, err
		}

		entry := Specialist{
			ID:            id,
			Description:   s.Description,
			Keywords:      keywords,
			ForceKeywords: force,
		}

		if s.Priority != nil {
			if *s.Priority <= 0 {
				return nil, configErr(field+".priority", "priority for %q must be positive, got %v", id, *s.Priority)
			}
			if len(keywords) == 0 {
				return nil, configErr(field+".keywords", "%q has a priority weight but no keyword set", id)
			}
			entry.Priority = *s.Priority
			entry.Weighted = true
		}

		reg.index[id] = len(reg.specialists)
		reg.specialists = append(reg.specialists, entry)
	}

	for _, required := range []string{SearchSpecialist, ImageSpecialist} {
		if _, ok := reg.index[required]; !ok {
			return nil, configErr("specialists", "%q must be declared", required)
		}
	}

	var err error
	if reg.explicitFlags, err = normalizeFlags(spec.ExplicitFlags); err != nil {
		return nil, err
	}
	if reg.parallelTriggers, err = normalizeKeywords("parallel_triggers", spec.ParallelTriggers); err != nil {
		return nil, err
	}
	if reg.sequentialTriggers, err = normalizeKeywords("sequential_triggers", spec.SequentialTriggers); err != nil {
		return nil, err
	}
	if reg.searchHints, err = normalizeKeywords("search_hints", spec.SearchHints); err != nil {
		return nil, err
	}

	if len(spec.SignalRules) > 0 {
		evaluator := cel.NewEvaluator()
		for i, rule := range spec.SignalRules {
			field := fmt.Sprintf("signal_rules[%d]", i)
			if strings.TrimSpace(rule.Condition) == "" {
				return nil, configErr(field, "condition is required")
			}
			if _, ok := reg.index[rule.Target]; !ok {
				return nil, configErr(field, "unknown target %q", rule.Target)
			}
			if err := evaluator.ValidateExpression(rule.Condition); err != nil {
				return nil, &ConfigurationError{Field: field, Reason: "invalid condition", Err: err}
			}
			reg.signalRules = append(reg.signalRules, rule)
		}
	}

	return reg, nil
}

// Specialists returns the registry entries in declaration order
func (r *Registry) Specialists() []Specialist {
	out := make([]Specialist, len(r.specialists))
	for i, s := range r.specialists {
		s.Keywords = cloneStrings(s.Keywords)
		s.ForceKeywords = cloneStrings(s.ForceKeywords)
		out[i] = s
	}
	return out
}

// Specialist looks up a declared specialist by id
func (r *Registry) Specialist(id string) (Specialist, bool) {
	i, ok := r.index[id]
	if !ok {
		return Specialist{}, false
	}
	s := r.specialists[i]
	s.Keywords = cloneStrings(s.Keywords)
	s.ForceKeywords = cloneStrings(s.ForceKeywords)
	return s, true
}

// IDs returns the declared specialist ids in declaration order
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.specialists))
	for i, s := range r.specialists {
		ids[i] = s.ID
	}
	return ids
}

// IsKnown reports whether id is a declared specialist or a reserved destination
func (r *Registry) IsKnown(id string) bool {
	if isReserved(id) {
		return true
	}
	_, ok := r.index[id]
	return ok
}

// ExplicitFlags returns the override flags with their original casing
func (r *Registry) ExplicitFlags() []string { return cloneStrings(r.explicitFlags) }

// ParallelTriggers returns the lower-cased parallel trigger phrases
func (r *Registry) ParallelTriggers() []string { return cloneStrings(r.parallelTriggers) }

// SequentialTriggers returns the lower-cased sequential trigger phrases
func (r *Registry) SequentialTriggers() []string { return cloneStrings(r.sequentialTriggers) }

// SearchHints returns the lower-cased search-shaped terms
func (r *Registry) SearchHints() []string { return cloneStrings(r.searchHints) }

// SignalRules returns the signal rules in evaluation order
func (r *Registry) SignalRules() []SignalRule {
	out := make([]SignalRule, len(r.signalRules))
	copy(out, r.signalRules)
	return out
}

func isReserved(id string) bool {
	return id == Coordinator || id == Parallel || id == Sequential
}

// normalizeKeywords lower-cases, trims and de-duplicates while keeping order
func normalizeKeywords(field string, in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for i, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			return nil, configErr(fmt.Sprintf("%s[%d]", field, i), "empty keyword")
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out, nil
}

// normalizeFlags trims flags but keeps their casing for exact matching
func normalizeFlags(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for i, f := range in {
		f = strings.TrimSpace(f)
		if f == "" {
			return nil, configErr(fmt.Sprintf("explicit_flags[%d]", i), "empty flag")
		}
		out = append(out, f)
	}
	return out, nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
