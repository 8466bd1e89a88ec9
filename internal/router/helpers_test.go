package router

import (
	"testing"

	"github.com/aescanero/dago-childcare-router/internal/registry"
	"github.com/stretchr/testify/require"
)

func weight(v float64) *float64 { return &v }

// testRegistry is small enough to compute scores by hand
func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	reg, err := registry.Build(registry.Spec{
		Specialists: []registry.SpecialistSpec{
			{ID: "zeta_specialist", Priority: weight(1.0), Keywords: []string{"apple", "pear"}, ForceKeywords: []string{"urgent"}},
			{ID: "beta_specialist", Priority: weight(2.0), Keywords: []string{"banana"}, ForceKeywords: []string{"urgent", "emergency"}},
			{ID: "alpha_specialist", Priority: weight(1.0), Keywords: []string{"grape", "plum"}},
			{ID: "search_specialist", Keywords: []string{"search", "find"}},
			{ID: "image_specialist", Keywords: []string{"photo"}},
			{ID: "voice_specialist", Keywords: []string{"voice"}},
		},
		ExplicitFlags:      []string{"[SEARCH]", "#lookup"},
		ParallelTriggers:   []string{"analyze everything"},
		SequentialTriggers: []string{"one by one"},
		SearchHints:        []string{"where", "how"},
		SignalRules: []registry.SignalRule{
			{Condition: "signals.message_type == 'voice'", Target: "voice_specialist"},
		},
	})
	require.NoError(t, err)
	return reg
}

func defaultRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	reg, err := registry.Default()
	require.NoError(t, err)
	return reg
}

type stubDelegate struct {
	specialists []string
	usage       Usage
}

func (d *stubDelegate) Name() string          { return "stub_coordinator" }
func (d *stubDelegate) Specialists() []string { return d.specialists }
func (d *stubDelegate) Usage() Usage          { return d.usage }
