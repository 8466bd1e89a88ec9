package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/aescanero/dago-childcare-router/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestVerifyCommand(t *testing.T) {
	for _, strategy := range []string{"keyword", "intent"} {
		t.Run(strategy, func(t *testing.T) {
			out, err := run(t, "verify", "--strategy", strategy)
			require.NoError(t, err, out)
			assert.Contains(t, out, "0 failed")
			assert.NotContains(t, out, "FAIL")
		})
	}
}

func TestRouteCommand(t *testing.T) {
	out, err := run(t, "route", "--strategy", "intent", "--image", "what is this rash?")
	require.NoError(t, err)

	var decision router.Decision
	require.NoError(t, json.Unmarshal([]byte(out), &decision))
	assert.Equal(t, "image_specialist", decision.AgentID)
	assert.Equal(t, 1.0, decision.Confidence)
}

func TestRouteCommand_DelegatingDefers(t *testing.T) {
	out, err := run(t, "route", "--strategy", "delegating", "my toddler bites at daycare")
	require.NoError(t, err)

	var decision router.Decision
	require.NoError(t, json.Unmarshal([]byte(out), &decision))
	assert.True(t, decision.Deferred)
	assert.Equal(t, "coordinator", decision.AgentID)
}

func TestInvalidStrategy(t *testing.T) {
	_, err := run(t, "route", "--strategy", "random", "hello")
	assert.Error(t, err)

	_, err = run(t, "verify", "--registry", "/nonexistent/registry.yaml")
	assert.Error(t, err)
}
