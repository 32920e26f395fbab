package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_Approve(t *testing.T) {
	testCases := []struct {
		description string
		policy      *Policy
		plugin      string
		allowed     bool
	}{
		{description: "nil policy", plugin: "x", allowed: true},
		{description: "auto", policy: New(true), plugin: "x", allowed: true},
		{description: "block list wins", policy: &Policy{Mode: ModeAuto, AllowList: []string{"x"}, BlockList: []string{"X"}}, plugin: "x"},
		{description: "allow list restricts", policy: &Policy{Mode: ModeAuto, AllowList: []string{"y"}}, plugin: "x"},
		{description: "deny", policy: &Policy{Mode: ModeDeny}, plugin: "x"},
		{description: "ask without func", policy: &Policy{Mode: ModeAsk}, plugin: "x"},
		{
			description: "ask approves",
			policy: &Policy{Mode: ModeAsk, Ask: func(ctx context.Context, plugin, nodeID string, p *Policy) bool {
				return nodeID == "n"
			}},
			plugin:  "x",
			allowed: true,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			err := testCase.policy.Approve(context.Background(), testCase.plugin, "n")
			if testCase.allowed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrBlocked)
		})
	}
}

func TestPolicy_Execute(t *testing.T) {
	var nilPolicy *Policy
	assert.True(t, nilPolicy.Execute())

	p := New(true)
	assert.True(t, p.Execute())
	p.SetExecute(false)
	assert.False(t, p.Execute())

	cfg := ToConfig(p)
	assert.False(t, *cfg.Execute)
	restored := FromConfig(cfg)
	assert.False(t, restored.Execute())
	assert.True(t, FromConfig(&Config{}).Execute())
	assert.Equal(t, ModeAuto, FromConfig(&Config{}).Mode)
}

func TestResolve(t *testing.T) {
	engine := New(true)
	override := &Policy{Mode: ModeDeny}
	assert.Same(t, engine, Resolve(context.Background(), engine))
	assert.Same(t, override, Resolve(WithPolicy(context.Background(), override), engine))
}
