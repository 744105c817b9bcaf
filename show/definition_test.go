package show

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefinition(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		steps := []Step{
			{Duration: 100 * time.Millisecond, Payload: "a"},
			{Duration: 250 * time.Millisecond, Payload: "b"},
		}
		def, err := NewDefinition("attract", steps)
		require.NoError(t, err)
		assert.Equal(t, "attract", def.Name())
		assert.Equal(t, 2, def.Len())
		assert.Equal(t, 350*time.Millisecond, def.Duration())

		// The definition owns its own copy.
		steps[0].Payload = "changed"
		assert.Equal(t, "a", def.Step(0).Payload)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := NewDefinition("", []Step{{Duration: time.Second}})
		require.ErrorIs(t, err, ErrInvalidShowDefinition)
	})

	t.Run("no steps", func(t *testing.T) {
		_, err := NewDefinition("empty", nil)
		require.ErrorIs(t, err, ErrInvalidShowDefinition)
	})

	t.Run("zero duration", func(t *testing.T) {
		_, err := NewDefinition("bad", []Step{{Duration: time.Second}, {Duration: 0}})
		require.ErrorIs(t, err, ErrInvalidShowDefinition)
		assert.Contains(t, err.Error(), "step 2")
	})
}

func TestDefinitionStepIndex(t *testing.T) {
	def, err := NewDefinition("four", []Step{
		{Duration: time.Second}, {Duration: time.Second}, {Duration: time.Second}, {Duration: time.Second},
	})
	require.NoError(t, err)

	tests := []struct {
		requested int
		want      int
	}{
		{0, 0},
		{1, 0},
		{2, 1},
		{4, 3},
		{5, 0},
		{-1, 3},
		{-4, 0},
		{-5, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, def.stepIndex(tt.requested), "requested %d", tt.requested)
	}
}

func TestSyncBoundary(t *testing.T) {
	base := time.Unix(1_000, 0)

	assert.Equal(t, base.Add(120*time.Millisecond), syncBoundary(base.Add(120*time.Millisecond), 0))
	assert.True(t, syncBoundary(base.Add(120*time.Millisecond), 500).Equal(base.Add(500*time.Millisecond)))
	assert.True(t, syncBoundary(base.Add(340*time.Millisecond), 500).Equal(base.Add(500*time.Millisecond)))
	assert.True(t, syncBoundary(base.Add(500*time.Millisecond), 500).Equal(base.Add(500*time.Millisecond)))
	assert.True(t, syncBoundary(base.Add(501*time.Millisecond), 500).Equal(base.Add(time.Second)))
}

func TestResolveTokens(t *testing.T) {
	tokens := map[string]string{"leds": "l_shoot_again", "color": "red"}

	t.Run("nested payload", func(t *testing.T) {
		payload := map[string]any{
			"(leds)": "(color)",
			"lights": []any{"(leds)_1", 42, map[string]string{"(leds)": "on"}},
			"names":  []string{"(color)", "plain"},
		}
		got := ResolveTokens(payload, tokens)
		assert.Equal(t, map[string]any{
			"l_shoot_again": "red",
			"lights":        []any{"l_shoot_again_1", 42, map[string]string{"l_shoot_again": "on"}},
			"names":         []string{"red", "plain"},
		}, got)

		// The input is left alone.
		assert.Equal(t, "(color)", payload["(leds)"])
	})

	t.Run("no tokens", func(t *testing.T) {
		payload := map[string]any{"(leds)": "x"}
		assert.Equal(t, payload, ResolveTokens(payload, nil))
	})

	t.Run("unknown placeholder kept", func(t *testing.T) {
		assert.Equal(t, "(other) red", ResolveTokens("(other) (color)", tokens))
	})
}
