package show

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerTickOrderAndCompaction(t *testing.T) {
	f := newFixture(t)
	f.register(t, "short", 1, 100)
	f.register(t, "long", 2, 100)
	player := NewPlayer(f.reg)

	shortCfg, err := f.reg.BuildConfig(ConfigFields{Name: "short", Loops: intPtr(0)})
	require.NoError(t, err)
	longCfg, err := f.reg.BuildConfig(ConfigFields{Name: "long"})
	require.NoError(t, err)

	short, err := player.Play(shortCfg, DefaultPlayOptions())
	require.NoError(t, err)
	long, err := player.Play(longCfg, DefaultPlayOptions())
	require.NoError(t, err)
	assert.Equal(t, []*Instance{short, long}, player.Instances())

	f.sink.reset()
	player.Tick(f.clock.Advance(100 * time.Millisecond))

	assert.True(t, short.Stopped())
	assert.Equal(t, []*Instance{long}, player.Instances())
	require.Len(t, f.sink.steps, 1)
	assert.Equal(t, long.ID(), f.sink.steps[0].InstanceID)
}

func TestPlayerReconcileTracksReplacement(t *testing.T) {
	f := newFixture(t)
	f.register(t, "attract", 2, 100)
	player := NewPlayer(f.reg)

	cfg, err := f.reg.BuildConfig(ConfigFields{Name: "attract"})
	require.NoError(t, err)
	first, err := player.Play(cfg, DefaultPlayOptions())
	require.NoError(t, err)

	same, err := player.Reconcile(first, cfg, DefaultPlayOptions())
	require.NoError(t, err)
	assert.Same(t, first, same)
	assert.Len(t, player.Instances(), 1)

	changed, err := f.reg.BuildConfig(ConfigFields{Name: "attract", Priority: 3})
	require.NoError(t, err)
	second, err := player.Reconcile(first, changed, DefaultPlayOptions())
	require.NoError(t, err)
	assert.Equal(t, []*Instance{second}, player.Instances())

	player.StopAll()
	assert.True(t, second.Stopped())
	assert.Empty(t, player.Instances())
}

func TestPlayerTrackAndDo(t *testing.T) {
	f := newFixture(t)
	f.register(t, "attract", 2, 100)
	player := NewPlayer(f.reg)

	cfg, err := f.reg.BuildConfig(ConfigFields{Name: "attract"})
	require.NoError(t, err)
	inst, err := f.reg.Play(cfg, DefaultPlayOptions())
	require.NoError(t, err)

	player.Track(inst)
	player.Track(inst)
	assert.Len(t, player.Instances(), 1)

	player.Do(inst.Pause)
	player.Tick(f.clock.Advance(time.Second))
	idx, _ := inst.CurrentStepIndex()
	assert.Equal(t, 0, idx)
	assert.Equal(t, StatePaused, inst.State())
}

func TestPlayerBackgroundLoop(t *testing.T) {
	f := newFixture(t)
	f.register(t, "attract", 3, 100)
	player := NewPlayer(f.reg, WithTickInterval(time.Millisecond))

	cfg, err := f.reg.BuildConfig(ConfigFields{Name: "attract"})
	require.NoError(t, err)
	inst, err := player.Play(cfg, DefaultPlayOptions())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, player.Start(ctx))
	require.NoError(t, player.Start(ctx))

	f.clock.Advance(150 * time.Millisecond)
	assert.Eventually(t, func() bool {
		var idx int
		player.Do(func() { idx, _ = inst.CurrentStepIndex() })
		return idx == 1
	}, time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, player.Stop(stopCtx))
	require.NoError(t, player.Stop(stopCtx))
}
