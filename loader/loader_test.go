package loader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/showcontrol/show"
)

func TestLoadYAML(t *testing.T) {
	f, err := LoadFile("testdata/shows.yaml")
	require.NoError(t, err)

	require.Len(t, f.Shows, 2)
	attract := f.Shows[0]
	assert.Equal(t, "attract", attract.Name())
	require.Equal(t, 3, attract.Len())
	assert.Equal(t, 500*time.Millisecond, attract.Step(0).Duration)
	assert.Equal(t, 1500*time.Millisecond, attract.Step(1).Duration)
	assert.Equal(t, DefaultStepDuration, attract.Step(2).Duration)
	assert.Equal(t, map[string]any{"lights": map[string]any{"l_shoot_again": "(color)"}}, attract.Step(0).Payload)
	assert.Equal(t, map[string]any{"slides": "attract_title"}, attract.Step(2).Payload)

	flash := f.Shows[1]
	assert.Equal(t, "flash", flash.Name())
	assert.Nil(t, flash.Step(0).Payload)

	require.Len(t, f.Pools, 2)
	assert.Equal(t, "in_order", f.Pools[0].Name())
	assert.Equal(t, show.PoolSequential, f.Pools[0].Policy())
	assert.Equal(t, "rotation", f.Pools[1].Name())
	assert.Equal(t, show.PoolRandomForceAll, f.Pools[1].Policy())
	assert.Equal(t, []show.PoolMember{{Show: "attract", Weight: 2}, {Show: "flash", Weight: 1}}, f.Pools[1].Members())
}

func TestLoadTOML(t *testing.T) {
	f, err := LoadFile("testdata/shows.toml")
	require.NoError(t, err)

	require.Len(t, f.Shows, 1)
	attract := f.Shows[0]
	require.Equal(t, 2, attract.Len())
	assert.Equal(t, 250*time.Millisecond, attract.Step(0).Duration)
	assert.Equal(t, 2*time.Second, attract.Step(1).Duration)
	assert.Equal(t, map[string]any{"lights": map[string]any{"l_shoot_again": "on"}}, attract.Step(0).Payload)

	require.Len(t, f.Pools, 1)
	assert.Equal(t, show.PoolSequential, f.Pools[0].Policy())
}

func TestLoadJSON(t *testing.T) {
	f, err := LoadFile("testdata/shows.json")
	require.NoError(t, err)

	require.Len(t, f.Shows, 1)
	flash := f.Shows[0]
	assert.Equal(t, 100*time.Millisecond, flash.Step(0).Duration)
	assert.Equal(t, 250*time.Millisecond, flash.Step(1).Duration)
	assert.Empty(t, f.Pools)
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadFile("testdata/shows.ini")
	require.ErrorIs(t, err, ErrUnsupportedShowFile)

	_, err = LoadFile("testdata/missing.yaml")
	require.Error(t, err)

	_, err = LoadFile("testdata/empty_pool.yaml")
	require.ErrorIs(t, err, show.ErrEmptyPool)

	_, err = Parse([]byte("shows: [1, 2]"), FormatYAML)
	require.ErrorIs(t, err, ErrInvalidShowFile)

	_, err = Parse([]byte("shows:\n  bad:\n    - duration: soon\n"), FormatYAML)
	require.ErrorIs(t, err, ErrInvalidDuration)

	_, err = Parse([]byte("shows:\n  bad: []\n"), FormatYAML)
	require.ErrorIs(t, err, show.ErrInvalidShowDefinition)

	_, err = Parse([]byte("{"), FormatJSON)
	require.ErrorIs(t, err, ErrInvalidShowFile)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   any
		want time.Duration
	}{
		{"250ms", 250 * time.Millisecond},
		{"1m30s", 90 * time.Second},
		{"2", 2 * time.Second},
		{1, time.Second},
		{int64(3), 3 * time.Second},
		{0.5, 500 * time.Millisecond},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}

	_, err := ParseDuration(true)
	require.ErrorIs(t, err, ErrInvalidDuration)
}

func TestFileRegister(t *testing.T) {
	f, err := LoadFile("testdata/shows.yaml")
	require.NoError(t, err)

	reg := show.NewRegistry()
	require.NoError(t, f.Register(reg))
	assert.Equal(t, []string{"attract", "flash", "in_order", "rotation"}, reg.Names())

	require.ErrorIs(t, f.Register(reg), show.ErrDuplicateName)
}
