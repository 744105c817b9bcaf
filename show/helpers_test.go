package show

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.Unix(1_700_000_000, 0)

type recordingSink struct {
	mu       sync.Mutex
	steps    []StepContext
	released []uint64
}

func (s *recordingSink) ApplyStep(step StepContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, step)
}

func (s *recordingSink) ReleaseShow(instanceID uint64, priority int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = append(s.released, instanceID)
}

func (s *recordingSink) indexes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.steps))
	for i, step := range s.steps {
		out[i] = step.StepIndex
	}
	return out
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = nil
}

type postedEvent struct {
	name  string
	attrs map[string]any
}

type recordingPoster struct {
	mu     sync.Mutex
	events []postedEvent
}

func (p *recordingPoster) PostEvent(name string, attrs map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, postedEvent{name: name, attrs: attrs})
}

func (p *recordingPoster) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.name
	}
	return out
}

func (p *recordingPoster) count(name string) int {
	n := 0
	for _, got := range p.names() {
		if got == name {
			n++
		}
	}
	return n
}

type fixture struct {
	clock  *ManualClock
	sink   *recordingSink
	poster *recordingPoster
	reg    *Registry
}

func newFixture(t *testing.T, opts ...RegistryOption) *fixture {
	t.Helper()
	f := &fixture{
		clock:  NewManualClock(epoch),
		sink:   &recordingSink{},
		poster: &recordingPoster{},
	}
	base := []RegistryOption{WithClock(f.clock), WithStepSink(f.sink), WithEventPoster(f.poster)}
	f.reg = NewRegistry(append(base, opts...)...)
	return f
}

// register adds a show whose steps all last stepMS milliseconds.
func (f *fixture) register(t *testing.T, name string, steps int, stepMS int) *Definition {
	t.Helper()
	list := make([]Step, steps)
	for i := range list {
		list[i] = Step{Duration: time.Duration(stepMS) * time.Millisecond, Payload: i}
	}
	def, err := NewDefinition(name, list)
	require.NoError(t, err)
	require.NoError(t, f.reg.Register(def))
	return def
}

// advance moves the clock by ms milliseconds and ticks inst.
func (f *fixture) advance(inst *Instance, ms int) {
	inst.tick(f.clock.Advance(time.Duration(ms) * time.Millisecond))
}

func allEvents(prefix string) EventNames {
	return EventNames{
		Played:      []string{prefix + "_played"},
		Stopped:     []string{prefix + "_stopped"},
		Looped:      []string{prefix + "_looped"},
		Paused:      []string{prefix + "_paused"},
		Resumed:     []string{prefix + "_resumed"},
		Advanced:    []string{prefix + "_advanced"},
		SteppedBack: []string{prefix + "_stepped_back"},
		Updated:     []string{prefix + "_updated"},
		Completed:   []string{prefix + "_completed"},
	}
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
