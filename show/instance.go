package show

import (
	"maps"
	"time"
)

// State is the playback state of an Instance.
type State int

const (
	// StatePending waits for the sync boundary before applying its first step.
	StatePending State = iota
	// StateRunning advances on the clock (unless manually advanced).
	StateRunning
	// StatePaused holds the current step.
	StatePaused
	// StateStopped is terminal.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Instance is a live playback cursor over one show. It is owned by the caller
// that started it and is not safe for concurrent use; when a Player drives it,
// mutate it through Player.Do.
//
// The instance refers to its show by name and resolves it through the registry
// every time it needs a step, so it never keeps a replaced definition alive.
type Instance struct {
	id       uint64
	showName string
	config   Config
	registry *Registry

	state     State
	started   bool
	index     int
	elapsed   time.Duration
	loopsLeft int
	startAt   time.Time
	lastTick  time.Time

	startCallback func()
	stopCallback  func()
}

// ID returns the process-unique instance id.
func (r *Instance) ID() uint64 {
	return r.id
}

// ShowName returns the name of the show being played. For pools this is the
// selected member, not the pool.
func (r *Instance) ShowName() string {
	return r.showName
}

// Config returns the config currently in effect.
func (r *Instance) Config() Config {
	return r.config
}

// State returns the playback state.
func (r *Instance) State() State {
	return r.state
}

// Stopped reports whether the instance reached its terminal state.
func (r *Instance) Stopped() bool {
	return r.state == StateStopped
}

// CurrentStepIndex returns the zero-based index of the applied step. ok is false
// until the first step has been applied.
func (r *Instance) CurrentStepIndex() (index int, ok bool) {
	if !r.started {
		return 0, false
	}
	return r.index, true
}

// LoopsRemaining returns the passes left after the current one; LoopForever
// repeats until stopped.
func (r *Instance) LoopsRemaining() int {
	return r.loopsLeft
}

// ElapsedInStep returns the speed-scaled time spent in the current step.
func (r *Instance) ElapsedInStep() time.Duration {
	return r.elapsed
}

// StartAt returns the time the instance started or is scheduled to start.
func (r *Instance) StartAt() time.Time {
	return r.startAt
}

// Advance moves to the next step, wrapping or completing by the loop rules.
func (r *Instance) Advance() {
	if r.state == StateStopped || !r.started {
		return
	}
	def, ok := r.definition()
	if !ok {
		return
	}
	r.elapsed = 0
	r.forward(def, true)
}

// StepBack moves to the previous step. From the first step it wraps to the last
// one when the show can still loop; otherwise it stays put.
func (r *Instance) StepBack() {
	if r.state == StateStopped || !r.started {
		return
	}
	def, ok := r.definition()
	if !ok {
		return
	}
	prev := min(r.index, def.Len()) - 1
	if prev < 0 {
		if r.loopsLeft == 0 {
			return
		}
		prev = def.Len() - 1
	}
	r.index = prev
	r.elapsed = 0
	r.apply(def)
	if r.state == StateStopped {
		return
	}
	r.announce(TransitionSteppedBack)
}

// Pause freezes clock-driven advancement. Time already spent in the step is kept.
func (r *Instance) Pause() {
	if r.state != StateRunning && r.state != StatePending {
		return
	}
	r.state = StatePaused
	r.announce(TransitionPaused)
}

// Resume continues a paused instance. An instance that never started (created
// with StartRunning false, or paused while pending) begins now, honoring SyncMS.
func (r *Instance) Resume() {
	if r.state != StatePaused {
		return
	}
	now := r.registry.clock.Now()
	if !r.started {
		r.begin(now)
	} else {
		r.state = StateRunning
		r.lastTick = now
	}
	if r.state == StateStopped {
		return
	}
	r.announce(TransitionResumed)
}

// Stop ends the instance. It is safe to call in any state and more than once;
// the stop callback runs exactly once.
func (r *Instance) Stop() {
	if r.state == StateStopped {
		return
	}
	r.state = StateStopped
	// An instance replaced before it started still owes the deferred stop of its predecessor.
	if pending := r.startCallback; pending != nil {
		r.startCallback = nil
		pending()
	}
	cb := r.stopCallback
	r.stopCallback = nil

	if releaser, ok := r.registry.sink.(OutputReleaser); ok {
		releaser.ReleaseShow(r.id, r.config.Priority)
	}
	r.announce(TransitionStopped)
	if cb != nil {
		cb()
	}
}

// Update swaps in a new config for the same show, re-applies the current step so
// new tokens take effect, and announces the updated event of the new config.
func (r *Instance) Update(cfg Config) error {
	if cfg.Name != r.config.Name && cfg.Name != r.showName {
		return ErrShowNameMismatch
	}
	if r.state == StateStopped {
		return nil
	}
	r.config = cfg
	if r.started {
		if def, ok := r.definition(); ok {
			r.apply(def)
		}
	}
	if r.state == StateStopped {
		return nil
	}
	r.announce(TransitionUpdated)
	return nil
}

// begin starts the instance at the first sync boundary at or after at.
func (r *Instance) begin(at time.Time) {
	r.startAt = syncBoundary(at, r.config.SyncMS)
	r.lastTick = r.startAt
	if r.startAt.After(at) {
		r.state = StatePending
		return
	}
	r.activate()
}

func (r *Instance) activate() {
	r.state = StateRunning
	r.started = true
	r.elapsed = 0

	if cb := r.startCallback; cb != nil {
		r.startCallback = nil
		cb()
	}
	if r.state == StateStopped {
		return
	}
	r.announce(TransitionPlayed)
	if r.state == StateStopped {
		return
	}
	def, ok := r.definition()
	if !ok {
		return
	}
	if r.index >= def.Len() {
		r.index = 0
	}
	r.apply(def)
}

// tick moves the cursor to now.
func (r *Instance) tick(now time.Time) {
	switch r.state {
	case StateStopped:
		return
	case StatePaused:
		r.lastTick = now
		return
	case StatePending:
		if now.Before(r.startAt) {
			return
		}
		r.activate()
		if r.state != StateRunning {
			return
		}
	}

	dt := now.Sub(r.lastTick)
	if dt <= 0 {
		return
	}
	r.lastTick = now
	if r.config.ManualAdvance {
		return
	}
	r.elapsed += time.Duration(float64(dt) * r.config.Speed)
	r.catchUp()
}

// catchUp crosses every step boundary covered by the elapsed time, in order.
func (r *Instance) catchUp() {
	applyEach := r.registry.catchUp != CatchUpSkipAhead
	moved := false

	for r.state == StateRunning {
		def, ok := r.definition()
		if !ok {
			return
		}
		if r.index >= def.Len() {
			r.index = def.Len() - 1
		}
		dur := def.Step(r.index).Duration
		if r.elapsed < dur {
			break
		}
		r.elapsed -= dur
		if !r.forward(def, applyEach) {
			return
		}
		moved = true
	}

	if !applyEach && moved && r.state == StateRunning {
		if def, ok := r.definition(); ok {
			r.apply(def)
		}
	}
}

// forward moves one step ahead. It reports false once the instance stopped.
func (r *Instance) forward(def *Definition, apply bool) bool {
	next := r.index + 1
	wrapped := false
	if next >= def.Len() {
		if r.loopsLeft == 0 {
			r.announce(TransitionCompleted)
			r.Stop()
			return false
		}
		if r.loopsLeft > 0 {
			r.loopsLeft--
		}
		next = 0
		wrapped = true
	}

	r.index = next
	if apply {
		r.apply(def)
		if r.state == StateStopped {
			return false
		}
	}
	if wrapped {
		r.announce(TransitionLooped)
	} else {
		r.announce(TransitionAdvanced)
	}
	return r.state != StateStopped
}

// apply hands the current step to the sink as a single call.
func (r *Instance) apply(def *Definition) {
	step := def.Step(r.index)
	r.registry.sink.ApplyStep(StepContext{
		InstanceID: r.id,
		ShowName:   r.showName,
		Priority:   r.config.Priority,
		StepIndex:  r.index,
		Payload:    ResolveTokens(step.Payload, r.config.Tokens),
	})
}

func (r *Instance) announce(t Transition) {
	if r.registry.hook != nil {
		r.registry.hook(r, t)
	}
	names := r.config.Events.For(t)
	if len(names) == 0 {
		return
	}
	attrs := map[string]any{
		"instance_id": r.id,
		"show_name":   r.showName,
		"priority":    r.config.Priority,
		"transition":  string(t),
	}
	for _, name := range names {
		r.registry.logger.Debug("Posting show event", "event", name, "show", r.showName, "instance", r.id)
		r.registry.poster.PostEvent(name, maps.Clone(attrs))
	}
}

// definition resolves the show by name. A show that disappeared from the
// registry stops the instance.
func (r *Instance) definition() (*Definition, bool) {
	def, err := r.registry.Definition(r.showName)
	if err != nil {
		r.registry.logger.Warn("Show definition no longer registered, stopping instance",
			"show", r.showName, "instance", r.id)
		r.Stop()
		return nil, false
	}
	return def, true
}
