// Package show implements the show playback and synchronization engine: a
// registry of named show definitions and pools, running show instances with
// their step/time state machine, the reconciliation procedure that decides
// whether a play request reuses, advances or replaces a running instance, and a
// tick-driven Player that advances every tracked instance.
package show

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GoCodeAlone/modular"
)

// CatchUpPolicy controls what happens when one tick spans several step boundaries.
type CatchUpPolicy string

const (
	// CatchUpApplyAll applies every crossed step in order.
	CatchUpApplyAll CatchUpPolicy = "apply_all"
	// CatchUpSkipAhead applies only the step the cursor lands on.
	CatchUpSkipAhead CatchUpPolicy = "skip_ahead"
)

// PlayOptions are the per-request arguments of Play and Reconcile.
type PlayOptions struct {
	// StartStep is the 1-based step to start at; nil means "not requested".
	// Negative values count back from the last step.
	StartStep *int
	// StartTime is the time base for sync alignment; zero means the registry clock.
	StartTime time.Time
	// StartRunning begins playback immediately; otherwise the instance waits paused
	// until Resume.
	StartRunning bool
	// StopCallback runs once when the new instance stops.
	StopCallback func()
}

// DefaultPlayOptions returns options that start running at once from step 1.
func DefaultPlayOptions() PlayOptions {
	return PlayOptions{StartRunning: true}
}

// AtStep returns a copy of o requesting the given 1-based start step.
func (o PlayOptions) AtStep(step int) PlayOptions {
	o.StartStep = &step
	return o
}

// Registry is the process-wide catalog of shows and pools. It allocates instance
// ids and owns the reconciliation procedure. It keeps no reference to the
// instances it creates.
type Registry struct {
	mu    sync.RWMutex
	shows map[string]*Definition
	pools map[string]*Pool

	lastID atomic.Uint64

	sink          StepSink
	poster        EventPoster
	clock         Clock
	logger        modular.Logger
	hook          TransitionHook
	defaultSyncMS int
	catchUp       CatchUpPolicy
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithStepSink sets the output sink steps are applied to.
func WithStepSink(sink StepSink) RegistryOption {
	return func(r *Registry) {
		if sink != nil {
			r.sink = sink
		}
	}
}

// WithEventPoster sets the collaborator configured lifecycle events are posted to.
func WithEventPoster(poster EventPoster) RegistryOption {
	return func(r *Registry) {
		if poster != nil {
			r.poster = poster
		}
	}
}

// WithClock sets the time base.
func WithClock(clock Clock) RegistryOption {
	return func(r *Registry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger modular.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTransitionHook registers a hook called on every lifecycle transition.
func WithTransitionHook(hook TransitionHook) RegistryOption {
	return func(r *Registry) {
		r.hook = hook
	}
}

// WithDefaultSyncMS sets the sync period used when a config leaves SyncMS unset.
func WithDefaultSyncMS(ms int) RegistryOption {
	return func(r *Registry) {
		if ms >= 0 {
			r.defaultSyncMS = ms
		}
	}
}

// WithCatchUpPolicy sets how multi-step ticks are applied.
func WithCatchUpPolicy(policy CatchUpPolicy) RegistryOption {
	return func(r *Registry) {
		if policy == CatchUpApplyAll || policy == CatchUpSkipAhead {
			r.catchUp = policy
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		shows:   make(map[string]*Definition),
		pools:   make(map[string]*Pool),
		sink:    nopSink{},
		poster:  nopPoster{},
		clock:   SystemClock{},
		logger:  nopLogger{},
		catchUp: CatchUpApplyAll,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Clock returns the registry's time base.
func (r *Registry) Clock() Clock {
	return r.clock
}

// Register adds a show definition. Names are unique across shows and pools.
func (r *Registry) Register(def *Definition) error {
	if def == nil {
		return fmt.Errorf("%w: definition is nil", ErrInvalidShowDefinition)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkFreeLocked(def.Name()); err != nil {
		return err
	}
	r.shows[def.Name()] = def
	r.logger.Debug("Registered show", "show", def.Name(), "steps", def.Len())
	return nil
}

// RegisterPool adds a show pool. Names are unique across shows and pools.
// Members are resolved when selected, so they may be registered later.
func (r *Registry) RegisterPool(pool *Pool) error {
	if pool == nil {
		return fmt.Errorf("%w: pool is nil", ErrInvalidShowDefinition)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkFreeLocked(pool.Name()); err != nil {
		return err
	}
	r.pools[pool.Name()] = pool
	r.logger.Debug("Registered show pool", "pool", pool.Name(), "policy", pool.Policy())
	return nil
}

func (r *Registry) checkFreeLocked(name string) error {
	if _, ok := r.shows[name]; ok {
		return fmt.Errorf("%w: %q is already a show; shows are shared process-wide", ErrDuplicateName, name)
	}
	if _, ok := r.pools[name]; ok {
		return fmt.Errorf("%w: %q is already a show pool", ErrDuplicateName, name)
	}
	return nil
}

// CheckFree reports ErrDuplicateName when name is taken by a show or pool.
func (r *Registry) CheckFree(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.checkFreeLocked(name)
}

// Unregister removes a show or pool so the name can be registered again.
// Instances still playing a removed show stop the next time they need a step.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.shows[name]; ok {
		delete(r.shows, name)
		return true
	}
	if _, ok := r.pools[name]; ok {
		delete(r.pools, name)
		return true
	}
	return false
}

// Definition returns the show registered under name.
func (r *Registry) Definition(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.shows[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrShowNotFound, name)
	}
	return def, nil
}

// Pool returns the pool registered under name.
func (r *Registry) Pool(name string) (*Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pool, ok := r.pools[name]
	if !ok {
		return nil, fmt.Errorf("%w: pool %q", ErrShowNotFound, name)
	}
	return pool, nil
}

// Names returns every registered show and pool name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.shows)+len(r.pools))
	for name := range r.shows {
		names = append(names, name)
	}
	for name := range r.pools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NextID returns a fresh instance id. Ids start at 1, strictly increase and are
// never reused.
func (r *Registry) NextID() uint64 {
	return r.lastID.Add(1)
}

// BuildConfig validates fields and returns an immutable Config. An unset SyncMS
// takes the registry default.
func (r *Registry) BuildConfig(fields ConfigFields) (Config, error) {
	return buildConfig(fields, r.defaultSyncMS)
}

// BuildConfigFromMap builds a Config from show_player style settings such as
// {"show": "attract", "priority": "10", "loops": 0, "events_when_played": "x"}.
func (r *Registry) BuildConfigFromMap(raw map[string]any) (Config, error) {
	fields, err := fieldsFromMap(raw)
	if err != nil {
		return Config{}, err
	}
	return r.BuildConfig(fields)
}

// Play starts a fresh instance of cfg.Name.
func (r *Registry) Play(cfg Config, opts PlayOptions) (*Instance, error) {
	return r.Reconcile(nil, cfg, opts)
}

// Reconcile makes cfg effective for the slot currently held by existing, which
// may be nil. The rules are tried in order:
//
//  1. no live instance: start a new one;
//  2. a stop callback is supplied or cfg announces played/stopped events: replace;
//  3. the config changed: replace;
//  4. same config: keep existing when no step is requested (and the show is not
//     manually advanced) or it already shows the requested step; advance once if
//     it is exactly one step behind; otherwise replace.
//
// Replacing stops existing immediately, or at the new instance's sync boundary
// when cfg.SyncMS is set, and then starts a new instance as in rule 1. The new
// show is resolved before existing is touched: an unknown show or pool name
// returns ErrShowNotFound and leaves existing playing.
func (r *Registry) Reconcile(existing *Instance, cfg Config, opts PlayOptions) (*Instance, error) {
	if existing != nil && !existing.Stopped() {
		if keep := r.reuse(existing, cfg, opts); keep {
			return existing, nil
		}
	}

	showName, err := r.resolve(cfg.Name)
	if err != nil {
		return nil, err
	}

	var startCallback func()
	if existing != nil && !existing.Stopped() {
		if cfg.SyncMS != 0 {
			startCallback = existing.Stop
		} else {
			existing.Stop()
		}
	}
	return r.start(showName, cfg, opts, startCallback)
}

// reuse applies rules 2 to 4 to a live instance and reports whether it stays.
func (r *Registry) reuse(existing *Instance, cfg Config, opts PlayOptions) bool {
	switch {
	case opts.StopCallback != nil || len(cfg.Events.Played) > 0 || len(cfg.Events.Stopped) > 0:
		return false
	case !existing.Config().Equal(cfg):
		return false
	case opts.StartStep == nil && !cfg.ManualAdvance:
		return true
	}

	current, ok := existing.CurrentStepIndex()
	if !ok || opts.StartStep == nil {
		return false
	}
	switch *opts.StartStep {
	case current + 1:
		return true
	case current + 2:
		existing.Advance()
		return !existing.Stopped()
	default:
		return false
	}
}

// resolve maps a show or pool name to the show that will be played.
func (r *Registry) resolve(name string) (string, error) {
	r.mu.RLock()
	_, isShow := r.shows[name]
	pool, isPool := r.pools[name]
	r.mu.RUnlock()

	switch {
	case isShow:
		return name, nil
	case isPool:
		member, err := pool.Select()
		if err != nil {
			return "", err
		}
		if _, err := r.Definition(member); err != nil {
			return "", fmt.Errorf("pool %q selected %q: %w", name, member, err)
		}
		return member, nil
	default:
		return "", fmt.Errorf("cannot play show %q: %w", name, ErrShowNotFound)
	}
}

func (r *Registry) start(showName string, cfg Config, opts PlayOptions, startCallback func()) (*Instance, error) {
	def, err := r.Definition(showName)
	if err != nil {
		return nil, err
	}

	inst := &Instance{
		id:            r.NextID(),
		showName:      showName,
		config:        cfg,
		registry:      r,
		state:         StatePaused,
		loopsLeft:     cfg.Loops,
		startCallback: startCallback,
		stopCallback:  opts.StopCallback,
	}
	if opts.StartStep != nil {
		inst.index = def.stepIndex(*opts.StartStep)
	}

	startTime := opts.StartTime
	if startTime.IsZero() {
		startTime = r.clock.Now()
	}
	inst.lastTick = startTime

	r.logger.Debug("Starting show", "show", showName, "requested", cfg.Name, "instance", inst.id,
		"priority", cfg.Priority, "syncMs", cfg.SyncMS, "running", opts.StartRunning)

	if opts.StartRunning {
		inst.begin(startTime)
	}
	return inst, nil
}
