package show

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/GoCodeAlone/modular"
)

// Player drives a set of instances from a single clock. Every method that
// touches instances holds one mutex, so ticks, play requests and Do callbacks
// never interleave.
//
// Stop callbacks, start callbacks, sinks, posters and transition hooks run while
// that mutex is held and must not call back into the Player.
type Player struct {
	registry     *Registry
	logger       modular.Logger
	tickInterval time.Duration

	mu        sync.Mutex
	instances []*Instance

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	isStarted   bool
	playerMutex sync.Mutex
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithTickInterval sets how often the background loop advances instances.
func WithTickInterval(interval time.Duration) PlayerOption {
	return func(p *Player) {
		if interval > 0 {
			p.tickInterval = interval
		}
	}
}

// WithPlayerLogger sets the logger.
func WithPlayerLogger(logger modular.Logger) PlayerOption {
	return func(p *Player) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPlayer creates a player over reg.
func NewPlayer(reg *Registry, opts ...PlayerOption) *Player {
	p := &Player{
		registry:     reg,
		logger:       reg.logger,
		tickInterval: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry returns the registry instances are created from.
func (p *Player) Registry() *Registry {
	return p.registry
}

// Play starts cfg and tracks the new instance.
func (p *Player) Play(cfg Config, opts PlayOptions) (*Instance, error) {
	return p.Reconcile(nil, cfg, opts)
}

// Reconcile runs Registry.Reconcile and tracks the instance it returns.
func (p *Player) Reconcile(existing *Instance, cfg Config, opts PlayOptions) (*Instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	inst, err := p.registry.Reconcile(existing, cfg, opts)
	if err != nil {
		return nil, err
	}
	p.trackLocked(inst)
	return inst, nil
}

// Track adds an instance created directly on the registry.
func (p *Player) Track(inst *Instance) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trackLocked(inst)
}

func (p *Player) trackLocked(inst *Instance) {
	if inst == nil || inst.Stopped() || slices.Contains(p.instances, inst) {
		return
	}
	p.instances = append(p.instances, inst)
}

// Do runs fn while holding the player lock. Use it to pause, resume, advance or
// stop tracked instances from other goroutines.
func (p *Player) Do(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn()
}

// Instances returns the tracked instances that have not stopped, in the order
// they were started.
func (p *Player) Instances() []*Instance {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*Instance, 0, len(p.instances))
	for _, inst := range p.instances {
		if !inst.Stopped() {
			out = append(out, inst)
		}
	}
	return out
}

// Tick advances every tracked instance to now, in start order, then forgets the
// instances that stopped.
func (p *Player) Tick(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Snapshot: callbacks may stop instances but never add to the slice.
	for _, inst := range slices.Clone(p.instances) {
		inst.tick(now)
	}
	p.instances = slices.DeleteFunc(p.instances, (*Instance).Stopped)
}

// StopAll stops every tracked instance.
func (p *Player) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, inst := range slices.Clone(p.instances) {
		inst.Stop()
	}
	p.instances = nil
}

// Start launches the background tick loop.
func (p *Player) Start(ctx context.Context) error {
	p.playerMutex.Lock()
	defer p.playerMutex.Unlock()

	if p.isStarted {
		return nil
	}

	p.logger.Info("Starting show player", "tickInterval", p.tickInterval)

	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.isStarted = true
	return nil
}

// Stop halts the tick loop. Instances are left as they are.
func (p *Player) Stop(ctx context.Context) error {
	p.playerMutex.Lock()
	defer p.playerMutex.Unlock()

	if !p.isStarted {
		return nil
	}

	p.logger.Info("Stopping show player")

	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Show player stopped gracefully")
	case <-ctx.Done():
		p.logger.Warn("Show player shutdown timed out")
		return fmt.Errorf("%w: %w", ErrPlayerStopTimeout, ctx.Err())
	}

	p.isStarted = false
	return nil
}

func (p *Player) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.Tick(p.registry.clock.Now())
		}
	}
}
