package show

import (
	"fmt"
	"testing"
	"time"

	"github.com/cucumber/godog"
)

// Show reconciliation BDD test context
type ReconcileBDDTestContext struct {
	clock    *ManualClock
	sink     *recordingSink
	poster   *recordingPoster
	registry *Registry
	player   *Player

	previous  *Instance
	current   *Instance
	lastError error
}

func (ctx *ReconcileBDDTestContext) resetContext() {
	ctx.clock = NewManualClock(epoch)
	ctx.sink = &recordingSink{}
	ctx.poster = &recordingPoster{}
	ctx.registry = NewRegistry(WithClock(ctx.clock), WithStepSink(ctx.sink), WithEventPoster(ctx.poster))
	ctx.player = NewPlayer(ctx.registry)
	ctx.previous = nil
	ctx.current = nil
	ctx.lastError = nil
}

func (ctx *ReconcileBDDTestContext) aShowWithSteps(name string, steps, stepMS int) error {
	ctx.resetContext()

	list := make([]Step, steps)
	for i := range list {
		list[i] = Step{Duration: time.Duration(stepMS) * time.Millisecond, Payload: i}
	}
	def, err := NewDefinition(name, list)
	if err != nil {
		return err
	}
	return ctx.registry.Register(def)
}

func (ctx *ReconcileBDDTestContext) theClockIsAt(ms int) error {
	ctx.clock.Set(epoch.Add(time.Duration(ms) * time.Millisecond))
	return nil
}

func (ctx *ReconcileBDDTestContext) theClockAdvances(ms int) error {
	ctx.player.Tick(ctx.clock.Advance(time.Duration(ms) * time.Millisecond))
	return nil
}

func (ctx *ReconcileBDDTestContext) request(name string, priority int, loops int, syncMS int, step *int) error {
	cfg, err := ctx.registry.BuildConfig(ConfigFields{
		Name:     name,
		Priority: priority,
		Loops:    &loops,
		SyncMS:   &syncMS,
		Events: EventNames{
			Advanced:  []string{name + "_advanced"},
			Looped:    []string{name + "_looped"},
			Completed: []string{name + "_completed"},
		},
	})
	if err != nil {
		return err
	}

	opts := DefaultPlayOptions()
	opts.StartStep = step
	inst, err := ctx.player.Reconcile(ctx.current, cfg, opts)
	if err != nil {
		ctx.lastError = err
		return err
	}
	ctx.previous = ctx.current
	ctx.current = inst
	return nil
}

func (ctx *ReconcileBDDTestContext) showIsPlayingWithPriority(name string, priority int) error {
	return ctx.request(name, priority, LoopForever, 0, nil)
}

func (ctx *ReconcileBDDTestContext) showIsPlayingWithPriorityAndLoops(name string, priority, loops int) error {
	return ctx.request(name, priority, loops, 0, nil)
}

func (ctx *ReconcileBDDTestContext) showIsRequestedAgain(name string, priority int) error {
	return ctx.request(name, priority, LoopForever, 0, nil)
}

func (ctx *ReconcileBDDTestContext) showIsRequestedAgainAtStep(name string, step, priority int) error {
	return ctx.request(name, priority, LoopForever, 0, &step)
}

func (ctx *ReconcileBDDTestContext) showIsRequestedAgainWithSync(name string, priority, syncMS int) error {
	return ctx.request(name, priority, LoopForever, syncMS, nil)
}

func (ctx *ReconcileBDDTestContext) theSameInstanceShouldStillBePlaying() error {
	if ctx.current != ctx.previous {
		return fmt.Errorf("expected instance %d to be reused, got %d", ctx.previous.ID(), ctx.current.ID())
	}
	if ctx.current.Stopped() {
		return fmt.Errorf("instance %d is stopped", ctx.current.ID())
	}
	return nil
}

func (ctx *ReconcileBDDTestContext) aNewInstanceShouldBePlaying() error {
	if ctx.current == ctx.previous {
		return fmt.Errorf("expected a new instance, instance %d was reused", ctx.current.ID())
	}
	if ctx.current.Stopped() {
		return fmt.Errorf("new instance %d is stopped", ctx.current.ID())
	}
	return nil
}

func (ctx *ReconcileBDDTestContext) theCurrentStepShouldBe(step int) error {
	idx, ok := ctx.current.CurrentStepIndex()
	if !ok {
		return fmt.Errorf("instance %d has not applied a step yet", ctx.current.ID())
	}
	if idx+1 != step {
		return fmt.Errorf("expected step %d, got %d", step, idx+1)
	}
	return nil
}

func (ctx *ReconcileBDDTestContext) stepsShouldHaveBeenApplied(n int) error {
	if got := len(ctx.sink.indexes()); got != n {
		return fmt.Errorf("expected %d applied steps, got %d", n, got)
	}
	return nil
}

func (ctx *ReconcileBDDTestContext) eventShouldHaveBeenPosted(name string, n int) error {
	if got := ctx.poster.count(name); got != n {
		return fmt.Errorf("expected %q posted %d times, got %d", name, n, got)
	}
	return nil
}

func expectState(label string, inst *Instance, want State) error {
	if inst == nil {
		return fmt.Errorf("no %s instance", label)
	}
	if inst.State() != want {
		return fmt.Errorf("expected %s instance to be %s, got %s", label, want, inst.State())
	}
	return nil
}

func (ctx *ReconcileBDDTestContext) thePreviousInstanceShouldBeStopped() error {
	return expectState("previous", ctx.previous, StateStopped)
}

func (ctx *ReconcileBDDTestContext) thePreviousInstanceShouldBeRunning() error {
	return expectState("previous", ctx.previous, StateRunning)
}

func (ctx *ReconcileBDDTestContext) theNewInstanceShouldBePending() error {
	return expectState("new", ctx.current, StatePending)
}

func (ctx *ReconcileBDDTestContext) theNewInstanceShouldBeRunning() error {
	return expectState("new", ctx.current, StateRunning)
}

func (ctx *ReconcileBDDTestContext) theInstanceShouldBeStopped() error {
	return expectState("current", ctx.current, StateStopped)
}

// TestShowReconcileBDD runs the BDD tests for show reconciliation
func TestShowReconcileBDD(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: func(s *godog.ScenarioContext) {
			ctx := &ReconcileBDDTestContext{}

			// Background
			s.Given(`^a show "([^"]*)" with (\d+) steps of (\d+) ms$`, ctx.aShowWithSteps)
			s.Given(`^the clock is at (\d+) ms$`, ctx.theClockIsAt)

			// Requests
			s.Given(`^show "([^"]*)" is playing with priority (\d+)$`, ctx.showIsPlayingWithPriority)
			s.Given(`^show "([^"]*)" is playing with priority (\d+) and (\d+) loops?$`, ctx.showIsPlayingWithPriorityAndLoops)
			s.When(`^show "([^"]*)" is requested again with priority (\d+)$`, ctx.showIsRequestedAgain)
			s.When(`^show "([^"]*)" is requested again at step (\d+) with priority (\d+)$`, ctx.showIsRequestedAgainAtStep)
			s.When(`^show "([^"]*)" is requested again with priority (\d+) and sync (\d+) ms$`, ctx.showIsRequestedAgainWithSync)
			s.When(`^the clock advances (\d+) ms$`, ctx.theClockAdvances)

			// Outcomes
			s.Then(`^the same instance should still be playing$`, ctx.theSameInstanceShouldStillBePlaying)
			s.Then(`^a new instance should be playing$`, ctx.aNewInstanceShouldBePlaying)
			s.Then(`^the current step should be (\d+)$`, ctx.theCurrentStepShouldBe)
			s.Then(`^(\d+) steps should have been applied$`, ctx.stepsShouldHaveBeenApplied)
			s.Then(`^the "([^"]*)" event should have been posted (\d+) times?$`, ctx.eventShouldHaveBeenPosted)
			s.Then(`^the previous instance should be stopped$`, ctx.thePreviousInstanceShouldBeStopped)
			s.Then(`^the previous instance should be running$`, ctx.thePreviousInstanceShouldBeRunning)
			s.Then(`^the new instance should be pending$`, ctx.theNewInstanceShouldBePending)
			s.Then(`^the new instance should be running$`, ctx.theNewInstanceShouldBeRunning)
			s.Then(`^the instance should be stopped$`, ctx.theInstanceShouldBeStopped)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/show_reconcile.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
