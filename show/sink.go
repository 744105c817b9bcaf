package show

// StepContext carries one step to the output sink.
type StepContext struct {
	InstanceID uint64
	ShowName   string
	Priority   int
	StepIndex  int
	// Payload is the step payload after token substitution.
	Payload any
}

// StepSink renders steps on outputs. ApplyStep is a synchronous hand-off and
// must not block; rendering failures are the sink's own concern.
type StepSink interface {
	ApplyStep(step StepContext)
}

// StepSinkFunc adapts a function to StepSink.
type StepSinkFunc func(step StepContext)

// ApplyStep calls f.
func (f StepSinkFunc) ApplyStep(step StepContext) {
	f(step)
}

// OutputReleaser is implemented by sinks that hold per-show output state which
// must be dropped once a show stops.
type OutputReleaser interface {
	ReleaseShow(instanceID uint64, priority int)
}

// EventPoster announces configured lifecycle events. Posting is fire and forget.
type EventPoster interface {
	PostEvent(name string, attrs map[string]any)
}

// EventPosterFunc adapts a function to EventPoster.
type EventPosterFunc func(name string, attrs map[string]any)

// PostEvent calls f.
func (f EventPosterFunc) PostEvent(name string, attrs map[string]any) {
	f(name, attrs)
}

// TransitionHook observes every lifecycle transition, whether or not the show's
// config names events for it.
type TransitionHook func(inst *Instance, t Transition)

type nopSink struct{}

func (nopSink) ApplyStep(StepContext) {}

type nopPoster struct{}

func (nopPoster) PostEvent(string, map[string]any) {}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
