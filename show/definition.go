package show

import (
	"fmt"
	"time"
)

// Step is one timed unit of a show. Payload is opaque to the engine and is handed
// to the StepSink after token substitution.
type Step struct {
	Duration time.Duration `json:"duration" yaml:"duration"`
	Payload  any           `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Definition is an immutable, named sequence of steps.
type Definition struct {
	name  string
	steps []Step
}

// NewDefinition validates steps and builds a Definition. Every step must have a
// positive duration so a running show always makes progress on the clock.
func NewDefinition(name string, steps []Step) (*Definition, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is empty", ErrInvalidShowDefinition)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: show %q has no steps", ErrInvalidShowDefinition, name)
	}
	for i, step := range steps {
		if step.Duration <= 0 {
			return nil, fmt.Errorf("%w: show %q step %d has non-positive duration %s",
				ErrInvalidShowDefinition, name, i+1, step.Duration)
		}
	}

	copied := make([]Step, len(steps))
	copy(copied, steps)
	return &Definition{name: name, steps: copied}, nil
}

// Name returns the show name.
func (d *Definition) Name() string {
	return d.name
}

// Len returns the number of steps.
func (d *Definition) Len() int {
	return len(d.steps)
}

// Step returns step i (zero based).
func (d *Definition) Step(i int) Step {
	return d.steps[i]
}

// Duration returns the length of one pass through the show at speed 1.
func (d *Definition) Duration() time.Duration {
	var total time.Duration
	for _, step := range d.steps {
		total += step.Duration
	}
	return total
}

// stepIndex resolves a 1-based requested start step. Zero means the first step and
// negative values count back from the last step.
func (d *Definition) stepIndex(requested int) int {
	n := len(d.steps)
	switch {
	case requested > 0:
		return (requested - 1) % n
	case requested < 0:
		return ((requested % n) + n) % n
	default:
		return 0
	}
}
