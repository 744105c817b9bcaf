package show

import (
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"

	"github.com/golobby/cast"
)

// LoopForever is the Loops value of a show that repeats until stopped.
const LoopForever = -1

// Transition names a lifecycle transition of a running show.
type Transition string

const (
	TransitionPlayed      Transition = "played"
	TransitionStopped     Transition = "stopped"
	TransitionLooped      Transition = "looped"
	TransitionPaused      Transition = "paused"
	TransitionResumed     Transition = "resumed"
	TransitionAdvanced    Transition = "advanced"
	TransitionSteppedBack Transition = "stepped_back"
	TransitionUpdated     Transition = "updated"
	TransitionCompleted   Transition = "completed"
)

// EventNames holds the event names announced for each lifecycle transition.
// An empty list leaves the transition silent.
type EventNames struct {
	Played      []string `json:"played,omitempty" yaml:"played,omitempty"`
	Stopped     []string `json:"stopped,omitempty" yaml:"stopped,omitempty"`
	Looped      []string `json:"looped,omitempty" yaml:"looped,omitempty"`
	Paused      []string `json:"paused,omitempty" yaml:"paused,omitempty"`
	Resumed     []string `json:"resumed,omitempty" yaml:"resumed,omitempty"`
	Advanced    []string `json:"advanced,omitempty" yaml:"advanced,omitempty"`
	SteppedBack []string `json:"steppedBack,omitempty" yaml:"steppedBack,omitempty"`
	Updated     []string `json:"updated,omitempty" yaml:"updated,omitempty"`
	Completed   []string `json:"completed,omitempty" yaml:"completed,omitempty"`
}

// For returns the event names configured for t.
func (e EventNames) For(t Transition) []string {
	switch t {
	case TransitionPlayed:
		return e.Played
	case TransitionStopped:
		return e.Stopped
	case TransitionLooped:
		return e.Looped
	case TransitionPaused:
		return e.Paused
	case TransitionResumed:
		return e.Resumed
	case TransitionAdvanced:
		return e.Advanced
	case TransitionSteppedBack:
		return e.SteppedBack
	case TransitionUpdated:
		return e.Updated
	case TransitionCompleted:
		return e.Completed
	default:
		return nil
	}
}

// Equal reports whether both sets name the same events in the same order.
func (e EventNames) Equal(o EventNames) bool {
	return slices.Equal(e.Played, o.Played) &&
		slices.Equal(e.Stopped, o.Stopped) &&
		slices.Equal(e.Looped, o.Looped) &&
		slices.Equal(e.Paused, o.Paused) &&
		slices.Equal(e.Resumed, o.Resumed) &&
		slices.Equal(e.Advanced, o.Advanced) &&
		slices.Equal(e.SteppedBack, o.SteppedBack) &&
		slices.Equal(e.Updated, o.Updated) &&
		slices.Equal(e.Completed, o.Completed)
}

// Config describes how a show is played. It is a value: build it once per play
// request with Registry.BuildConfig and never mutate it afterwards.
type Config struct {
	// Name is the show or pool to play.
	Name string
	// Priority decides contention for outputs; higher wins.
	Priority int
	// Speed multiplies the passage of time through each step.
	Speed float64
	// Loops is the number of extra passes after the first; LoopForever repeats.
	Loops int
	// SyncMS aligns the start to the next multiple of this many milliseconds; 0 starts at once.
	SyncMS int
	// ManualAdvance stops the clock from moving the show; only Advance and StepBack do.
	ManualAdvance bool
	// Tokens substitutes "(name)" placeholders in step payloads.
	Tokens map[string]string
	// Events lists the events announced on lifecycle transitions.
	Events EventNames
}

// Equal reports whether every field of c and o is equal.
func (c Config) Equal(o Config) bool {
	return c.Name == o.Name &&
		c.Priority == o.Priority &&
		c.Speed == o.Speed &&
		c.Loops == o.Loops &&
		c.SyncMS == o.SyncMS &&
		c.ManualAdvance == o.ManualAdvance &&
		maps.Equal(c.Tokens, o.Tokens) &&
		c.Events.Equal(o.Events)
}

// ConfigFields is the raw, optional field set a Config is built from. Nil pointers
// take the documented defaults.
type ConfigFields struct {
	Name     string
	Priority int
	// Speed defaults to 1.
	Speed *float64
	// Loops defaults to LoopForever.
	Loops *int
	// SyncMS defaults to the registry's default sync period.
	SyncMS        *int
	ManualAdvance bool
	Tokens        map[string]string
	Events        EventNames
}

func buildConfig(f ConfigFields, defaultSyncMS int) (Config, error) {
	cfg := Config{
		Name:          f.Name,
		Priority:      f.Priority,
		Speed:         1.0,
		Loops:         LoopForever,
		SyncMS:        defaultSyncMS,
		ManualAdvance: f.ManualAdvance,
		Events:        f.Events,
	}
	if f.Speed != nil {
		cfg.Speed = *f.Speed
	}
	if f.Loops != nil {
		cfg.Loops = *f.Loops
	}
	if f.SyncMS != nil {
		cfg.SyncMS = *f.SyncMS
	}
	if len(f.Tokens) > 0 {
		cfg.Tokens = maps.Clone(f.Tokens)
	}

	switch {
	case cfg.Name == "":
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidShowConfig, ErrMissingShowName)
	case !(cfg.Speed > 0) || math.IsInf(cfg.Speed, 0):
		return Config{}, fmt.Errorf("%w: %w: got %v", ErrInvalidShowConfig, ErrInvalidSpeed, cfg.Speed)
	case cfg.Loops < LoopForever:
		return Config{}, fmt.Errorf("%w: %w: got %d", ErrInvalidShowConfig, ErrInvalidLoops, cfg.Loops)
	case cfg.SyncMS < 0:
		return Config{}, fmt.Errorf("%w: %w: got %d", ErrInvalidShowConfig, ErrInvalidSyncMS, cfg.SyncMS)
	}
	return cfg, nil
}

// fieldsFromMap converts show_player style settings into ConfigFields. Scalars are
// coerced from their string form, so "10" and 10 are both accepted as a priority.
// Unknown keys are rejected rather than ignored.
func fieldsFromMap(raw map[string]any) (ConfigFields, error) {
	var f ConfigFields
	for key, value := range raw {
		if value == nil {
			continue
		}
		var err error
		switch key {
		case "show", "name":
			f.Name, err = Coerce[string](key, value)
		case "priority":
			f.Priority, err = Coerce[int](key, value)
		case "speed":
			var speed float64
			speed, err = Coerce[float64](key, value)
			f.Speed = &speed
		case "loops":
			var loops int
			loops, err = Coerce[int](key, value)
			f.Loops = &loops
		case "sync_ms":
			var syncMS int
			syncMS, err = Coerce[int](key, value)
			f.SyncMS = &syncMS
		case "manual_advance":
			f.ManualAdvance, err = Coerce[bool](key, value)
		case "show_tokens":
			f.Tokens, err = tokensFromValue(value)
		case "events_when_played":
			f.Events.Played, err = eventList(key, value)
		case "events_when_stopped":
			f.Events.Stopped, err = eventList(key, value)
		case "events_when_looped":
			f.Events.Looped, err = eventList(key, value)
		case "events_when_paused":
			f.Events.Paused, err = eventList(key, value)
		case "events_when_resumed":
			f.Events.Resumed, err = eventList(key, value)
		case "events_when_advanced":
			f.Events.Advanced, err = eventList(key, value)
		case "events_when_stepped_back":
			f.Events.SteppedBack, err = eventList(key, value)
		case "events_when_updated":
			f.Events.Updated, err = eventList(key, value)
		case "events_when_completed":
			f.Events.Completed, err = eventList(key, value)
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownConfigField, key)
		}
		if err != nil {
			return ConfigFields{}, fmt.Errorf("%w: %w", ErrInvalidShowConfig, err)
		}
	}
	return f, nil
}

// Coerce converts a show_player style setting to T. Values already of type T are
// returned as is; anything else is converted from its string form.
func Coerce[T any](key string, value any) (T, error) {
	var zero T
	if v, ok := value.(T); ok {
		return v, nil
	}
	converted, err := cast.FromType(fmt.Sprint(value), reflect.TypeOf(zero))
	if err != nil {
		return zero, fmt.Errorf("%w: %s=%v: %w", ErrConfigFieldType, key, value, err)
	}
	v, ok := converted.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s=%v", ErrConfigFieldType, key, value)
	}
	return v, nil
}

func tokensFromValue(value any) (map[string]string, error) {
	switch t := value.(type) {
	case map[string]string:
		return maps.Clone(t), nil
	case map[string]any:
		out := make(map[string]string, len(t))
		for k, v := range t {
			out[k] = fmt.Sprint(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: show_tokens must be a mapping, got %T", ErrConfigFieldType, value)
	}
}

func eventList(key string, value any) ([]string, error) {
	switch t := value.(type) {
	case string:
		if t == "" {
			return nil, nil
		}
		return []string{t}, nil
	case []string:
		return slices.Clone(t), nil
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s entries must be strings, got %T", ErrConfigFieldType, key, v)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a string or list, got %T", ErrConfigFieldType, key, value)
	}
}
