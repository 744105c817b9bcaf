package showcontrol

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/GoCodeAlone/showcontrol/show"
)

// Config defines the configuration for the show control module.
//
// Example YAML configuration:
//
//	showcontrol:
//	  defaultShowSyncMS: 0
//	  tickInterval: 10ms
//	  catchUpPolicy: apply_all
//	  showFiles:
//	    - shows/attract.yaml
//	  schedules:
//	    - name: nightly-attract
//	      cron: "0 22 * * *"
//	      slot: attract
//	      show:
//	        show: attract
//	        priority: 10
type Config struct {
	// DefaultShowSyncMS is the sync period used by plays that do not set sync_ms.
	DefaultShowSyncMS int `json:"defaultShowSyncMS" yaml:"defaultShowSyncMS" toml:"defaultShowSyncMS" env:"DEFAULT_SHOW_SYNC_MS" default:"0" desc:"Default show sync period in milliseconds"`

	// TickInterval is how often running shows are advanced.
	TickInterval time.Duration `json:"tickInterval" yaml:"tickInterval" toml:"tickInterval" env:"TICK_INTERVAL" default:"10ms" desc:"Show heartbeat interval"`

	// ShutdownTimeout bounds how long Stop waits for the heartbeat to finish.
	ShutdownTimeout time.Duration `json:"shutdownTimeout" yaml:"shutdownTimeout" toml:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT" default:"5s" desc:"Graceful shutdown timeout"`

	// CatchUpPolicy controls ticks that cross several steps: apply_all or skip_ahead.
	CatchUpPolicy string `json:"catchUpPolicy" yaml:"catchUpPolicy" toml:"catchUpPolicy" env:"CATCH_UP_POLICY" default:"apply_all" desc:"Step catch-up policy (apply_all, skip_ahead)"`

	// ShowFiles are YAML, TOML or JSON show files loaded at Init.
	ShowFiles []string `json:"showFiles" yaml:"showFiles" toml:"showFiles" desc:"Show files to load"`

	// WatchShowFiles reloads a show file when it changes on disk.
	WatchShowFiles bool `json:"watchShowFiles" yaml:"watchShowFiles" toml:"watchShowFiles" env:"WATCH_SHOW_FILES" default:"false" desc:"Reload show files when they change"`

	// Schedules play shows on cron expressions.
	Schedules []ScheduleConfig `json:"schedules" yaml:"schedules" toml:"schedules" desc:"Cron-triggered show plays"`

	// EventSource is the CloudEvents source of emitted events.
	EventSource string `json:"eventSource" yaml:"eventSource" toml:"eventSource" env:"EVENT_SOURCE" default:"showcontrol" desc:"CloudEvents source"`
}

// ScheduleConfig plays a show into a slot whenever its cron expression fires.
type ScheduleConfig struct {
	// Name identifies the schedule in logs and events.
	Name string `json:"name" yaml:"name" toml:"name"`

	// Cron is a standard five-field cron expression or a descriptor such as "@every 1h".
	Cron string `json:"cron" yaml:"cron" toml:"cron"`

	// Slot receives the show; a later play into the same slot reconciles against it.
	Slot string `json:"slot" yaml:"slot" toml:"slot"`

	// Show holds show_player style settings (show, priority, loops, start_step, ...).
	Show map[string]any `json:"show" yaml:"show" toml:"show"`
}

// Validate implements the ConfigValidator interface for Config.
func (c *Config) Validate() error {
	if c.DefaultShowSyncMS < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidDefaultSyncMS, c.DefaultShowSyncMS)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidTickInterval, c.TickInterval)
	}
	switch show.CatchUpPolicy(c.CatchUpPolicy) {
	case show.CatchUpApplyAll, show.CatchUpSkipAhead:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCatchUpPolicy, c.CatchUpPolicy)
	}
	for i, s := range c.Schedules {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("schedule %d: %w", i+1, err)
		}
	}
	return nil
}

// Validate checks that the schedule names a slot and a show and that its cron
// expression parses.
func (s *ScheduleConfig) Validate() error {
	if s.Slot == "" {
		return fmt.Errorf("%w: %s has no slot", ErrInvalidSchedule, s.Name)
	}
	if s.Show == nil {
		return fmt.Errorf("%w: %s has no show settings", ErrInvalidSchedule, s.Name)
	}
	if _, err := cron.ParseStandard(s.Cron); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidSchedule, s.Name, err)
	}
	return nil
}
