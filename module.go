// Package showcontrol provides show playback and synchronization for the modular framework.
//
// A show is a named, timed sequence of output steps. The module loads show and
// show pool definitions from files, plays them into named slots with a priority,
// keeps every running show advancing on a shared heartbeat, and decides on each
// play request whether the show already running in that slot can be reused,
// advanced by a step, or must be replaced.
//
// # Features
//
// The show control module provides the following capabilities:
//   - Show and show pool definitions loaded from YAML, TOML or JSON files
//   - Prioritized, token-substituted step output through a pluggable StepSink
//   - Synchronized starts on shared time boundaries
//   - Replace-or-advance reconciliation of repeated play requests
//   - Configured lifecycle events and typed module events as CloudEvents
//   - Cron-triggered plays
//
// # Service Registration
//
// The module registers itself as a service for dependency injection:
//
//	var shows *showcontrol.ShowControlModule
//	app.GetService(showcontrol.ServiceName, &shows)
//
//	// Play the attract show into the "attract" slot, adding a mode priority of 100
//	shows.PlayFromSettings("attract", map[string]any{"show": "attract", "priority": 10}, 100)
//
// # Usage Examples
//
// Registering with a custom output sink:
//
//	app.RegisterModule(showcontrol.NewModule(
//	    showcontrol.WithStepSink(show.StepSinkFunc(func(step show.StepContext) {
//	        lights.Apply(step.Priority, step.Payload)
//	    })),
//	))
package showcontrol

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GoCodeAlone/modular"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/GoCodeAlone/showcontrol/loader"
	"github.com/GoCodeAlone/showcontrol/show"
)

// ModuleName is the unique identifier for the show control module.
const ModuleName = "showcontrol"

// ServiceName is the name of the service provided by this module.
const ServiceName = "showcontrol.provider"

// ShowControlModule plays shows for the rest of the application.
//
// The module implements the following interfaces:
//   - modular.Module: Basic module lifecycle
//   - modular.Configurable: Configuration management
//   - modular.ServiceAware: Service dependency management
//   - modular.Startable: Startup logic
//   - modular.Stoppable: Shutdown logic
//   - modular.ObservableModule: CloudEvents emission
type ShowControlModule struct {
	name     string
	config   *Config
	logger   modular.Logger
	sink     show.StepSink
	clock    show.Clock
	registry *show.Registry
	player   *show.Player
	subject  modular.Subject

	cron        *cron.Cron
	scheduleMu  sync.Mutex
	scheduleIDs map[string]cron.EntryID

	slotsMu sync.Mutex
	slots   map[string]*show.Instance

	filesMu     sync.Mutex
	fileNames   map[string][]string
	watcher     *fsnotify.Watcher
	watcherDone chan struct{}

	running     bool
	runningLock sync.Mutex
}

// ModuleOption configures the module at construction.
type ModuleOption func(*ShowControlModule)

// WithStepSink sets where show steps are rendered.
func WithStepSink(sink show.StepSink) ModuleOption {
	return func(m *ShowControlModule) {
		if sink != nil {
			m.sink = sink
		}
	}
}

// WithClock replaces the wall clock, mainly for tests and simulations.
func WithClock(clock show.Clock) ModuleOption {
	return func(m *ShowControlModule) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewModule creates a new instance of the show control module.
//
// Example:
//
//	app.RegisterModule(showcontrol.NewModule())
func NewModule(opts ...ModuleOption) modular.Module {
	m := &ShowControlModule{
		name:        ModuleName,
		clock:       show.SystemClock{},
		scheduleIDs: make(map[string]cron.EntryID),
		slots:       make(map[string]*show.Instance),
		fileNames:   make(map[string][]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the unique identifier for this module.
func (m *ShowControlModule) Name() string {
	return m.name
}

// RegisterConfig registers the module's configuration structure.
//
// Default configuration:
//   - DefaultShowSyncMS: 0 (start immediately)
//   - TickInterval: 10ms
//   - ShutdownTimeout: 5s
//   - CatchUpPolicy: "apply_all"
//   - EventSource: "showcontrol"
func (m *ShowControlModule) RegisterConfig(app modular.Application) error {
	// If a non-nil config provider is already registered (e.g., tests), don't override it
	if existing, err := app.GetConfigSection(m.Name()); err == nil && existing != nil {
		return nil
	}

	defaultConfig := &Config{
		DefaultShowSyncMS: 0,
		TickInterval:      10 * time.Millisecond,
		ShutdownTimeout:   5 * time.Second,
		CatchUpPolicy:     string(show.CatchUpApplyAll),
		EventSource:       ModuleName,
	}

	app.RegisterConfigSection(m.Name(), modular.NewStdConfigProvider(defaultConfig))
	return nil
}

// Init builds the registry, loads the configured show files and registers the
// configured schedules. Duplicate show or pool names abort initialization.
func (m *ShowControlModule) Init(app modular.Application) error {
	cfg, err := app.GetConfigSection(m.name)
	if err != nil {
		return fmt.Errorf("failed to get config section '%s': %w", m.name, err)
	}

	m.config = cfg.GetConfig().(*Config)
	m.logger = app.Logger()

	if err := m.config.Validate(); err != nil {
		return fmt.Errorf("invalid %s configuration: %w", m.name, err)
	}

	m.emitEvent(context.Background(), EventTypeConfigLoaded, map[string]interface{}{
		"default_show_sync_ms": m.config.DefaultShowSyncMS,
		"tick_interval":        m.config.TickInterval.String(),
		"catch_up_policy":      m.config.CatchUpPolicy,
		"show_files":           len(m.config.ShowFiles),
		"schedules":            len(m.config.Schedules),
	})

	m.registry = show.NewRegistry(
		show.WithStepSink(m.sink),
		show.WithClock(m.clock),
		show.WithEventPoster(show.EventPosterFunc(m.postShowEvent)),
		show.WithLogger(m.logger),
		show.WithDefaultSyncMS(m.config.DefaultShowSyncMS),
		show.WithCatchUpPolicy(show.CatchUpPolicy(m.config.CatchUpPolicy)),
		show.WithTransitionHook(m.onTransition),
	)

	for _, path := range m.config.ShowFiles {
		if err := m.LoadShowFile(path); err != nil {
			return err
		}
	}

	m.player = show.NewPlayer(m.registry,
		show.WithTickInterval(m.config.TickInterval),
		show.WithPlayerLogger(m.logger),
	)

	m.cron = cron.New()
	for _, schedule := range m.config.Schedules {
		if err := m.AddSchedule(schedule); err != nil {
			return err
		}
	}

	m.logger.Info("Show control module initialized", "shows", len(m.registry.Names()))
	return nil
}

// LoadShowFile loads a show file and registers its shows and pools.
func (m *ShowControlModule) LoadShowFile(path string) error {
	if m.registry == nil {
		return ErrModuleNotInitialized
	}

	f, err := loader.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load show file: %w", err)
	}
	m.filesMu.Lock()
	defer m.filesMu.Unlock()
	if err := m.register(f); err != nil {
		return fmt.Errorf("failed to register shows from %s: %w", path, err)
	}
	m.fileNames[path] = fileNames(f)

	m.logger.Info("Loaded show file", "file", path, "shows", len(f.Shows), "pools", len(f.Pools))
	m.emitEvent(context.Background(), EventTypeShowsLoaded, map[string]interface{}{
		"file":  path,
		"shows": len(f.Shows),
		"pools": len(f.Pools),
	})
	return nil
}

// Start starts the heartbeat and the schedules.
func (m *ShowControlModule) Start(ctx context.Context) error {
	m.logger.Info("Starting show control module")

	m.runningLock.Lock()
	defer m.runningLock.Unlock()

	if m.running {
		return nil
	}

	if err := m.player.Start(ctx); err != nil {
		return err
	}
	if m.config.WatchShowFiles && len(m.config.ShowFiles) > 0 {
		if err := m.startWatcher(); err != nil {
			_ = m.player.Stop(ctx)
			return err
		}
	}
	m.cron.Start()
	m.running = true

	m.emitEvent(ctx, EventTypeModuleStarted, map[string]interface{}{
		"tick_interval": m.config.TickInterval.String(),
		"schedules":     len(m.cron.Entries()),
	})

	m.logger.Info("Show control started successfully")
	return nil
}

// Stop halts the schedules and the heartbeat, then stops every running show so
// outputs are released.
func (m *ShowControlModule) Stop(ctx context.Context) error {
	m.logger.Info("Stopping show control module")

	m.runningLock.Lock()
	defer m.runningLock.Unlock()

	if !m.running {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, m.config.ShutdownTimeout)
	defer cancel()

	m.stopWatcher()
	cronCtx := m.cron.Stop()
	err := m.player.Stop(shutdownCtx)

	select {
	case <-cronCtx.Done():
	case <-shutdownCtx.Done():
		m.logger.Warn("Scheduled show plays did not finish before shutdown")
	}

	stopped := m.StopAll()

	if err != nil {
		return err
	}
	m.running = false

	m.emitEvent(ctx, EventTypeModuleStopped, map[string]interface{}{
		"shows_stopped": stopped,
	})

	m.logger.Info("Show control stopped")
	return nil
}

// Dependencies returns the names of modules this module depends on
func (m *ShowControlModule) Dependencies() []string {
	return nil
}

// ProvidesServices declares services provided by this module
func (m *ShowControlModule) ProvidesServices() []modular.ServiceProvider {
	return []modular.ServiceProvider{
		{
			Name:        ServiceName,
			Description: "Show playback and synchronization service",
			Instance:    m,
		},
	}
}

// RequiresServices declares services required by this module
func (m *ShowControlModule) RequiresServices() []modular.ServiceDependency {
	return nil
}

// Constructor provides a dependency injection constructor for the module
func (m *ShowControlModule) Constructor() modular.ModuleConstructor {
	return func(app modular.Application, services map[string]any) (modular.Module, error) {
		return m, nil
	}
}

// Registry returns the show registry. It is nil before Init.
func (m *ShowControlModule) Registry() *show.Registry {
	return m.registry
}

// Player returns the heartbeat that drives the module's shows. It is nil before Init.
func (m *ShowControlModule) Player() *show.Player {
	return m.player
}

// postShowEvent emits a configured lifecycle event name as a CloudEvent of that type.
func (m *ShowControlModule) postShowEvent(name string, attrs map[string]any) {
	m.emitEvent(context.Background(), name, attrs)
}

// onTransition mirrors every show transition as a typed module event.
func (m *ShowControlModule) onTransition(inst *show.Instance, t show.Transition) {
	eventType, ok := transitionEventTypes[t]
	if !ok {
		return
	}
	data := map[string]interface{}{
		"instance_id": inst.ID(),
		"show_name":   inst.ShowName(),
		"config_name": inst.Config().Name,
		"priority":    inst.Config().Priority,
		"state":       inst.State().String(),
	}
	if idx, ok := inst.CurrentStepIndex(); ok {
		data["step"] = idx + 1
	}
	m.emitEvent(context.Background(), eventType, data)
}

// RegisterObservers implements the ObservableModule interface.
func (m *ShowControlModule) RegisterObservers(subject modular.Subject) error {
	m.subject = subject
	return nil
}

// EmitEvent implements the ObservableModule interface.
func (m *ShowControlModule) EmitEvent(ctx context.Context, event cloudevents.Event) error {
	if m.subject == nil {
		return ErrNoSubjectForEventEmission
	}
	if err := m.subject.NotifyObservers(ctx, event); err != nil {
		return fmt.Errorf("failed to notify observers: %w", err)
	}
	return nil
}

// emitEvent creates and emits a CloudEvent. Without a subject the event is
// dropped silently so non-observable applications run cleanly.
func (m *ShowControlModule) emitEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if m.subject == nil {
		return
	}

	source := ModuleName
	if m.config != nil && m.config.EventSource != "" {
		source = m.config.EventSource
	}
	event := modular.NewCloudEvent(eventType, source, data, nil)

	if emitErr := m.EmitEvent(ctx, event); emitErr != nil {
		if errors.Is(emitErr, ErrNoSubjectForEventEmission) {
			return
		}
		if m.logger != nil {
			m.logger.Warn("Failed to emit show control event", "eventType", eventType, "error", emitErr)
		}
	}
}

// GetRegisteredEventTypes implements the ObservableModule interface.
// Configured lifecycle event names are emitted too but are not listed here.
func (m *ShowControlModule) GetRegisteredEventTypes() []string {
	return []string{
		EventTypeConfigLoaded,
		EventTypeShowsLoaded,
		EventTypeShowPlayed,
		EventTypeShowStopped,
		EventTypeShowLooped,
		EventTypeShowPaused,
		EventTypeShowResumed,
		EventTypeShowAdvanced,
		EventTypeShowSteppedBack,
		EventTypeShowUpdated,
		EventTypeShowCompleted,
		EventTypeScheduleTriggered,
		EventTypeModuleStarted,
		EventTypeModuleStopped,
		EventTypeError,
	}
}
