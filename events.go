package showcontrol

import (
	"github.com/GoCodeAlone/showcontrol/show"
)

// Event type constants for show control module events.
// Following CloudEvents specification reverse domain notation.
const (
	// Configuration events
	EventTypeConfigLoaded = "com.modular.showcontrol.config.loaded"
	EventTypeShowsLoaded  = "com.modular.showcontrol.shows.loaded"

	// Show lifecycle events
	EventTypeShowPlayed      = "com.modular.showcontrol.show.played"
	EventTypeShowStopped     = "com.modular.showcontrol.show.stopped"
	EventTypeShowLooped      = "com.modular.showcontrol.show.looped"
	EventTypeShowPaused      = "com.modular.showcontrol.show.paused"
	EventTypeShowResumed     = "com.modular.showcontrol.show.resumed"
	EventTypeShowAdvanced    = "com.modular.showcontrol.show.advanced"
	EventTypeShowSteppedBack = "com.modular.showcontrol.show.stepped_back"
	EventTypeShowUpdated     = "com.modular.showcontrol.show.updated"
	EventTypeShowCompleted   = "com.modular.showcontrol.show.completed"

	// Schedule events
	EventTypeScheduleTriggered = "com.modular.showcontrol.schedule.triggered"

	// Module lifecycle events
	EventTypeModuleStarted = "com.modular.showcontrol.module.started"
	EventTypeModuleStopped = "com.modular.showcontrol.module.stopped"

	// Error events
	EventTypeError = "com.modular.showcontrol.error"
)

var transitionEventTypes = map[show.Transition]string{
	show.TransitionPlayed:      EventTypeShowPlayed,
	show.TransitionStopped:     EventTypeShowStopped,
	show.TransitionLooped:      EventTypeShowLooped,
	show.TransitionPaused:      EventTypeShowPaused,
	show.TransitionResumed:     EventTypeShowResumed,
	show.TransitionAdvanced:    EventTypeShowAdvanced,
	show.TransitionSteppedBack: EventTypeShowSteppedBack,
	show.TransitionUpdated:     EventTypeShowUpdated,
	show.TransitionCompleted:   EventTypeShowCompleted,
}
