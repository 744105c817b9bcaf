package showcontrol

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// AddSchedule registers a cron-triggered play. Schedules added before Start fire
// once the module starts; a schedule with an existing name replaces it.
func (m *ShowControlModule) AddSchedule(schedule ScheduleConfig) error {
	if m.cron == nil {
		return ErrModuleNotInitialized
	}
	if err := schedule.Validate(); err != nil {
		return err
	}
	if schedule.Name == "" {
		schedule.Name = schedule.Slot
	}

	m.scheduleMu.Lock()
	defer m.scheduleMu.Unlock()

	if id, ok := m.scheduleIDs[schedule.Name]; ok {
		m.cron.Remove(id)
	}

	id, err := m.cron.AddFunc(schedule.Cron, func() { m.runSchedule(schedule) })
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidSchedule, schedule.Name, err)
	}
	m.scheduleIDs[schedule.Name] = id

	m.logger.Debug("Registered show schedule", "schedule", schedule.Name, "cron", schedule.Cron, "slot", schedule.Slot)
	return nil
}

// RemoveSchedule unregisters a schedule by name.
func (m *ShowControlModule) RemoveSchedule(name string) bool {
	if m.cron == nil {
		return false
	}

	m.scheduleMu.Lock()
	defer m.scheduleMu.Unlock()

	id, ok := m.scheduleIDs[name]
	if !ok {
		return false
	}
	m.cron.Remove(id)
	delete(m.scheduleIDs, name)
	return true
}

// Schedules returns the names of the registered schedules, sorted.
func (m *ShowControlModule) Schedules() []string {
	m.scheduleMu.Lock()
	defer m.scheduleMu.Unlock()

	names := make([]string, 0, len(m.scheduleIDs))
	for name := range m.scheduleIDs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (m *ShowControlModule) runSchedule(schedule ScheduleConfig) {
	runID := uuid.New().String()
	data := map[string]interface{}{
		"run_id":   runID,
		"schedule": schedule.Name,
		"slot":     schedule.Slot,
	}

	inst, err := m.PlayFromSettings(schedule.Slot, schedule.Show, 0)
	if err != nil {
		m.logger.Error("Scheduled show play failed", "run", runID, "schedule", schedule.Name, "slot", schedule.Slot, "error", err)
		data["error"] = err.Error()
	} else {
		m.logger.Info("Scheduled show played", "run", runID, "schedule", schedule.Name, "slot", schedule.Slot, "instance", inst.ID())
		data["instance_id"] = inst.ID()
	}

	m.emitEvent(context.Background(), EventTypeScheduleTriggered, data)
}
