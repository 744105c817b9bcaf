package showcontrol

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/GoCodeAlone/showcontrol/show"
)

// SlotStatus is a snapshot of the show held by a slot.
type SlotStatus struct {
	InstanceID     uint64
	ShowName       string
	ConfigName     string
	Priority       int
	State          show.State
	Step           int // 1-based; 0 until the first step is applied
	LoopsRemaining int
}

// PlaySlot reconciles cfg against the show currently held by slot and keeps the
// result in the slot. A slot holds at most one show; replaying an identical
// config leaves the running show untouched.
func (m *ShowControlModule) PlaySlot(slot string, cfg show.Config, opts show.PlayOptions) (*show.Instance, error) {
	if m.player == nil {
		return nil, ErrModuleNotInitialized
	}

	m.slotsMu.Lock()
	defer m.slotsMu.Unlock()

	existing := m.slots[slot]
	inst, err := m.player.Reconcile(existing, cfg, opts)
	if err != nil {
		m.logger.Error("Failed to play show", "slot", slot, "show", cfg.Name, "error", err)
		m.emitEvent(context.Background(), EventTypeError, map[string]interface{}{
			"slot":  slot,
			"show":  cfg.Name,
			"error": err.Error(),
		})
		return nil, err
	}
	if inst != existing {
		m.logger.Debug("Slot now playing new show instance", "slot", slot, "show", inst.ShowName(), "instance", inst.ID())
	}
	m.slots[slot] = inst
	return inst, nil
}

// PlayFromSettings plays show_player style settings into slot. modePriority is
// added to the configured priority, the way a mode lifts the shows it starts.
// Besides the show config keys, settings may carry start_step and start_running.
func (m *ShowControlModule) PlayFromSettings(slot string, settings map[string]any, modePriority int) (*show.Instance, error) {
	if m.registry == nil {
		return nil, ErrModuleNotInitialized
	}

	settings = maps.Clone(settings)
	opts := show.DefaultPlayOptions()
	if v, ok := settings["start_step"]; ok {
		delete(settings, "start_step")
		step, err := show.Coerce[int]("start_step", v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", show.ErrInvalidShowConfig, err)
		}
		opts = opts.AtStep(step)
	}
	if v, ok := settings["start_running"]; ok {
		delete(settings, "start_running")
		running, err := show.Coerce[bool]("start_running", v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", show.ErrInvalidShowConfig, err)
		}
		opts.StartRunning = running
	}

	cfg, err := m.registry.BuildConfigFromMap(settings)
	if err != nil {
		return nil, err
	}
	cfg.Priority += modePriority
	return m.PlaySlot(slot, cfg, opts)
}

// StopSlot stops the show in slot and empties it. It reports whether the slot
// held a show.
func (m *ShowControlModule) StopSlot(slot string) bool {
	if m.player == nil {
		return false
	}

	m.slotsMu.Lock()
	defer m.slotsMu.Unlock()

	inst, ok := m.slots[slot]
	if !ok {
		return false
	}
	delete(m.slots, slot)
	m.player.Do(inst.Stop)
	return true
}

// PauseSlot pauses the show in slot.
func (m *ShowControlModule) PauseSlot(slot string) bool {
	return m.withSlot(slot, (*show.Instance).Pause)
}

// ResumeSlot resumes the show in slot.
func (m *ShowControlModule) ResumeSlot(slot string) bool {
	return m.withSlot(slot, (*show.Instance).Resume)
}

// AdvanceSlot moves the show in slot one step forward.
func (m *ShowControlModule) AdvanceSlot(slot string) bool {
	return m.withSlot(slot, (*show.Instance).Advance)
}

// StepBackSlot moves the show in slot one step back.
func (m *ShowControlModule) StepBackSlot(slot string) bool {
	return m.withSlot(slot, (*show.Instance).StepBack)
}

func (m *ShowControlModule) withSlot(slot string, fn func(*show.Instance)) bool {
	if m.player == nil {
		return false
	}

	m.slotsMu.Lock()
	defer m.slotsMu.Unlock()

	inst, ok := m.slots[slot]
	if !ok {
		return false
	}
	m.player.Do(func() { fn(inst) })
	return true
}

// SlotStatus returns a snapshot of the show in slot.
func (m *ShowControlModule) SlotStatus(slot string) (SlotStatus, bool) {
	if m.player == nil {
		return SlotStatus{}, false
	}

	m.slotsMu.Lock()
	defer m.slotsMu.Unlock()

	inst, ok := m.slots[slot]
	if !ok {
		return SlotStatus{}, false
	}

	var status SlotStatus
	m.player.Do(func() {
		status = SlotStatus{
			InstanceID:     inst.ID(),
			ShowName:       inst.ShowName(),
			ConfigName:     inst.Config().Name,
			Priority:       inst.Config().Priority,
			State:          inst.State(),
			LoopsRemaining: inst.LoopsRemaining(),
		}
		if idx, started := inst.CurrentStepIndex(); started {
			status.Step = idx + 1
		}
	})
	return status, true
}

// Slots returns the names of the slots holding a show that has not stopped.
func (m *ShowControlModule) Slots() []string {
	if m.player == nil {
		return nil
	}

	m.slotsMu.Lock()
	defer m.slotsMu.Unlock()

	var names []string
	m.player.Do(func() {
		for name, inst := range m.slots {
			if !inst.Stopped() {
				names = append(names, name)
			}
		}
	})
	slices.Sort(names)
	return names
}

// StopAll stops every show the module is playing and empties all slots. It
// returns the number of slots that were cleared.
func (m *ShowControlModule) StopAll() int {
	if m.player == nil {
		return 0
	}

	m.slotsMu.Lock()
	defer m.slotsMu.Unlock()

	n := len(m.slots)
	clear(m.slots)
	m.player.StopAll()
	return n
}
