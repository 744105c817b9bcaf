package showcontrol

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/fsnotify/fsnotify"

	"github.com/GoCodeAlone/showcontrol/loader"
)

// ReloadShowFile reloads a show file that was loaded before. The names it
// registered last time are removed and the file's current shows and pools are
// registered in their place. Running shows pick up the new definitions by name
// on their next step.
func (m *ShowControlModule) ReloadShowFile(path string) error {
	if m.registry == nil {
		return ErrModuleNotInitialized
	}

	f, err := loader.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load show file: %w", err)
	}

	m.filesMu.Lock()
	defer m.filesMu.Unlock()

	previous := m.fileNames[path]
	for _, name := range fileNames(f) {
		if slices.Contains(previous, name) {
			continue
		}
		if err := m.registry.CheckFree(name); err != nil {
			return fmt.Errorf("failed to reload shows from %s: %w", path, err)
		}
	}

	old := m.snapshot(previous)
	for _, name := range previous {
		m.registry.Unregister(name)
	}
	if err := m.register(f); err != nil {
		if restoreErr := m.register(old); restoreErr != nil {
			m.logger.Error("Failed to restore shows after reload error", "file", path, "error", restoreErr)
		}
		return fmt.Errorf("failed to reload shows from %s: %w", path, err)
	}
	m.fileNames[path] = fileNames(f)

	m.logger.Info("Reloaded show file", "file", path, "shows", len(f.Shows), "pools", len(f.Pools))
	m.emitEvent(context.Background(), EventTypeShowsLoaded, map[string]interface{}{
		"file":     path,
		"shows":    len(f.Shows),
		"pools":    len(f.Pools),
		"reloaded": true,
	})
	return nil
}

// startWatcher watches the directories of the configured show files. Editors
// often replace files rather than write them, so directories are watched and
// events are matched by path.
func (m *ShowControlModule) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create show file watcher: %w", err)
	}

	var dirs []string
	for _, path := range m.config.ShowFiles {
		dir := filepath.Dir(filepath.Clean(path))
		if slices.Contains(dirs, dir) {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs = append(dirs, dir)
	}

	m.watcher = watcher
	m.watcherDone = make(chan struct{})
	go m.watch(watcher, m.watcherDone)

	m.logger.Debug("Watching show files", "directories", dirs)
	return nil
}

func (m *ShowControlModule) stopWatcher() {
	if m.watcher == nil {
		return
	}
	_ = m.watcher.Close()
	<-m.watcherDone
	m.watcher = nil
}

func (m *ShowControlModule) watch(watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	files := make(map[string]string, len(m.config.ShowFiles))
	for _, path := range m.config.ShowFiles {
		files[filepath.Clean(path)] = path
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			path, ok := files[filepath.Clean(event.Name)]
			if !ok {
				continue
			}
			if err := m.ReloadShowFile(path); err != nil {
				m.logger.Error("Failed to reload show file", "file", path, "error", err)
				m.emitEvent(context.Background(), EventTypeError, map[string]interface{}{
					"file":  path,
					"error": err.Error(),
				})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("Show file watcher error", "error", err)
		}
	}
}

// snapshot collects the shows and pools currently registered under names.
func (m *ShowControlModule) snapshot(names []string) *loader.File {
	f := &loader.File{}
	for _, name := range names {
		if def, err := m.registry.Definition(name); err == nil {
			f.Shows = append(f.Shows, def)
		} else if pool, err := m.registry.Pool(name); err == nil {
			f.Pools = append(f.Pools, pool)
		}
	}
	return f
}

// register adds f's shows and pools. On error everything it added is removed
// again, so a file is either fully registered or not at all.
func (m *ShowControlModule) register(f *loader.File) error {
	var added []string
	rollback := func() {
		for _, name := range added {
			m.registry.Unregister(name)
		}
	}
	for _, def := range f.Shows {
		if err := m.registry.Register(def); err != nil {
			rollback()
			return err
		}
		added = append(added, def.Name())
	}
	for _, pool := range f.Pools {
		if err := m.registry.RegisterPool(pool); err != nil {
			rollback()
			return err
		}
		added = append(added, pool.Name())
	}
	return nil
}

func fileNames(f *loader.File) []string {
	names := make([]string, 0, len(f.Shows)+len(f.Pools))
	for _, def := range f.Shows {
		names = append(names, def.Name())
	}
	for _, pool := range f.Pools {
		names = append(names, pool.Name())
	}
	return names
}
