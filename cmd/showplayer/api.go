package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/GoCodeAlone/modular"
	"github.com/go-chi/chi/v5"

	"github.com/GoCodeAlone/showcontrol"
	"github.com/GoCodeAlone/showcontrol/show"
)

// PlayRequest is the body of a slot play request.
type PlayRequest struct {
	Settings     map[string]any `json:"settings"`
	ModePriority int            `json:"mode_priority"`
}

// APIModule exposes slot control over HTTP.
type APIModule struct {
	config *AppConfig
	shows  *showcontrol.ShowControlModule
	logger modular.Logger
	router chi.Router
	server *http.Server
}

func NewAPIModule(config *AppConfig) modular.Module {
	return &APIModule{config: config}
}

func (m *APIModule) Name() string {
	return "showplayer-api"
}

func (m *APIModule) Dependencies() []string {
	return []string{showcontrol.ModuleName}
}

func (m *APIModule) RegisterConfig(app modular.Application) error {
	return nil
}

func (m *APIModule) RequiresServices() []modular.ServiceDependency {
	return []modular.ServiceDependency{
		{Name: showcontrol.ServiceName, Required: true},
	}
}

func (m *APIModule) ProvidesServices() []modular.ServiceProvider {
	return nil
}

func (m *APIModule) Init(app modular.Application) error {
	m.logger = app.Logger()

	if err := app.GetService(showcontrol.ServiceName, &m.shows); err != nil {
		return fmt.Errorf("failed to get show control service: %w", err)
	}

	m.router = chi.NewRouter()
	m.setupRoutes()
	m.server = &http.Server{
		Addr:              m.config.API.Address,
		Handler:           m.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

func (m *APIModule) setupRoutes() {
	m.router.Route("/api", func(r chi.Router) {
		r.Get("/shows", m.handleListShows)
		r.Get("/slots", m.handleListSlots)
		r.Get("/slots/{slot}", m.handleSlotStatus)
		r.Put("/slots/{slot}", m.handlePlay)
		r.Delete("/slots/{slot}", m.handleStop)
		r.Post("/slots/{slot}/{action}", m.handleAction)
	})
}

func (m *APIModule) Start(ctx context.Context) error {
	go func() {
		m.logger.Info("Show player API listening", "address", m.server.Addr)
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("Show player API failed", "error", err)
		}
	}()
	return nil
}

func (m *APIModule) Stop(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}

func (m *APIModule) handleListShows(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, m.shows.Registry().Names())
}

func (m *APIModule) handleListSlots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, m.shows.Slots())
}

func (m *APIModule) handleSlotStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := m.shows.SlotStatus(chi.URLParam(r, "slot"))
	if !ok {
		http.Error(w, "Slot is empty", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (m *APIModule) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	slot := chi.URLParam(r, "slot")
	inst, err := m.shows.PlayFromSettings(slot, req.Settings, req.ModePriority)
	switch {
	case errors.Is(err, show.ErrShowNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slot": slot, "instance_id": inst.ID(), "show": inst.ShowName()})
}

func (m *APIModule) handleStop(w http.ResponseWriter, r *http.Request) {
	if !m.shows.StopSlot(chi.URLParam(r, "slot")) {
		http.Error(w, "Slot is empty", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *APIModule) handleAction(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")

	var ok bool
	switch chi.URLParam(r, "action") {
	case "pause":
		ok = m.shows.PauseSlot(slot)
	case "resume":
		ok = m.shows.ResumeSlot(slot)
	case "advance":
		ok = m.shows.AdvanceSlot(slot)
	case "step_back":
		ok = m.shows.StepBackSlot(slot)
	default:
		http.Error(w, "Unknown action", http.StatusBadRequest)
		return
	}
	if !ok {
		http.Error(w, "Slot is empty", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
