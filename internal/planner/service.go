// Package planner provides the HTTP handlers for managing scenarios and
// querying the ledger engine: states, timeseries, entity positions, loan
// potential, and per-day fees.
//
// All monetary values use shopspring/decimal — never float64 for money.
package planner

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mejango/rev-sim/internal/ledger"
	"github.com/mejango/rev-sim/internal/metrics"
	"github.com/mejango/rev-sim/internal/model"
	"github.com/mejango/rev-sim/internal/scenario"
	"github.com/mejango/rev-sim/internal/stage"
	"github.com/mejango/rev-sim/internal/store"
	"github.com/mejango/rev-sim/internal/validation"
)

// Service handles scenario operations. Uses a mutex to serialize event
// admission (single-instance); queries are lock-free because every engine
// replay works on an immutable snapshot.
type Service struct {
	store store.Store
	mu    sync.Mutex
	wsHub *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates a new planner service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, hub *WSHub) *Service {
	return &Service{
		store: st,
		wsHub: hub,
	}
}

// Routes mounts all scenario endpoints on the given router.
func (s *Service) Routes(r chi.Router) {
	r.Get("/scenarios", s.ListScenarios)
	r.Post("/scenarios", s.CreateScenario)
	r.Post("/scenarios/import", s.ImportScenario)
	r.Get("/scenarios/{scenarioID}", s.GetScenario)
	r.Delete("/scenarios/{scenarioID}", s.DeleteScenario)
	r.Get("/scenarios/{scenarioID}/export", s.ExportScenario)
	r.Post("/scenarios/{scenarioID}/events", s.AdmitEvent)
	r.Get("/scenarios/{scenarioID}/state", s.GetState)
	r.Get("/scenarios/{scenarioID}/timeline", s.GetTimeline)
	r.Get("/scenarios/{scenarioID}/stage", s.GetStage)
	r.Get("/scenarios/{scenarioID}/fees", s.GetFees)
	r.Get("/scenarios/{scenarioID}/entities/{label}", s.GetEntity)
}

// --- Request/Response types ---

// CreateScenarioRequest is the JSON body for scenario creation.
type CreateScenarioRequest struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Narrative   string                  `json:"narrative"`
	Events      []model.Event           `json:"events"`
	Stages      []model.StageDefinition `json:"stages"`
}

// AdmitEventResponse is returned from POST .../events: the admitted event
// plus the resulting ledger state at its day.
type AdmitEventResponse struct {
	Event model.Event        `json:"event"`
	State *model.LedgerState `json:"state"`
}

// EntityResponse is the aggregate position of one entity at a day.
type EntityResponse struct {
	Label            string          `json:"label"`
	NormalizedLabel  string          `json:"normalized_label"`
	Day              int             `json:"day"`
	TotalTokens      string          `json:"total_tokens"`
	AvailableTokens  string          `json:"available_tokens"`
	Collateralized   string          `json:"collateralized_tokens"`
	Liability        model.Liability `json:"liability"`
	LoanPotential    string          `json:"loan_potential"`
	CashOutPotential string          `json:"cashout_potential"`
	TotalInvested    string          `json:"total_invested"`
}

// --- HTTP Handlers ---

// CreateScenario handles POST /api/v1/scenarios
func (s *Service) CreateScenario(w http.ResponseWriter, r *http.Request) {
	var req CreateScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		writeError(w, "name is required", http.StatusBadRequest)
		return
	}

	stages := req.Stages
	if len(stages) == 0 {
		stages = scenario.DefaultStages()
	}

	// Reject misconfigured stages before anything is persisted.
	if _, err := stage.NewTimeline(stages); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sc := &model.Scenario{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Narrative:   req.Narrative,
		Events:      req.Events,
		Stages:      stages,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.CreateScenario(r.Context(), sc); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrDuplicate) {
			status = http.StatusConflict
		}
		writeError(w, err.Error(), status)
		return
	}

	metrics.ScenariosCreated.Inc()
	slog.Info("scenario created",
		"id", sc.ID,
		"name", sc.Name,
		"events", len(sc.Events),
		"stages", len(sc.Stages),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sc)
}

// ListScenarios handles GET /api/v1/scenarios
func (s *Service) ListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := s.store.ListScenarios(r.Context())
	if err != nil {
		writeError(w, "failed to list scenarios", http.StatusInternalServerError)
		return
	}
	if scenarios == nil {
		scenarios = []model.Scenario{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(scenarios)
}

// GetScenario handles GET /api/v1/scenarios/{scenarioID}
func (s *Service) GetScenario(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.loadScenario(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sc)
}

// DeleteScenario handles DELETE /api/v1/scenarios/{scenarioID}
func (s *Service) DeleteScenario(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scenarioID")
	if err := s.store.DeleteScenario(r.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdmitEvent handles POST /api/v1/scenarios/{scenarioID}/events
// Runs the validation layer against the pre-event state; economically
// invalid events are rejected and never reach the log.
func (s *Service) AdmitEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, "invalid event body: "+err.Error(), http.StatusBadRequest)
		return
	}

	// Serialize admissions so two concurrent events validate against
	// consistent state.
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.loadScenario(w, r)
	if !ok {
		return
	}

	eng, err := engineFor(sc)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := validation.CheckEvent(eng, ev); err != nil {
		metrics.ValidationRejections.Inc()
		writeError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	sc.Events = append(sc.Events, ev)
	if err := s.store.UpdateScenario(r.Context(), sc); err != nil {
		writeError(w, "failed to persist event", http.StatusInternalServerError)
		return
	}

	// Fresh engine: the old one replays the pre-admission log.
	eng, err = engineFor(sc)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	state := eng.StateAt(ev.Day)

	metrics.EventsAdmitted.WithLabelValues(string(ev.Kind)).Inc()
	slog.Info("event admitted",
		"scenario", sc.ID,
		"day", ev.Day,
		"type", ev.TypeString(),
		"amount", ev.Amount.String(),
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:        "event_admitted",
			ScenarioID:  sc.ID,
			Day:         ev.Day,
			EventType:   ev.TypeString(),
			Backing:     state.Backing.String(),
			TotalSupply: state.TotalSupply.String(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(AdmitEventResponse{Event: ev, State: state})
}

// GetState handles GET /api/v1/scenarios/{scenarioID}/state?day=N
// Defaults to the last event day when day is omitted.
func (s *Service) GetState(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.loadScenario(w, r)
	if !ok {
		return
	}

	eng, err := engineFor(sc)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	day, err := queryDay(r, eng.MaxDay())
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(eng.StateAt(day))
}

// GetTimeline handles GET /api/v1/scenarios/{scenarioID}/timeline
func (s *Service) GetTimeline(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.loadScenario(w, r)
	if !ok {
		return
	}

	eng, err := engineFor(sc)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	results := eng.Timeseries()
	if results == nil {
		results = []model.DayResult{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// GetStage handles GET /api/v1/scenarios/{scenarioID}/stage?day=N
func (s *Service) GetStage(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.loadScenario(w, r)
	if !ok {
		return
	}

	timeline, err := stage.NewTimeline(sc.Stages)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	day, err := queryDay(r, 0)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(timeline.AtDay(day))
}

// GetFees handles GET /api/v1/scenarios/{scenarioID}/fees?day=N
func (s *Service) GetFees(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.loadScenario(w, r)
	if !ok {
		return
	}

	eng, err := engineFor(sc)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	day, err := queryDay(r, eng.MaxDay())
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(eng.TotalFeesForDay(day))
}

// GetEntity handles GET /api/v1/scenarios/{scenarioID}/entities/{label}?day=N
func (s *Service) GetEntity(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.loadScenario(w, r)
	if !ok {
		return
	}

	eng, err := engineFor(sc)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	day, err := queryDay(r, eng.MaxDay())
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	label := chi.URLParam(r, "label")
	normalized := model.NormalizeLabel(label)
	state := eng.StateAt(day)

	resp := EntityResponse{
		Label:            label,
		NormalizedLabel:  normalized,
		Day:              day,
		TotalTokens:      state.TokensByLabel[normalized].String(),
		AvailableTokens:  eng.AvailableTokens(label, day).String(),
		Collateralized:   eng.CollateralizedTokens(label, day).String(),
		Liability:        eng.OutstandingLiability(label, day),
		LoanPotential:    eng.LoanPotential(label, day).String(),
		CashOutPotential: eng.CashOutPotential(label, day).String(),
		TotalInvested:    eng.TotalInvested(label, day).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ExportScenario handles GET /api/v1/scenarios/{scenarioID}/export
// Returns the scenario as a downloadable JSON file.
func (s *Service) ExportScenario(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.loadScenario(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+scenario.ExportFilename(sc.Name)+`"`)
	if err := scenario.ExportJSON(w, *sc); err != nil {
		slog.Error("scenario export failed", "id", sc.ID, "err", err)
	}
}

// ImportScenario handles POST /api/v1/scenarios/import
// Accepts an exported scenario file and stores it under a fresh ID.
func (s *Service) ImportScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := scenario.ImportJSON(r.Body)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := stage.NewTimeline(sc.Stages); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sc.ID = uuid.New().String()
	sc.CreatedAt = time.Now().UTC()
	if sc.Name == "" {
		sc.Name = "Imported Scenario"
	}

	if err := s.store.CreateScenario(r.Context(), &sc); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrDuplicate) {
			status = http.StatusConflict
		}
		writeError(w, err.Error(), status)
		return
	}

	metrics.ScenariosCreated.Inc()
	slog.Info("scenario imported", "id", sc.ID, "name", sc.Name, "events", len(sc.Events))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sc)
}

// --- Helpers ---

// loadScenario fetches the scenario from the URL parameter, writing the
// error response itself on failure.
func (s *Service) loadScenario(w http.ResponseWriter, r *http.Request) (*model.Scenario, bool) {
	id := chi.URLParam(r, "scenarioID")
	sc, err := s.store.GetScenario(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, err.Error(), status)
		return nil, false
	}
	return sc, true
}

// engineFor builds a replay engine over a scenario's events and stages.
func engineFor(sc *model.Scenario) (*ledger.Engine, error) {
	timeline, err := stage.NewTimeline(sc.Stages)
	if err != nil {
		return nil, err
	}
	return ledger.NewEngine(model.NewEventLog(sc.Events), timeline)
}

// queryDay parses the optional ?day= parameter, falling back to def.
func queryDay(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("day")
	if raw == "" {
		return def, nil
	}
	day, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("day must be an integer")
	}
	return day, nil
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
