/*
handlers.go - HTTP API handlers for the benefit engine

PURPOSE:
  Exposes the benefit engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Producers:
    GET    /api/persons                      List producers
    POST   /api/persons                      Register producer
    GET    /api/persons/{id}                 Producer details
    GET    /api/persons/{id}/requests        Request history
    GET    /api/persons/{id}/effective-area  Effective-area snapshot
    POST   /api/persons/{id}/effective-area/recalculate

  Registration:
    POST   /api/properties                   Register parcel
    GET    /api/properties/{id}
    POST   /api/leases                       Declare lease

  Programs:
    GET    /api/programs                     List programs
    POST   /api/programs                     Create program from JSON config
    GET    /api/programs/{id}                Program with rules
    GET    /api/programs/{id}/limit-check    Period quota check

  Evaluation:
    POST   /api/evaluate                     Evaluate (optionally reserve)

  Workflow:
    POST   /api/requests/{id}/status         Transition request status

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, missing attributes
  - 404: Resource not found
  - 409: Inconsistent registration data
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loader
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ruralis/benefit-engine/engine"
	"github.com/ruralis/benefit-engine/factory"
	"github.com/ruralis/benefit-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Evaluator *engine.Evaluator
	Factory   *factory.ProgramFactory
	Validate  *validator.Validate
	Logger    zerolog.Logger
}

// NewHandler creates a new handler over the given store.
func NewHandler(store *sqlite.Store, logger zerolog.Logger) *Handler {
	return &Handler{
		Store:     store,
		Evaluator: engine.NewEvaluator(store),
		Factory:   factory.NewProgramFactory(),
		Validate:  validator.New(),
		Logger:    logger,
	}
}

// =============================================================================
// PRODUCER HANDLERS
// =============================================================================

// ListPersons returns all producer registrations.
func (h *Handler) ListPersons(w http.ResponseWriter, r *http.Request) {
	persons, err := h.Store.ListPersons(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list producers", err)
		return
	}

	dtos := make([]PersonDTO, len(persons))
	for i, p := range persons {
		dtos[i] = toPersonDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPerson returns a single producer.
func (h *Handler) GetPerson(w http.ResponseWriter, r *http.Request) {
	id := engine.PersonID(chi.URLParam(r, "id"))

	person, err := h.Store.Person(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get producer", err)
		return
	}
	if person == nil {
		writeError(w, http.StatusNotFound, "producer not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toPersonDTO(*person))
}

// CreatePerson registers a producer.
func (h *Handler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var req CreatePersonRequest
	if !h.decode(w, r, &req) {
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	person := engine.Person{
		ID:     engine.PersonID(req.ID),
		Name:   req.Name,
		Entity: engine.LegalEntity(req.Entity),
		Active: active,
	}
	if err := h.Store.SavePerson(r.Context(), person); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save producer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPersonDTO(person))
}

// ListPersonRequests returns a producer's request history.
func (h *Handler) ListPersonRequests(w http.ResponseWriter, r *http.Request) {
	id := engine.PersonID(chi.URLParam(r, "id"))

	requests, err := h.Store.RequestsByPerson(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list requests", err)
		return
	}

	dtos := make([]RequestDTO, len(requests))
	for i, req := range requests {
		dtos[i] = toRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEffectiveArea returns the stored snapshot for ?year=.
func (h *Handler) GetEffectiveArea(w http.ResponseWriter, r *http.Request) {
	id := engine.PersonID(chi.URLParam(r, "id"))
	year, ok := yearParam(w, r)
	if !ok {
		return
	}

	snap, err := h.Store.EffectiveArea(r.Context(), id, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load snapshot", err)
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "no effective-area snapshot for this year", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEffectiveAreaDTO(*snap))
}

// RecalculateEffectiveArea rebuilds and persists the snapshot for ?year=.
func (h *Handler) RecalculateEffectiveArea(w http.ResponseWriter, r *http.Request) {
	id := engine.PersonID(chi.URLParam(r, "id"))
	year, ok := yearParam(w, r)
	if !ok {
		return
	}

	calc := &engine.AreaCalculator{Properties: h.Store, Leases: h.Store, Snapshots: h.Store}
	snap, err := calc.Recalculate(r.Context(), id, year)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEffectiveAreaDTO(*snap))
}

// =============================================================================
// PROPERTY AND LEASE HANDLERS
// =============================================================================

// CreateProperty registers a parcel.
func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var req CreatePropertyRequest
	if !h.decode(w, r, &req) {
		return
	}

	rural := true
	if req.Rural != nil {
		rural = *req.Rural
	}
	unit := engine.UnitAlqueire
	if !rural {
		unit = engine.UnitSquareMeter
	}

	property := engine.Property{
		ID:        engine.PropertyID(req.ID),
		OwnerID:   engine.PersonID(req.OwnerID),
		Name:      req.Name,
		TotalArea: engine.NewQuantity(req.TotalArea, unit),
		Tenure:    engine.Tenure(req.Tenure),
		Rural:     rural,
	}
	if err := h.Store.SaveProperty(r.Context(), property); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPropertyDTO(property))
}

// GetProperty returns a single parcel.
func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
	id := engine.PropertyID(chi.URLParam(r, "id"))

	property, err := h.Store.Property(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get property", err)
		return
	}
	if property == nil {
		writeError(w, http.StatusNotFound, "property not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toPropertyDTO(*property))
}

// CreateLease declares a lease for a reference year.
func (h *Handler) CreateLease(w http.ResponseWriter, r *http.Request) {
	var req CreateLeaseRequest
	if !h.decode(w, r, &req) {
		return
	}

	property, err := h.Store.Property(r.Context(), engine.PropertyID(req.PropertyID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load property", err)
		return
	}
	if property == nil {
		writeError(w, http.StatusNotFound, "property not found", nil)
		return
	}

	unit := property.TotalArea.Unit
	lease := engine.Lease{
		ID:           engine.LeaseID(req.ID),
		PropertyID:   property.ID,
		TenantID:     engine.PersonID(req.TenantID),
		AreaCeded:    engine.NewQuantity(req.AreaCeded, unit),
		AreaReceived: engine.NewQuantity(req.AreaReceived, unit),
		Year:         req.Year,
	}
	if err := h.Store.SaveLease(r.Context(), lease); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaseDTO(lease))
}

// =============================================================================
// PROGRAM HANDLERS
// =============================================================================

// ListPrograms returns all programs.
func (h *Handler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := h.Store.ListPrograms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list programs", err)
		return
	}

	dtos := make([]ProgramDTO, len(programs))
	for i, p := range programs {
		dtos[i] = ProgramDTO{
			ID:           string(p.ID),
			Name:         p.Name,
			LawReference: p.LawReference,
			Type:         string(p.Type),
			Active:       p.Active,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProgram returns a program with its rule configuration.
func (h *Handler) GetProgram(w http.ResponseWriter, r *http.Request) {
	id := engine.ProgramID(chi.URLParam(r, "id"))

	program, err := h.Store.Program(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get program", err)
		return
	}
	if program == nil {
		writeError(w, http.StatusNotFound, "program not found", nil)
		return
	}

	rules, err := h.Store.RulesByProgram(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load rules", err)
		return
	}

	dto := ProgramDTO{
		ID:           string(program.ID),
		Name:         program.Name,
		LawReference: program.LawReference,
		Type:         string(program.Type),
		Active:       program.Active,
	}
	for _, rule := range rules {
		dto.Rules = append(dto.Rules, factory.RuleToJSON(rule))
	}
	writeJSON(w, http.StatusOK, dto)
}

// CreateProgram creates a program from the factory JSON schema.
func (h *Handler) CreateProgram(w http.ResponseWriter, r *http.Request) {
	var req CreateProgramRequest
	if !h.decode(w, r, &req) {
		return
	}

	program, rules, err := h.Factory.FromJSON(req.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid program configuration", err)
		return
	}
	if err := h.Store.SaveProgram(r.Context(), *program, rules); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save program", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.Factory.ToJSON(*program, rules))
}

// CheckPeriodLimit answers "can this producer draw from this program now?".
// GET /api/programs/{id}/limit-check?person=...&date=YYYY-MM-DD
func (h *Handler) CheckPeriodLimit(w http.ResponseWriter, r *http.Request) {
	programID := engine.ProgramID(chi.URLParam(r, "id"))
	personID := engine.PersonID(r.URL.Query().Get("person"))
	if personID == "" {
		writeError(w, http.StatusBadRequest, "person query parameter is required", nil)
		return
	}

	ref, err := engine.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date (use YYYY-MM-DD)", err)
		return
	}

	status, err := h.Evaluator.CheckPeriodLimit(r.Context(), personID, programID, ref)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodLimitStatusDTO(status))
}

// =============================================================================
// EVALUATION HANDLER
// =============================================================================

// Evaluate runs one benefit evaluation. With "reserve": true the pending
// request is recorded in the same transaction as the quota check.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !h.decode(w, r, &req) {
		return
	}

	evalDate, err := engine.ParseDate(req.EvaluationDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid evaluation_date (use YYYY-MM-DD)", err)
		return
	}

	attrs, err := parseAttributes(req.Attributes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid attributes", err)
		return
	}

	input := engine.EvaluationInput{
		PersonID:       engine.PersonID(req.PersonID),
		ProgramID:      engine.ProgramID(req.ProgramID),
		EvaluationDate: evalDate,
		Attributes:     attrs,
	}
	if req.RequestedQuantity != nil {
		qty := decimal.NewFromFloat(*req.RequestedQuantity)
		input.RequestedQuantity = &qty
	}

	if req.Reserve {
		result, request, err := h.Evaluator.EvaluateAndReserve(r.Context(), input)
		if err != nil {
			h.writeEngineError(w, err)
			return
		}
		dto := toCalculationResultDTO(result)
		if request != nil {
			dto.SolicitacaoID = string(request.ID)
		}
		writeJSON(w, http.StatusOK, dto)
		return
	}

	result, err := h.Evaluator.Evaluate(r.Context(), input)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCalculationResultDTO(result))
}

// =============================================================================
// REQUEST WORKFLOW
// =============================================================================

// UpdateRequestStatus transitions a request through the host workflow.
func (h *Handler) UpdateRequestStatus(w http.ResponseWriter, r *http.Request) {
	id := engine.RequestID(chi.URLParam(r, "id"))

	var req UpdateRequestStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.Store.UpdateRequestStatus(r.Context(), id, engine.RequestStatus(req.Status)); err != nil {
		writeError(w, http.StatusNotFound, "failed to update request", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": string(id), "status": req.Status})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode unmarshals and validates a request body; it writes the error
// response itself and reports success.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	if err := h.Validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err)
		return false
	}
	return true
}

// parseAttributes converts the free-form attribute map into the typed bag.
func parseAttributes(raw map[string]any) (*engine.Attributes, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	attrs := engine.NewAttributes()
	for k, v := range raw {
		key := engine.AttributeKey(k)
		switch value := v.(type) {
		case float64:
			attrs.SetFloat(key, value)
		case string:
			attrs.SetString(key, value)
		default:
			return nil, fmt.Errorf("attribute %q must be a number or string", k)
		}
	}
	return attrs, nil
}

func yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year <= 0 {
		writeError(w, http.StatusBadRequest, "year query parameter is required", err)
		return 0, false
	}
	return year, true
}

// writeEngineError maps engine error taxonomy onto HTTP statuses.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, engine.ErrInconsistentAreaData):
		writeError(w, http.StatusConflict, "inconsistent registration data", err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, "invalid input", err)
	default:
		h.Logger.Error().Err(err).Msg("evaluation failed")
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
