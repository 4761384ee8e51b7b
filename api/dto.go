/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

WIRE VOCABULARY:
  Calculation responses use the host application's Portuguese field names
  (valorCalculado, permitido, proximaLiberacao...) so the municipal front
  end consumes them unchanged. Registration CRUD uses plain snake_case.

VALIDATION:
  Request DTOs carry go-playground/validator tags; handlers run the shared
  validator before touching the engine.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/program.go: ProgramJSON type
*/
package api

import (
	"github.com/ruralis/benefit-engine/engine"
	"github.com/ruralis/benefit-engine/factory"
)

// =============================================================================
// REGISTRATION TYPES
// =============================================================================

// PersonDTO represents a producer in API responses.
type PersonDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Entity string `json:"entity"`
	Active bool   `json:"active"`
}

// CreatePersonRequest is the request to register a producer.
type CreatePersonRequest struct {
	ID     string `json:"id" validate:"required"`
	Name   string `json:"name" validate:"required"`
	Entity string `json:"entity" validate:"required,oneof=fisica juridica"`
	Active *bool  `json:"active,omitempty"`
}

// PropertyDTO represents a parcel in API responses.
type PropertyDTO struct {
	ID        string  `json:"id"`
	OwnerID   string  `json:"owner_id"`
	Name      string  `json:"name"`
	TotalArea float64 `json:"total_area"`
	AreaUnit  string  `json:"area_unit"`
	Tenure    string  `json:"tenure"`
	Rural     bool    `json:"rural"`
}

// CreatePropertyRequest is the request to register a parcel.
type CreatePropertyRequest struct {
	ID        string  `json:"id" validate:"required"`
	OwnerID   string  `json:"owner_id" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	TotalArea float64 `json:"total_area" validate:"gte=0"`
	Tenure    string  `json:"tenure" validate:"required,oneof=propria condominio usufruto"`
	Rural     *bool   `json:"rural,omitempty"`
}

// CreateLeaseRequest is the request to declare a lease.
type CreateLeaseRequest struct {
	ID           string  `json:"id" validate:"required"`
	PropertyID   string  `json:"property_id" validate:"required"`
	TenantID     string  `json:"tenant_id" validate:"required"`
	AreaCeded    float64 `json:"area_ceded" validate:"gte=0"`
	AreaReceived float64 `json:"area_received" validate:"gte=0"`
	Year         int     `json:"year" validate:"required"`
}

// LeaseDTO represents a lease in API responses.
type LeaseDTO struct {
	ID           string  `json:"id"`
	PropertyID   string  `json:"property_id"`
	TenantID     string  `json:"tenant_id"`
	AreaCeded    float64 `json:"area_ceded"`
	AreaReceived float64 `json:"area_received"`
	AreaUnit     string  `json:"area_unit"`
	Year         int     `json:"year"`
}

// =============================================================================
// PROGRAM TYPES
// =============================================================================

// ProgramDTO represents a program plus its rule configuration.
type ProgramDTO struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	LawReference string             `json:"law_reference,omitempty"`
	Type         string             `json:"type"`
	Active       bool               `json:"active"`
	Rules        []factory.RuleJSON `json:"rules,omitempty"`
}

// CreateProgramRequest wraps the factory JSON schema.
type CreateProgramRequest struct {
	Config factory.ProgramJSON `json:"config" validate:"required"`
}

// =============================================================================
// EVALUATION TYPES
// =============================================================================

// EvaluateRequest asks the engine to evaluate a producer against a program.
type EvaluateRequest struct {
	PersonID          string         `json:"person_id" validate:"required"`
	ProgramID         string         `json:"program_id" validate:"required"`
	RequestedQuantity *float64       `json:"requested_quantity,omitempty" validate:"omitempty,gte=0"`
	EvaluationDate    string         `json:"evaluation_date" validate:"required"`
	Attributes        map[string]any `json:"attributes,omitempty"`

	// Reserve records a pending request when the benefit is granted.
	Reserve bool `json:"reserve,omitempty"`
}

// CalculationResultDTO is the calculation outcome in the host application's
// wire vocabulary.
type CalculationResultDTO struct {
	RegraAplicadaID  string                 `json:"regraAplicadaId,omitempty"`
	Aplicavel        bool                   `json:"aplicavel"`
	Permitido        bool                   `json:"permitido"`
	Quantidade       float64                `json:"quantidade"`
	Unidade          string                 `json:"unidade,omitempty"`
	ValorCalculado   float64                `json:"valorCalculado"`
	Mensagem         string                 `json:"mensagem,omitempty"`
	Avisos           []string               `json:"avisos,omitempty"`
	ProximaLiberacao string                 `json:"proximaLiberacao,omitempty"`
	Detalhes         *CalculationDetailsDTO `json:"calculoDetalhes,omitempty"`
	SolicitacaoID    string                 `json:"solicitacaoId,omitempty"`
}

// CalculationDetailsDTO is the value breakdown rendered by the UI.
type CalculationDetailsDTO struct {
	ValorUnitario    float64           `json:"valorUnitario"`
	QuantidadeMaxima *float64          `json:"quantidadeMaxima,omitempty"`
	ConsumoAnterior  *float64          `json:"consumoAnterior,omitempty"`
	SaldoPeriodo     *float64          `json:"saldoPeriodo,omitempty"`
	JanelaInicio     string            `json:"janelaInicio,omitempty"`
	JanelaFim        string            `json:"janelaFim,omitempty"`
	Rateio           *ApportionmentDTO `json:"rateio,omitempty"`
}

// ApportionmentDTO is the tenant's proportional-limit breakdown.
type ApportionmentDTO struct {
	Total        float64            `json:"total"`
	PercentTotal float64            `json:"percentualTotal"`
	Propriedades []PropertyShareDTO `json:"propriedades"`
}

// PropertyShareDTO is one property's slice of a tenant apportionment.
type PropertyShareDTO struct {
	PropertyID        string  `json:"propriedadeId"`
	OwnerID           string  `json:"proprietarioId"`
	TotalArea         float64 `json:"areaTotal"`
	LeasedArea        float64 `json:"areaArrendada"`
	PercentOfProperty float64 `json:"percentualPropriedade"`
	OwnerFullLimit    float64 `json:"limiteProprietario"`
	ContributedLimit  float64 `json:"limiteRateado"`
}

// PeriodLimitStatusDTO answers a period-quota check.
type PeriodLimitStatusDTO struct {
	Permitido        bool    `json:"permitido"`
	Mensagem         string  `json:"mensagem"`
	ProximaLiberacao string  `json:"proximaLiberacao,omitempty"`
	JanelaInicio     string  `json:"janelaInicio,omitempty"`
	JanelaFim        string  `json:"janelaFim,omitempty"`
	Consumido        float64 `json:"consumido"`
	Saldo            float64 `json:"saldo"`
}

// EffectiveAreaDTO is the per-(person, year) area projection.
type EffectiveAreaDTO struct {
	PersonID      string  `json:"person_id"`
	Year          int     `json:"year"`
	OwnedArea     float64 `json:"owned_area"`
	LeasedInArea  float64 `json:"leased_in_area"`
	LeasedOutArea float64 `json:"leased_out_area"`
	EffectiveArea float64 `json:"effective_area"`
	AreaUnit      string  `json:"area_unit"`
}

// RequestDTO represents a stored benefit request.
type RequestDTO struct {
	ID                string   `json:"id"`
	PersonID          string   `json:"person_id"`
	ProgramID         string   `json:"program_id"`
	RuleID            string   `json:"rule_id,omitempty"`
	RequestedQuantity *float64 `json:"requested_quantity,omitempty"`
	GrantedQuantity   *float64 `json:"granted_quantity,omitempty"`
	Unit              string   `json:"unit,omitempty"`
	GrantedValue      float64  `json:"granted_value"`
	Status            string   `json:"status"`
	EffectiveAt       string   `json:"effective_at"`
}

// UpdateRequestStatusRequest transitions a request through the workflow.
type UpdateRequestStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in_review approved rejected cancelled paid"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toPersonDTO(p engine.Person) PersonDTO {
	return PersonDTO{ID: string(p.ID), Name: p.Name, Entity: string(p.Entity), Active: p.Active}
}

func toPropertyDTO(p engine.Property) PropertyDTO {
	area, _ := p.TotalArea.Value.Float64()
	return PropertyDTO{
		ID:        string(p.ID),
		OwnerID:   string(p.OwnerID),
		Name:      p.Name,
		TotalArea: area,
		AreaUnit:  string(p.TotalArea.Unit),
		Tenure:    string(p.Tenure),
		Rural:     p.Rural,
	}
}

func toLeaseDTO(l engine.Lease) LeaseDTO {
	ceded, _ := l.AreaCeded.Value.Float64()
	received, _ := l.AreaReceived.Value.Float64()
	return LeaseDTO{
		ID:           string(l.ID),
		PropertyID:   string(l.PropertyID),
		TenantID:     string(l.TenantID),
		AreaCeded:    ceded,
		AreaReceived: received,
		AreaUnit:     string(l.AreaCeded.Unit),
		Year:         l.Year,
	}
}

func toEffectiveAreaDTO(s engine.EffectiveAreaSnapshot) EffectiveAreaDTO {
	owned, _ := s.OwnedArea.Value.Float64()
	leasedIn, _ := s.LeasedInArea.Value.Float64()
	leasedOut, _ := s.LeasedOutArea.Value.Float64()
	effective, _ := s.EffectiveArea.Value.Float64()
	return EffectiveAreaDTO{
		PersonID:      string(s.PersonID),
		Year:          s.Year,
		OwnedArea:     owned,
		LeasedInArea:  leasedIn,
		LeasedOutArea: leasedOut,
		EffectiveArea: effective,
		AreaUnit:      string(s.EffectiveArea.Unit),
	}
}

func toRequestDTO(r engine.BenefitRequest) RequestDTO {
	dto := RequestDTO{
		ID:          string(r.ID),
		PersonID:    string(r.PersonID),
		ProgramID:   string(r.ProgramID),
		RuleID:      string(r.RuleID),
		Status:      string(r.Status),
		EffectiveAt: r.EffectiveAt.String(),
	}
	dto.GrantedValue, _ = r.GrantedValue.Float64()
	if r.RequestedQuantity != nil {
		v, _ := r.RequestedQuantity.Value.Float64()
		dto.RequestedQuantity = &v
		dto.Unit = string(r.RequestedQuantity.Unit)
	}
	if r.GrantedQuantity != nil {
		v, _ := r.GrantedQuantity.Value.Float64()
		dto.GrantedQuantity = &v
		dto.Unit = string(r.GrantedQuantity.Unit)
	}
	return dto
}

func toCalculationResultDTO(res *engine.CalculationResult) CalculationResultDTO {
	dto := CalculationResultDTO{
		RegraAplicadaID: string(res.RuleID),
		Aplicavel:       res.Matched,
		Permitido:       res.Allowed,
		Unidade:         string(res.Quantity.Unit),
		Mensagem:        res.Message,
		Avisos:          res.Warnings,
	}
	dto.Quantidade, _ = res.Quantity.Value.Float64()
	dto.ValorCalculado, _ = res.Value.Float64()
	if res.NextEligible != nil {
		dto.ProximaLiberacao = res.NextEligible.String()
	}

	if res.Matched {
		details := &CalculationDetailsDTO{}
		details.ValorUnitario, _ = res.Details.UnitValue.Float64()
		if res.Details.MaxClaimable != nil {
			v, _ := res.Details.MaxClaimable.Value.Float64()
			details.QuantidadeMaxima = &v
		}
		if res.Details.PriorConsumption != nil {
			v, _ := res.Details.PriorConsumption.Value.Float64()
			details.ConsumoAnterior = &v
		}
		if res.Details.RemainingQuota != nil {
			v, _ := res.Details.RemainingQuota.Value.Float64()
			details.SaldoPeriodo = &v
		}
		if res.Details.Window != nil {
			details.JanelaInicio = res.Details.Window.Start.String()
			details.JanelaFim = res.Details.Window.End.String()
		}
		if res.Details.Apportionment != nil {
			details.Rateio = toApportionmentDTO(res.Details.Apportionment)
		}
		dto.Detalhes = details
	}
	return dto
}

func toApportionmentDTO(a *engine.TenantApportionment) *ApportionmentDTO {
	dto := &ApportionmentDTO{}
	dto.Total, _ = a.Total.Float64()
	dto.PercentTotal, _ = a.PercentTotal.Float64()
	for _, share := range a.Properties {
		s := PropertyShareDTO{
			PropertyID: string(share.PropertyID),
			OwnerID:    string(share.OwnerID),
		}
		s.TotalArea, _ = share.TotalArea.Value.Float64()
		s.LeasedArea, _ = share.LeasedArea.Value.Float64()
		s.PercentOfProperty, _ = share.PercentOfProperty.Float64()
		s.OwnerFullLimit, _ = share.OwnerFullLimit.Float64()
		s.ContributedLimit, _ = share.ContributedLimit.Float64()
		dto.Propriedades = append(dto.Propriedades, s)
	}
	return dto
}

func toPeriodLimitStatusDTO(s *engine.PeriodLimitStatus) PeriodLimitStatusDTO {
	dto := PeriodLimitStatusDTO{
		Permitido: s.Allowed,
		Mensagem:  s.Message,
	}
	dto.Consumido, _ = s.Consumed.Value.Float64()
	dto.Saldo, _ = s.Remaining.Value.Float64()
	if s.NextEligible != nil {
		dto.ProximaLiberacao = s.NextEligible.String()
	}
	if s.Window != nil {
		dto.JanelaInicio = s.Window.Start.String()
		dto.JanelaFim = s.Window.End.String()
	}
	return dto
}
