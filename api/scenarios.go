/*
scenarios.go - demo data loader

PURPOSE:
  Seeds the database with a small municipality worth of registrations and
  the default program catalog, so the API can be exercised end to end
  without hand-entering data.

SCENARIO:
  - João Pereira owns Sítio Boa Vista (10 alqueires) and leases 4 alq to
    Maria and 2 alq to Carlos for 2025. His own effective area is 4 alq.
  - Ana Souza farms her own 5-alqueire parcel with no leases.
  - Pedro Lima is an inactive registration (evaluations must refuse him).
  - All four preset programs (seeds, fertilizer, tractor hours, limestone)
    are installed.

SEE ALSO:
  - programs/programs.go: Preset program definitions
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ruralis/benefit-engine/engine"
	"github.com/ruralis/benefit-engine/programs"
)

// LoadScenario seeds the demo registrations and default programs.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if err := h.loadDemoData(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load scenario", err)
		return
	}
	h.Logger.Info().Msg("demo scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded"})
}

// ResetDatabase wipes all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset database", err)
		return
	}
	h.Logger.Info().Msg("database reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) loadDemoData(ctx context.Context) error {
	persons := []engine.Person{
		{ID: "p-joao", Name: "João Pereira", Entity: engine.EntityIndividual, Active: true},
		{ID: "p-maria", Name: "Maria Oliveira", Entity: engine.EntityIndividual, Active: true},
		{ID: "p-carlos", Name: "Carlos Mendes", Entity: engine.EntityIndividual, Active: true},
		{ID: "p-ana", Name: "Ana Souza", Entity: engine.EntityIndividual, Active: true},
		{ID: "p-pedro", Name: "Pedro Lima", Entity: engine.EntityIndividual, Active: false},
	}
	for _, p := range persons {
		if err := h.Store.SavePerson(ctx, p); err != nil {
			return fmt.Errorf("person %s: %w", p.ID, err)
		}
	}

	properties := []engine.Property{
		{
			ID:        "prop-boa-vista",
			OwnerID:   "p-joao",
			Name:      "Sítio Boa Vista",
			TotalArea: engine.NewQuantity(10, engine.UnitAlqueire),
			Tenure:    engine.TenureOwned,
			Rural:     true,
		},
		{
			ID:        "prop-recanto",
			OwnerID:   "p-ana",
			Name:      "Chácara Recanto",
			TotalArea: engine.NewQuantity(5, engine.UnitAlqueire),
			Tenure:    engine.TenureOwned,
			Rural:     true,
		},
	}
	for _, p := range properties {
		if err := h.Store.SaveProperty(ctx, p); err != nil {
			return fmt.Errorf("property %s: %w", p.ID, err)
		}
	}

	leases := []engine.Lease{
		{
			ID:           "lease-maria-2025",
			PropertyID:   "prop-boa-vista",
			TenantID:     "p-maria",
			AreaCeded:    engine.NewQuantity(4, engine.UnitAlqueire),
			AreaReceived: engine.NewQuantity(4, engine.UnitAlqueire),
			Year:         2025,
		},
		{
			ID:           "lease-carlos-2025",
			PropertyID:   "prop-boa-vista",
			TenantID:     "p-carlos",
			AreaCeded:    engine.NewQuantity(2, engine.UnitAlqueire),
			AreaReceived: engine.NewQuantity(2, engine.UnitAlqueire),
			Year:         2025,
		},
	}
	for _, l := range leases {
		if err := h.Store.SaveLease(ctx, l); err != nil {
			return fmt.Errorf("lease %s: %w", l.ID, err)
		}
	}

	for _, cfg := range programs.DefaultCatalog() {
		if err := h.Store.SaveProgram(ctx, cfg.Program, cfg.Rules); err != nil {
			return fmt.Errorf("program %s: %w", cfg.Program.ID, err)
		}
	}

	// Precompute 2025 effective areas so the snapshots are browsable
	// immediately after loading.
	calc := &engine.AreaCalculator{Properties: h.Store, Leases: h.Store, Snapshots: h.Store}
	for _, p := range persons {
		if !p.Active {
			continue
		}
		if _, err := calc.Recalculate(ctx, p.ID, 2025); err != nil {
			return fmt.Errorf("effective area %s: %w", p.ID, err)
		}
	}
	return nil
}
