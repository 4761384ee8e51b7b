package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruralis/benefit-engine/api"
	"github.com/ruralis/benefit-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	handler := api.NewHandler(store, zerolog.Nop())
	router := api.NewRouter(handler, []string{"*"})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, server *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(server.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func loadScenario(t *testing.T, server *httptest.Server) {
	t.Helper()
	resp := postJSON(t, server, "/api/scenarios/load", map[string]any{})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// =============================================================================
// REGISTRATION ENDPOINT TESTS
// =============================================================================

func TestAPI_CreateAndGetPerson(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server, "/api/persons", map[string]any{
		"id": "p-1", "name": "João Pereira", "entity": "fisica",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	getResp, err := http.Get(server.URL + "/api/persons/p-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var person map[string]any
	decodeJSON(t, getResp, &person)
	assert.Equal(t, "João Pereira", person["name"])
	assert.Equal(t, "fisica", person["entity"])
	assert.Equal(t, true, person["active"])
}

func TestAPI_CreatePersonValidatesEntity(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server, "/api/persons", map[string]any{
		"id": "p-1", "name": "João", "entity": "estrangeira",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GetUnknownPersonIs404(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/persons/ghost")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_EffectiveAreaRecalculationEndpoint(t *testing.T) {
	server := newTestServer(t)
	loadScenario(t, server)

	// João: owns 10 alq, leases out 4+2 in 2025.
	resp := postJSON(t, server, "/api/persons/p-joao/effective-area/recalculate?year=2025", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap map[string]any
	decodeJSON(t, resp, &snap)
	assert.Equal(t, 10.0, snap["owned_area"])
	assert.Equal(t, 6.0, snap["leased_out_area"])
	assert.Equal(t, 4.0, snap["effective_area"])
}

// =============================================================================
// EVALUATION ENDPOINT TESTS
// =============================================================================

func TestAPI_EvaluateReturnsPortugueseWireFields(t *testing.T) {
	server := newTestServer(t)
	loadScenario(t, server)

	// Ana: 5 alq, seed subsidy -> 450 kg at R$0.80 = R$360.
	resp := postJSON(t, server, "/api/evaluate", map[string]any{
		"person_id":       "p-ana",
		"program_id":      "sementes",
		"evaluation_date": "2025-06-01",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]any
	decodeJSON(t, resp, &result)
	assert.Equal(t, true, result["aplicavel"])
	assert.Equal(t, true, result["permitido"])
	assert.Equal(t, 450.0, result["quantidade"])
	assert.Equal(t, 360.0, result["valorCalculado"])
	assert.Equal(t, "sementes-ate-6-alq", result["regraAplicadaId"])

	details, ok := result["calculoDetalhes"].(map[string]any)
	require.True(t, ok, "expected calculoDetalhes breakdown")
	assert.Equal(t, 0.8, details["valorUnitario"])
	assert.Equal(t, "2025-01-01", details["janelaInicio"])
	assert.Equal(t, "2025-12-31", details["janelaFim"])
}

func TestAPI_EvaluateTenantCarriesApportionment(t *testing.T) {
	server := newTestServer(t)
	loadScenario(t, server)

	// Maria leases 4 of João's 10 alq; fertilizer owner limit is 1000 kg.
	resp := postJSON(t, server, "/api/evaluate", map[string]any{
		"person_id":       "p-maria",
		"program_id":      "adubo",
		"evaluation_date": "2025-06-01",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]any
	decodeJSON(t, resp, &result)
	assert.Equal(t, true, result["permitido"])
	assert.Equal(t, 400.0, result["quantidade"])

	details := result["calculoDetalhes"].(map[string]any)
	rateio, ok := details["rateio"].(map[string]any)
	require.True(t, ok, "expected rateio breakdown for a tenant")
	assert.Equal(t, 400.0, rateio["total"])

	shares := rateio["propriedades"].([]any)
	require.Len(t, shares, 1)
	share := shares[0].(map[string]any)
	assert.Equal(t, "prop-boa-vista", share["propriedadeId"])
	assert.Equal(t, 40.0, share["percentualPropriedade"])
}

func TestAPI_EvaluateWithReserveRecordsTheRequest(t *testing.T) {
	server := newTestServer(t)
	loadScenario(t, server)

	resp := postJSON(t, server, "/api/evaluate", map[string]any{
		"person_id":       "p-ana",
		"program_id":      "sementes",
		"evaluation_date": "2025-06-01",
		"reserve":         true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]any
	decodeJSON(t, resp, &result)
	solicitacaoID, _ := result["solicitacaoId"].(string)
	require.NotEmpty(t, solicitacaoID)

	// The reservation shows up in the producer's request history.
	histResp, err := http.Get(server.URL + "/api/persons/p-ana/requests")
	require.NoError(t, err)
	var requests []map[string]any
	decodeJSON(t, histResp, &requests)
	require.Len(t, requests, 1)
	assert.Equal(t, solicitacaoID, requests[0]["id"])
	assert.Equal(t, "pending", requests[0]["status"])

	// A second reserve in the same window is refused.
	again := postJSON(t, server, "/api/evaluate", map[string]any{
		"person_id":       "p-ana",
		"program_id":      "sementes",
		"evaluation_date": "2025-07-01",
		"reserve":         true,
	})
	require.Equal(t, http.StatusOK, again.StatusCode)
	var refused map[string]any
	decodeJSON(t, again, &refused)
	assert.Equal(t, false, refused["permitido"])
	assert.Equal(t, "2026-01-01", refused["proximaLiberacao"])
}

func TestAPI_EvaluateUnknownProgramIs404(t *testing.T) {
	server := newTestServer(t)
	loadScenario(t, server)

	resp := postJSON(t, server, "/api/evaluate", map[string]any{
		"person_id":       "p-ana",
		"program_id":      "inexistente",
		"evaluation_date": "2025-06-01",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_EvaluateRejectsBadDate(t *testing.T) {
	server := newTestServer(t)
	loadScenario(t, server)

	resp := postJSON(t, server, "/api/evaluate", map[string]any{
		"person_id":       "p-ana",
		"program_id":      "sementes",
		"evaluation_date": "01/06/2025",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// QUOTA CHECK AND WORKFLOW TESTS
// =============================================================================

func TestAPI_LimitCheckEndpoint(t *testing.T) {
	server := newTestServer(t)
	loadScenario(t, server)

	resp, err := http.Get(server.URL + "/api/programs/sementes/limit-check?person=p-ana&date=2025-06-01")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status map[string]any
	decodeJSON(t, resp, &status)
	assert.Equal(t, true, status["permitido"])
	assert.Equal(t, 450.0, status["saldo"])
	assert.Equal(t, 0.0, status["consumido"])
}

func TestAPI_RequestStatusWorkflow(t *testing.T) {
	server := newTestServer(t)
	loadScenario(t, server)

	resp := postJSON(t, server, "/api/evaluate", map[string]any{
		"person_id":       "p-ana",
		"program_id":      "sementes",
		"evaluation_date": "2025-06-01",
		"reserve":         true,
	})
	var result map[string]any
	decodeJSON(t, resp, &result)
	id := result["solicitacaoId"].(string)

	statusResp := postJSON(t, server, "/api/requests/"+id+"/status", map[string]any{"status": "approved"})
	defer statusResp.Body.Close()
	require.Equal(t, http.StatusOK, statusResp.StatusCode)

	// Approved consumption now shows in the plain quota check.
	check, err := http.Get(server.URL + "/api/programs/sementes/limit-check?person=p-ana&date=2025-08-01")
	require.NoError(t, err)
	var status map[string]any
	decodeJSON(t, check, &status)
	assert.Equal(t, false, status["permitido"])
	assert.Equal(t, 450.0, status["consumido"])
}

func TestAPI_ProgramRoundTripThroughFactorySchema(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server, "/api/programs", map[string]any{
		"config": map[string]any{
			"id":     "feira",
			"name":   "Apoio à Feira do Produtor",
			"type":   "assistencia",
			"active": true,
			"rules": []map[string]any{
				{
					"id":         "feira-padrao",
					"condition":  map[string]any{"op": "maior_que", "attribute": "area_efetiva", "value": 0},
					"unit_value": 10.0,
					"unit":       "unidade",
				},
			},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	getResp, err := http.Get(server.URL + "/api/programs/feira")
	require.NoError(t, err)
	var program map[string]any
	decodeJSON(t, getResp, &program)
	assert.Equal(t, "Apoio à Feira do Produtor", program["name"])
	rules := program["rules"].([]any)
	require.Len(t, rules, 1)
}

func TestAPI_HealthEndpoint(t *testing.T) {
	server := newTestServer(t)
	resp, err := http.Get(server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
