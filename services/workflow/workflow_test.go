package workflow

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workflow-studio/api/services/expression"
)

func newTestService() *Service {
	return NewService(expression.New())
}

func setupRouter(svc *Service) *mux.Router {
	router := mux.NewRouter()
	svc.LoadRoutes(router.PathPrefix("/api/v1").Subrouter())
	return router
}

func postJSON(t *testing.T, router *mux.Router, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleCompileWorkflow_Success(t *testing.T) {
	router := setupRouter(newTestService())
	nodes, edges := testGraph()

	w := postJSON(t, router, "/api/v1/workflows/compile", CompileRequest{
		Name:  "Review Flow",
		Nodes: nodes,
		Edges: edges,
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var doc map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&doc))
	assert.Equal(t, "Review Flow", doc["name"])

	definition := doc["definition"].(map[string]any)
	steps := definition["steps"].([]any)
	assert.Len(t, steps, len(nodes))

	first := steps[0].(map[string]any)
	assert.Equal(t, "start", first["type"])
}

func TestHandleCompileWorkflow_EmptyGraphStillCompiles(t *testing.T) {
	router := setupRouter(newTestService())

	w := postJSON(t, router, "/api/v1/workflows/compile", CompileRequest{Name: "Empty"})

	assert.Equal(t, http.StatusOK, w.Code)

	var doc map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&doc))
	definition := doc["definition"].(map[string]any)
	assert.Equal(t, []any{}, definition["steps"])
	assert.Equal(t, map[string]any{}, definition["dependencies"])
	assert.Equal(t, []any{}, doc["triggers"])
}

func TestHandleCompileWorkflow_InvalidBody(t *testing.T) {
	router := setupRouter(newTestService())

	req := httptest.NewRequest("POST", "/api/v1/workflows/compile", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleValidateWorkflow_Valid(t *testing.T) {
	router := setupRouter(newTestService())
	nodes, edges := testGraph()

	w := postJSON(t, router, "/api/v1/workflows/validate", ValidateRequest{Nodes: nodes, Edges: edges})

	assert.Equal(t, http.StatusOK, w.Code)

	var result map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, true, result["valid"])
}

func TestHandleValidateWorkflow_Invalid(t *testing.T) {
	router := setupRouter(newTestService())

	w := postJSON(t, router, "/api/v1/workflows/validate", ValidateRequest{})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var result map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, false, result["valid"])
	assert.Equal(t, RuleNoNodes, result["ruleId"])
	assert.NotEmpty(t, result["message"])
}

func TestHandleValidateExpression(t *testing.T) {
	router := setupRouter(newTestService())

	w := postJSON(t, router, "/api/v1/expressions/validate", ExpressionRequest{Expression: "temperature > 25"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, router, "/api/v1/expressions/validate", ExpressionRequest{Expression: "1+"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var result map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, false, result["valid"])
	assert.NotEmpty(t, result["message"])
}

func TestHandleEvaluateExpression_Template(t *testing.T) {
	router := setupRouter(newTestService())

	w := postJSON(t, router, "/api/v1/expressions/evaluate", EvaluateRequest{
		Template: "Hello {{name}}",
		Context:  map[string]any{"name": "Ada"},
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var result map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, "Hello Ada", result["result"])
}

func TestHandleEvaluateExpression_PreservesRawType(t *testing.T) {
	router := setupRouter(newTestService())

	w := postJSON(t, router, "/api/v1/expressions/evaluate", EvaluateRequest{
		Template: "{{ 2*3 }}",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var result map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	// Numeric result, not the string "6"
	assert.Equal(t, float64(6), result["result"])
}

func TestHandleEvaluateExpression_Error(t *testing.T) {
	router := setupRouter(newTestService())

	w := postJSON(t, router, "/api/v1/expressions/evaluate", EvaluateRequest{
		Template: "{{ 1 + }}",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var result map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.NotEmpty(t, result["message"])
}
