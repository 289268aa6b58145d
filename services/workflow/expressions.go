package workflow

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ExpressionRequest is the JSON body for expression validation.
type ExpressionRequest struct {
	Expression string `json:"expression"`
}

// EvaluateRequest is the JSON body for template evaluation.
type EvaluateRequest struct {
	Template string         `json:"template"`
	Context  map[string]any `json:"context,omitempty"`
}

// HandleValidateExpression checks an expression for syntactic
// well-formedness without evaluating it. The editor calls this as the user
// types.
func (s *Service) HandleValidateExpression(w http.ResponseWriter, r *http.Request) {
	var req ExpressionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.evaluator.Validate(req.Expression); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"valid":   false,
			"message": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{"valid": true})
}

// HandleEvaluateExpression resolves a template against the supplied context
// and returns the result, preserving the raw type when the template is a
// single expression. Backs the editor's live preview.
func (s *Service) HandleEvaluateExpression(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.evaluator.EvaluateTemplate(req.Template, req.Context)
	if err != nil {
		slog.Debug("Expression evaluation failed", "error", err)
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{"result": result})
}
