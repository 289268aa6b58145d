package workflow

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// CompileRequest is the JSON body sent by the editor to compile a graph.
type CompileRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Nodes       []Node    `json:"nodes"`
	Edges       []Edge    `json:"edges"`
	Triggers    []Trigger `json:"triggers,omitempty"`
}

// ValidateRequest is the JSON body sent by the editor to validate a graph.
type ValidateRequest struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// HandleCompileWorkflow lowers the submitted graph into the canonical
// workflow document. Compilation is total, so this always succeeds for a
// well-formed request body; callers gate runnability on the validate
// endpoint.
func (s *Service) HandleCompileWorkflow(w http.ResponseWriter, r *http.Request) {
	var req CompileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc := s.compiler.Compile(req.Nodes, req.Edges, req.Name, req.Description, req.Triggers)
	slog.Debug("Compiled workflow", "name", req.Name, "steps", len(doc.Definition.Steps))

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(doc)
}

// HandleValidateWorkflow runs the structural validation rules over the
// submitted graph and reports the first violation, if any.
func (s *Service) HandleValidateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := Validate(req.Nodes, req.Edges); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			slog.Debug("Workflow validation failed", "ruleId", verr.RuleID)
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]any{
				"valid":   false,
				"message": verr.Message,
				"ruleId":  verr.RuleID,
			})
			return
		}
		slog.Error("Workflow validation error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{"valid": true})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
