package workflow

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"workflow-studio/api/services/expression"
)

// Service wires the graph compiler, validator, and expression evaluator
// behind the editor-facing HTTP API.
type Service struct {
	compiler  *Compiler
	evaluator *expression.Evaluator
}

// NewService creates a Service with the built-in step transforms and the
// given expression evaluator.
func NewService(evaluator *expression.Evaluator) *Service {
	return &Service{
		compiler:  NewCompiler(NewRegistry()),
		evaluator: evaluator,
	}
}

// jsonMiddleware sets the Content-Type header to application/json.
func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware tags every response and log line with a request id.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		slog.Debug("Handling request", "id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// LoadRoutes registers workflow and expression HTTP handlers on the given
// router.
func (s *Service) LoadRoutes(parentRouter *mux.Router) {
	router := parentRouter.PathPrefix("/workflows").Subrouter()
	router.StrictSlash(false)
	router.Use(jsonMiddleware, requestIDMiddleware)

	router.HandleFunc("/compile", s.HandleCompileWorkflow).Methods("POST")
	router.HandleFunc("/validate", s.HandleValidateWorkflow).Methods("POST")

	exprRouter := parentRouter.PathPrefix("/expressions").Subrouter()
	exprRouter.StrictSlash(false)
	exprRouter.Use(jsonMiddleware, requestIDMiddleware)

	exprRouter.HandleFunc("/validate", s.HandleValidateExpression).Methods("POST")
	exprRouter.HandleFunc("/evaluate", s.HandleEvaluateExpression).Methods("POST")
}
