package workflow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Step is the compiled form of a single node. Identity mirrors node identity
// 1:1. The type-specific fields live in Spec; MarshalJSON flattens them into
// the step object so the engine-facing JSON keeps its flat shape.
type Step struct {
	ID          string
	Type        string
	Name        string
	Description string
	Position    Position
	Spec        StepSpec
}

// MarshalJSON merges the base step fields with the variant's fields.
func (s Step) MarshalJSON() ([]byte, error) {
	doc := map[string]any{
		"id":          s.ID,
		"type":        s.Type,
		"name":        s.Name,
		"description": s.Description,
		"position":    s.Position,
	}
	if s.Spec != nil {
		raw, err := json.Marshal(s.Spec)
		if err != nil {
			return nil, err
		}
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
		for k, v := range fields {
			doc[k] = v
		}
	}
	return json.Marshal(doc)
}

// StepSpec is the type-specific portion of a compiled step. Exactly one
// variant exists per canonical step type; unknown types carry no variant.
type StepSpec interface {
	stepSpec()
}

// StartSpec carries the optional input schema for a start step.
type StartSpec struct {
	InputSchema any `json:"inputSchema,omitempty"`
}

// EndSpec carries the optional output schema for an end step.
type EndSpec struct {
	OutputSchema any `json:"outputSchema,omitempty"`
}

// AgentSpec configures an agent invocation step.
type AgentSpec struct {
	AgentRef      string            `json:"agentRef"`
	InputMapping  map[string]string `json:"inputMapping,omitempty"`
	RetryPolicy   map[string]any    `json:"retryPolicy,omitempty"`
	CredentialRef string            `json:"credentialRef,omitempty"`
}

// ActionSpec configures a built-in action step.
type ActionSpec struct {
	ActionType    string            `json:"actionType"`
	ActionConfig  map[string]any    `json:"actionConfig"`
	InputMapping  map[string]string `json:"inputMapping,omitempty"`
	RetryPolicy   map[string]any    `json:"retryPolicy,omitempty"`
	CredentialRef string            `json:"credentialRef,omitempty"`
}

// LoopSpec configures iteration over a collection.
type LoopSpec struct {
	LoopConfig LoopConfig `json:"loopConfig"`
}

// LoopConfig names the collection to iterate, the iteration cap, and the
// variable each item is bound to.
type LoopConfig struct {
	Collection    string `json:"collection"`
	MaxIterations int    `json:"maxIterations"`
	ItemVariable  string `json:"itemVariable"`
}

// ConditionSpec carries the branch expression of a condition step. Language
// is descriptive metadata for the editor; it does not select an interpreter.
type ConditionSpec struct {
	Expression string `json:"expression"`
	Language   string `json:"language"`
}

// ErrorHandlerSpec configures recovery behavior for failed steps.
type ErrorHandlerSpec struct {
	ErrorType      string `json:"errorType"`
	RecoveryAction string `json:"recoveryAction"`
	FallbackValue  any    `json:"fallbackValue,omitempty"`
}

// ChatSpec configures an interactive chat step.
type ChatSpec struct {
	WelcomeMessage string `json:"welcomeMessage"`
	WaitForInput   bool   `json:"waitForInput"`
}

// DisplaySpec configures a display step.
type DisplaySpec struct {
	DisplayFormat string `json:"displayFormat"`
	AutoRefresh   bool   `json:"autoRefresh"`
}

func (*StartSpec) stepSpec()        {}
func (*EndSpec) stepSpec()          {}
func (*AgentSpec) stepSpec()        {}
func (*ActionSpec) stepSpec()       {}
func (*LoopSpec) stepSpec()         {}
func (*ConditionSpec) stepSpec()    {}
func (*ErrorHandlerSpec) stepSpec() {}
func (*ChatSpec) stepSpec()         {}
func (*DisplaySpec) stepSpec()      {}

// CanonicalType normalizes a node's raw type tag into its canonical step
// type: a case-insensitive "Node" suffix is stripped and the remainder
// lowercased ("AgentNode" -> "agent"); anything else is just lowercased. An
// empty tag defaults to "agent".
func CanonicalType(tag string) string {
	if tag == "" {
		return "agent"
	}
	lower := strings.ToLower(tag)
	if strings.HasSuffix(lower, "node") && len(lower) > len("node") {
		return lower[:len(lower)-len("node")]
	}
	return lower
}

// TransformFunc produces the type-specific fields of a step from a node's
// metadata. Transforms are pure and must not fail.
type TransformFunc func(node Node) StepSpec

// Registry maps canonical step types to their transform. Types without an
// entry compile to a base step with no type-specific fields, so unknown node
// types always pass through.
type Registry map[string]TransformFunc

// NewRegistry creates a registry populated with all built-in step transforms.
func NewRegistry() Registry {
	return Registry{
		"start":        transformStart,
		"end":          transformEnd,
		"agent":        transformAgent,
		"action":       transformAction,
		"loop":         transformLoop,
		"condition":    transformCondition,
		"errorhandler": transformErrorHandler,
		"chat":         transformChat,
		"display":      transformDisplay,
	}
}

// Transform lowers a node into its compiled step. It is total: any node,
// including one with an unknown or missing type tag, yields a valid step.
func (r Registry) Transform(node Node) Step {
	step := Step{
		ID:          node.ID,
		Type:        CanonicalType(node.Type),
		Name:        node.Data.Label,
		Description: node.Data.Description,
		Position:    node.Position,
	}
	if fn, ok := r[step.Type]; ok {
		step.Spec = fn(node)
	}
	return step
}

func transformStart(node Node) StepSpec {
	return &StartSpec{InputSchema: node.Data.Metadata["inputSchema"]}
}

func transformEnd(node Node) StepSpec {
	return &EndSpec{OutputSchema: node.Data.Metadata["outputSchema"]}
}

func transformAgent(node Node) StepSpec {
	return &AgentSpec{
		AgentRef:      metaString(node, "agentId", ""),
		InputMapping:  inputMapping(node),
		RetryPolicy:   metaMap(node, "retryPolicy"),
		CredentialRef: metaString(node, "credentialId", ""),
	}
}

func transformAction(node Node) StepSpec {
	config := metaMap(node, "actionConfig")
	if config == nil {
		config = map[string]any{}
	}
	return &ActionSpec{
		ActionType:    metaString(node, "actionType", "custom"),
		ActionConfig:  config,
		InputMapping:  inputMapping(node),
		RetryPolicy:   metaMap(node, "retryPolicy"),
		CredentialRef: metaString(node, "credentialId", ""),
	}
}

func transformLoop(node Node) StepSpec {
	return &LoopSpec{LoopConfig: LoopConfig{
		Collection:    metaString(node, "collection", ""),
		MaxIterations: metaInt(node, "maxIterations", 10),
		ItemVariable:  metaString(node, "itemVariable", "item"),
	}}
}

func transformCondition(node Node) StepSpec {
	return &ConditionSpec{
		Expression: metaString(node, "expression", ""),
		Language:   metaString(node, "language", "javascript"),
	}
}

func transformErrorHandler(node Node) StepSpec {
	return &ErrorHandlerSpec{
		ErrorType:      metaString(node, "errorType", "all"),
		RecoveryAction: metaString(node, "recoveryAction", "continue"),
		FallbackValue:  node.Data.Metadata["fallbackValue"],
	}
}

func transformChat(node Node) StepSpec {
	return &ChatSpec{
		WelcomeMessage: metaString(node, "welcomeMessage", "Hello! How can I help you?"),
		WaitForInput:   metaBool(node, "waitForInput", true),
	}
}

func transformDisplay(node Node) StepSpec {
	return &DisplaySpec{
		DisplayFormat: metaString(node, "displayFormat", "json"),
		AutoRefresh:   metaBool(node, "autoRefresh", true),
	}
}

// inputMapping carries the generic "parameters" payload through unchanged,
// coercing non-string values to text. Template expressions inside values stay
// unevaluated; resolution happens at execution time, not compile time. An
// empty or absent payload omits the field entirely.
func inputMapping(node Node) map[string]string {
	params := metaMap(node, "parameters")
	if len(params) == 0 {
		return nil
	}
	mapping := make(map[string]string, len(params))
	for key, value := range params {
		mapping[key] = coerceString(value)
	}
	return mapping
}

func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		if raw, err := json.Marshal(t); err == nil {
			return string(raw)
		}
		return fmt.Sprintf("%v", t)
	}
}

func metaString(node Node, key, fallback string) string {
	if s, ok := node.Data.Metadata[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func metaMap(node Node, key string) map[string]any {
	if m, ok := node.Data.Metadata[key].(map[string]any); ok {
		return m
	}
	return nil
}

func metaInt(node Node, key string, fallback int) int {
	switch v := node.Data.Metadata[key].(type) {
	case int:
		return v
	case float64:
		// JSON numbers decode as float64
		return int(v)
	default:
		return fallback
	}
}

func metaBool(node Node, key string, fallback bool) bool {
	if b, ok := node.Data.Metadata[key].(bool); ok {
		return b
	}
	return fallback
}
