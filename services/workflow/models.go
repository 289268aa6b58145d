package workflow

// Node represents a single element drawn on the workflow canvas.
type Node struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// Position holds x/y coordinates for rendering the node on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData holds the display and configuration data for a node. Metadata
// carries the type-specific payload fields the editor attaches per node type.
type NodeData struct {
	Label       string         `json:"label"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Edge represents a directed connection between two nodes. SourceHandle
// discriminates among multiple outputs of one source node, e.g. the "true"
// and "false" outcomes of a condition node.
type Edge struct {
	ID           string         `json:"id"`
	Source       string         `json:"source"`
	Target       string         `json:"target"`
	Label        string         `json:"label,omitempty"`
	Type         string         `json:"type,omitempty"`
	SourceHandle string         `json:"sourceHandle,omitempty"`
	TargetHandle string         `json:"targetHandle,omitempty"`
	Animated     bool           `json:"animated,omitempty"`
	Style        map[string]any `json:"style,omitempty"`
	LabelStyle   map[string]any `json:"labelStyle,omitempty"`
}

// DependencyMap maps a step ID to the ordered source references feeding it.
// A reference is either a bare step ID or "stepId:branch" when the edge came
// from a specific branch of its source. Steps with no incoming edges have no
// entry at all, never an empty list.
type DependencyMap map[string][]string

// ConditionMap maps a condition step's ID to its resolved branch targets.
type ConditionMap map[string]ConditionBranches

// ConditionBranches names the step executed for each outcome of a condition.
// A branch with no outgoing edge carries the EndTarget sentinel.
type ConditionBranches struct {
	TrueBranch  string `json:"trueBranch"`
	FalseBranch string `json:"falseBranch"`
}

// EndTarget marks a condition branch that terminates the workflow.
const EndTarget = "END"

// Trigger describes how a workflow run is initiated. The compiler carries
// triggers through untouched; interpreting them is the execution engine's job.
type Trigger struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// WorkflowDefinition is the executable body of a compiled workflow.
type WorkflowDefinition struct {
	Steps        []Step        `json:"steps"`
	Dependencies DependencyMap `json:"dependencies"`
	Conditions   ConditionMap  `json:"conditions"`
}

// CompiledWorkflow is the canonical document handed to the execution engine.
type CompiledWorkflow struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Definition  WorkflowDefinition `json:"definition"`
	Triggers    []Trigger          `json:"triggers"`
}
