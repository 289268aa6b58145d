package workflow

// Compiler lowers a drawn graph into the canonical workflow document consumed
// by the execution engine.
type Compiler struct {
	registry Registry
}

// NewCompiler creates a Compiler with the given transform registry.
func NewCompiler(registry Registry) *Compiler {
	return &Compiler{registry: registry}
}

// Compile produces the workflow document for the given graph. It is total and
// order-preserving: one step per node, in node order, and it never fails — a
// malformed graph still compiles. Structural soundness is Validate's job, and
// a document is only runnable once validation passes.
func (c *Compiler) Compile(nodes []Node, edges []Edge, name, description string, triggers []Trigger) *CompiledWorkflow {
	steps := make([]Step, len(nodes))
	for i, node := range nodes {
		steps[i] = c.registry.Transform(node)
	}
	if triggers == nil {
		triggers = []Trigger{}
	}
	return &CompiledWorkflow{
		Name:        name,
		Description: description,
		Definition: WorkflowDefinition{
			Steps:        steps,
			Dependencies: resolveDependencies(edges),
			Conditions:   extractConditions(nodes, edges),
		},
		Triggers: triggers,
	}
}

// resolveDependencies derives the target -> sources adjacency from the edge
// list. References are appended in edge order and duplicates are kept; an
// edge from a specific branch is qualified as "source:branch".
func resolveDependencies(edges []Edge) DependencyMap {
	deps := make(DependencyMap)
	for _, edge := range edges {
		ref := edge.Source
		if edge.SourceHandle != "" {
			ref += ":" + edge.SourceHandle
		}
		deps[edge.Target] = append(deps[edge.Target], ref)
	}
	return deps
}

// extractConditions resolves the true/false successors of every condition
// node. Only the first edge per branch tag counts; later edges with the same
// tag are ignored. A condition node with neither branch connected is left out
// of the map — presence signals that real branching exists.
func extractConditions(nodes []Node, edges []Edge) ConditionMap {
	conditions := make(ConditionMap)
	for _, node := range nodes {
		if CanonicalType(node.Type) != "condition" {
			continue
		}

		var trueTarget, falseTarget string
		var hasTrue, hasFalse bool
		for _, edge := range edges {
			if edge.Source != node.ID {
				continue
			}
			switch edge.SourceHandle {
			case "true":
				if !hasTrue {
					trueTarget, hasTrue = edge.Target, true
				}
			case "false":
				if !hasFalse {
					falseTarget, hasFalse = edge.Target, true
				}
			}
		}
		if !hasTrue && !hasFalse {
			continue
		}

		branches := ConditionBranches{TrueBranch: EndTarget, FalseBranch: EndTarget}
		if hasTrue {
			branches.TrueBranch = trueTarget
		}
		if hasFalse {
			branches.FalseBranch = falseTarget
		}
		conditions[node.ID] = branches
	}
	return conditions
}
