package workflow

import (
	"fmt"
	"strings"
)

// Rule identifiers returned with validation failures, stable for programmatic
// handling by the editor.
const (
	RuleNoNodes           = "no_nodes"
	RuleNoStartNode       = "no_start_node"
	RuleNoEndNode         = "no_end_node"
	RuleMissingAgentRef   = "missing_agent_ref"
	RuleMissingActionType = "missing_action_type"
	RuleDisconnectedNode  = "disconnected_node"
)

// ValidationError reports the first structural rule a graph violates.
type ValidationError struct {
	RuleID  string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks the structural soundness of a graph. It is fail-fast: rules
// run in a fixed order and the first violation is returned. Compilation never
// consults this; callers must run it before treating a compiled document as
// runnable. Edge targets are not checked against the node set — referential
// integrity is the editor's responsibility.
func Validate(nodes []Node, edges []Edge) error {
	if len(nodes) == 0 {
		return &ValidationError{
			RuleID:  RuleNoNodes,
			Message: "workflow must contain at least one node",
		}
	}

	if !hasNodeOfType(nodes, "start") {
		return &ValidationError{
			RuleID:  RuleNoStartNode,
			Message: "workflow must contain a start node",
		}
	}

	if !hasNodeOfType(nodes, "end") {
		return &ValidationError{
			RuleID:  RuleNoEndNode,
			Message: "workflow must contain an end node",
		}
	}

	var unbound []string
	for _, node := range nodes {
		if CanonicalType(node.Type) == "agent" && metaString(node, "agentId", "") == "" {
			unbound = append(unbound, node.Data.Label)
		}
	}
	if len(unbound) > 0 {
		return &ValidationError{
			RuleID:  RuleMissingAgentRef,
			Message: fmt.Sprintf("agent nodes missing an agent reference: %s", strings.Join(unbound, ", ")),
		}
	}

	var untyped []string
	for _, node := range nodes {
		if CanonicalType(node.Type) == "action" && metaString(node, "actionType", "") == "" {
			untyped = append(untyped, node.Data.Label)
		}
	}
	if len(untyped) > 0 {
		return &ValidationError{
			RuleID:  RuleMissingActionType,
			Message: fmt.Sprintf("action nodes missing an action type: %s", strings.Join(untyped, ", ")),
		}
	}

	targets := make(map[string]bool, len(edges))
	for _, edge := range edges {
		targets[edge.Target] = true
	}
	var disconnected []string
	for _, node := range nodes {
		if CanonicalType(node.Type) == "start" {
			continue
		}
		if !targets[node.ID] {
			disconnected = append(disconnected, node.Data.Label)
		}
	}
	if len(disconnected) > 0 {
		return &ValidationError{
			RuleID:  RuleDisconnectedNode,
			Message: fmt.Sprintf("nodes with no incoming connection: %s", strings.Join(disconnected, ", ")),
		}
	}

	return nil
}

func hasNodeOfType(nodes []Node, canonical string) bool {
	for _, node := range nodes {
		if CanonicalType(node.Type) == canonical {
			return true
		}
	}
	return false
}
