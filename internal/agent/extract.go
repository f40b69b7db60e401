package agent

import (
	"encoding/json"
	"strings"
)

// Response is the subset of the agent flow's prediction response that the
// adapter reads.
type Response struct {
	AgentReasoning []AgentReasoning `json:"agentReasoning"`
}

// AgentReasoning is one agent step of the flow.
type AgentReasoning struct {
	AgentName string     `json:"agentName"`
	UsedTools []UsedTool `json:"usedTools"`
}

// UsedTool is a tool invocation made by an agent step.
type UsedTool struct {
	Tool      string         `json:"tool"`
	ToolInput map[string]any `json:"toolInput"`
}

// Match selects the value to extract from a response.
type Match struct {
	// AgentMarker must be contained in the agent name (substring match).
	AgentMarker string
	// Tool must equal the tool identifier exactly.
	Tool string
	// Field names the toolInput entry holding the result text.
	Field string
}

// DefaultMatch targets the publishing agent's webhook call.
var DefaultMatch = Match{
	AgentMarker: "Autonomous LinkedIn Content Publisher Agent",
	Tool:        "make_webhook",
	Field:       "message",
}

// Extract decodes body and returns the text selected by m.
//
// The first agent whose name contains m.AgentMarker is used, and within it the
// first tool call equal to m.Tool. Every miss fails with
// *MalformedResponseError; there is no partial result.
func Extract(body []byte, m Match) (string, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", malformed("decode body: %v", err)
	}

	var agent *AgentReasoning
	for i := range resp.AgentReasoning {
		if strings.Contains(resp.AgentReasoning[i].AgentName, m.AgentMarker) {
			agent = &resp.AgentReasoning[i]
			break
		}
	}
	if agent == nil {
		return "", malformed("no agent named like %q", m.AgentMarker)
	}

	var tool *UsedTool
	for i := range agent.UsedTools {
		if agent.UsedTools[i].Tool == m.Tool {
			tool = &agent.UsedTools[i]
			break
		}
	}
	if tool == nil {
		return "", malformed("agent %q did not use tool %q", agent.AgentName, m.Tool)
	}

	raw, ok := tool.ToolInput[m.Field]
	if !ok {
		return "", malformed("tool %q input has no %q field", m.Tool, m.Field)
	}
	text, ok := raw.(string)
	if !ok {
		return "", malformed("tool %q field %q is %T, not a string", m.Tool, m.Field, raw)
	}
	if strings.TrimSpace(text) == "" {
		return "", malformed("tool %q field %q is empty", m.Tool, m.Field)
	}
	return text, nil
}
