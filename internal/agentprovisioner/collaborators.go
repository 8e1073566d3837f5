package agentprovisioner

import (
	"fmt"
)

// Collaborator is a sub-agent associated with a supervisor agent
type Collaborator struct {
	AliasArn                 string
	Name                     string
	Instruction              string
	RelayConversationHistory string
}

// parseCollaborators reads the associateCollaborators property entries
func parseCollaborators(items []any) ([]Collaborator, error) {
	out := make([]Collaborator, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("associateCollaborators[%d]: expected an object, got %T", i, item)
		}
		c := Collaborator{
			AliasArn:                 stringField(m, "sub_agent_alias_arn"),
			Name:                     stringField(m, "sub_agent_association_name"),
			Instruction:              stringField(m, "sub_agent_instruction"),
			RelayConversationHistory: stringField(m, "relay_conversation_history"),
		}
		if c.AliasArn == "" || c.Name == "" || c.Instruction == "" {
			return nil, fmt.Errorf("associateCollaborators[%d]: sub_agent_alias_arn, sub_agent_association_name and sub_agent_instruction are required", i)
		}
		out = append(out, c)
	}
	return out, nil
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
