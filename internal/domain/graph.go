package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NodeRecord is one vertex of a code-analysis export. ID is the merge key
// and Type drives the stored label; every other key of the source object
// rides along in Props untouched.
type NodeRecord struct {
	ID    string
	Type  string
	Props map[string]any
}

func (n *NodeRecord) UnmarshalJSON(data []byte) error {
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, _ := raw["id"].(string)
	typ, _ := raw["type"].(string)
	n.ID = strings.TrimSpace(id)
	n.Type = strings.TrimSpace(typ)
	delete(raw, "id")
	delete(raw, "type")
	n.Props = raw
	return nil
}

// EdgeRecord is a directed, typed connection between two node ids. Edges
// carry no properties beyond their type; extra keys in the source object
// are dropped on decode.
type EdgeRecord struct {
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
	Type     string `json:"type"`
}

// UnmarshalJSON trims endpoint ids the same way node ids are trimmed, so
// a padded id matches the node it references instead of silently missing
// in the edge MATCH.
func (e *EdgeRecord) UnmarshalJSON(data []byte) error {
	type plain EdgeRecord
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	e.SourceID = strings.TrimSpace(p.SourceID)
	e.TargetID = strings.TrimSpace(p.TargetID)
	e.Type = strings.TrimSpace(p.Type)
	return nil
}

// GraphPayload is the full input document. Either array may be absent in
// the source JSON; absent means zero records, not an error.
type GraphPayload struct {
	Nodes []NodeRecord `json:"nodes"`
	Edges []EdgeRecord `json:"edges"`
}

// ParseGraphPayload decodes and shape-checks an export document. The only
// validation applied is structural: every node needs an id and a type,
// every edge needs both endpoint ids and a type.
func ParseGraphPayload(data []byte) (*GraphPayload, error) {
	var payload GraphPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("domain: parse graph payload: %w", err)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (p *GraphPayload) Validate() error {
	for i, n := range p.Nodes {
		if n.ID == "" {
			return fmt.Errorf("domain: nodes[%d]: missing id", i)
		}
		if n.Type == "" {
			return fmt.Errorf("domain: nodes[%d]: missing type", i)
		}
	}
	for i, e := range p.Edges {
		if e.SourceID == "" {
			return fmt.Errorf("domain: edges[%d]: missing sourceId", i)
		}
		if e.TargetID == "" {
			return fmt.Errorf("domain: edges[%d]: missing targetId", i)
		}
		if e.Type == "" {
			return fmt.Errorf("domain: edges[%d]: missing type", i)
		}
	}
	return nil
}
