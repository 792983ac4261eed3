package domain

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Logic combines the children of a filter group.
type Logic string

const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

// Operator is a leaf comparison.
type Operator string

const (
	OpEquals      Operator = "="
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpStartsWith  Operator = "starts_with"
	OpGreater     Operator = ">"
	OpLess        Operator = "<"
	OpGreaterEq   Operator = ">="
	OpLessEq      Operator = "<="
	OpBetween     Operator = "between"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
)

// FilterGroup is an AND/OR node. An empty Conditions list matches everything.
type FilterGroup struct {
	Logic      Logic        `json:"logic"`
	Conditions []FilterNode `json:"conditions"`
}

// FilterCondition is a leaf comparing one field with a value.
type FilterCondition struct {
	Field    string   `json:"field_key"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// FilterNode holds exactly one of Group or Condition. Trees are decoded top
// down, so a node never refers back to an ancestor.
type FilterNode struct {
	Group     *FilterGroup
	Condition *FilterCondition
}

// GroupNode wraps a group as a tree node.
func GroupNode(logic Logic, children ...FilterNode) FilterNode {
	return FilterNode{Group: &FilterGroup{Logic: logic, Conditions: children}}
}

// ConditionNode wraps a condition as a tree node.
func ConditionNode(field string, op Operator, value any) FilterNode {
	return FilterNode{Condition: &FilterCondition{Field: field, Operator: op, Value: value}}
}

// MatchAll is the filter of a profile with no conditions configured.
func MatchAll() FilterGroup {
	return FilterGroup{Logic: LogicAnd, Conditions: []FilterNode{}}
}

// MarshalJSON writes the node as either a group or a condition object.
func (n FilterNode) MarshalJSON() ([]byte, error) {
	switch {
	case n.Group != nil:
		return json.Marshal(n.Group)
	case n.Condition != nil:
		return json.Marshal(n.Condition)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a group when the object carries "logic" or
// "conditions", and a condition otherwise.
func (n *FilterNode) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*n = FilterNode{}
		return nil
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &keys); err != nil {
		return eris.Wrap(err, "domain: filter node must be an object")
	}
	_, hasLogic := keys["logic"]
	_, hasConditions := keys["conditions"]
	if hasLogic || hasConditions {
		var group FilterGroup
		if err := json.Unmarshal(trimmed, &group); err != nil {
			return err
		}
		*n = FilterNode{Group: &group}
		return nil
	}
	var cond FilterCondition
	if err := json.Unmarshal(trimmed, &cond); err != nil {
		return err
	}
	if cond.Field == "" {
		if raw, ok := keys["field"]; ok {
			if err := json.Unmarshal(raw, &cond.Field); err != nil {
				return err
			}
		}
	}
	*n = FilterNode{Condition: &cond}
	return nil
}

// FilterGroupFromJSON decodes a persisted filter tree. Empty input decodes to
// MatchAll.
func FilterGroupFromJSON(data []byte) (FilterGroup, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return MatchAll(), nil
	}
	var group FilterGroup
	if err := json.Unmarshal(data, &group); err != nil {
		return FilterGroup{}, err
	}
	if group.Logic == "" {
		group.Logic = LogicAnd
	}
	if group.Conditions == nil {
		group.Conditions = []FilterNode{}
	}
	return group, nil
}
