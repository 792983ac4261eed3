// Package filter validates saved filter trees and compiles them into
// predicates over catalog records.
package filter

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/rpattn/catalog-export/internal/domain"
	"github.com/rpattn/catalog-export/internal/fields"
)

// Predicate reports whether a record matches a compiled filter tree.
type Predicate func(p *domain.Product) bool

func matchAll(*domain.Product) bool { return true }

// Validate checks a filter tree without compiling it for a particular run.
func Validate(root domain.FilterGroup, registry *fields.Registry) error {
	_, err := Compile(root, registry, domain.ExportContext{})
	return err
}

// Compile validates the tree and builds its predicate. Every problem found is
// reported in a single *domain.ValidationError. Conditions on keys the
// registry does not know are treated as always true.
//
// The returned predicate is not safe for concurrent use; compile once per run.
func Compile(root domain.FilterGroup, registry *fields.Registry, ec domain.ExportContext) (Predicate, error) {
	c := &compiler{
		registry: registry,
		ec:       ec,
		fold:     cases.Fold(),
		problems: &domain.ValidationError{},
	}
	pred := c.group("filters", &root)
	if err := c.problems.OrNil(); err != nil {
		return nil, err
	}
	return pred, nil
}

type compiler struct {
	registry *fields.Registry
	ec       domain.ExportContext
	fold     cases.Caser
	problems *domain.ValidationError
}

func (c *compiler) group(path string, g *domain.FilterGroup) Predicate {
	logic := domain.Logic(strings.ToLower(strings.TrimSpace(string(g.Logic))))
	if logic != domain.LogicAnd && logic != domain.LogicOr {
		c.problems.Add(path+".logic", "unsupported logic %q", g.Logic)
		return matchAll
	}
	if len(g.Conditions) == 0 {
		return matchAll
	}
	children := make([]Predicate, 0, len(g.Conditions))
	for i := range g.Conditions {
		childPath := fmt.Sprintf("%s.conditions[%d]", path, i)
		node := g.Conditions[i]
		switch {
		case node.Group != nil:
			children = append(children, c.group(childPath, node.Group))
		case node.Condition != nil:
			children = append(children, c.condition(childPath, node.Condition))
		default:
			c.problems.Add(childPath, "node is neither a group nor a condition")
		}
	}
	if logic == domain.LogicAnd {
		return func(p *domain.Product) bool {
			for _, child := range children {
				if !child(p) {
					return false
				}
			}
			return true
		}
	}
	return func(p *domain.Product) bool {
		for _, child := range children {
			if child(p) {
				return true
			}
		}
		return false
	}
}

func (c *compiler) condition(path string, cond *domain.FilterCondition) Predicate {
	key := strings.TrimSpace(cond.Field)
	if key == "" {
		c.problems.Add(path+".field", "field is required")
		return matchAll
	}
	field, ok := c.registry.Lookup(key)
	if !ok {
		zap.L().Warn("filter references unknown field, condition ignored",
			zap.String("path", path),
			zap.String("field", key),
		)
		return matchAll
	}
	op := domain.Operator(strings.ToLower(strings.TrimSpace(string(cond.Operator))))
	if !fields.Supports(field.Spec.Type, op) {
		c.problems.Add(path+".operator", "operator %q is not supported for %s field %q", cond.Operator, field.Spec.Type, key)
		return matchAll
	}
	switch field.Spec.Type {
	case domain.FieldTypeText:
		return c.text(path, field, op, cond.Value)
	case domain.FieldTypeNumeric:
		return c.numeric(path, field, op, cond.Value)
	case domain.FieldTypeDate:
		return c.date(path, field, op, cond.Value)
	case domain.FieldTypeBoolean:
		return c.boolean(path, field, cond.Value)
	case domain.FieldTypeRelation:
		return c.relation(path, field, op, cond.Value)
	case domain.FieldTypeSelect:
		return c.selectField(path, field, op, cond.Value)
	}
	c.problems.Add(path, "field %q has unsupported type %s", key, field.Spec.Type)
	return matchAll
}

func (c *compiler) resolve(field fields.Field, p *domain.Product) any {
	return field.Resolve(p, c.ec)
}

func (c *compiler) text(path string, field fields.Field, op domain.Operator, value any) Predicate {
	raw, ok := toText(value)
	if !ok {
		c.problems.Add(path+".value", "a text value is required")
		return matchAll
	}
	needle := c.fold.String(raw)
	var test func(string) bool
	switch op {
	case domain.OpEquals:
		test = func(s string) bool { return s == needle }
	case domain.OpContains, domain.OpNotContains:
		test = func(s string) bool { return strings.Contains(s, needle) }
	case domain.OpStartsWith:
		test = func(s string) bool { return strings.HasPrefix(s, needle) }
	}
	if op == domain.OpNotContains {
		return func(p *domain.Product) bool {
			for _, s := range textValues(c.resolve(field, p)) {
				if test(c.fold.String(s)) {
					return false
				}
			}
			return true
		}
	}
	return func(p *domain.Product) bool {
		for _, s := range textValues(c.resolve(field, p)) {
			if test(c.fold.String(s)) {
				return true
			}
		}
		return false
	}
}

func (c *compiler) numeric(path string, field fields.Field, op domain.Operator, value any) Predicate {
	if op == domain.OpBetween {
		lo, hi, ok := c.bounds(path, value, toFloat)
		if !ok {
			return matchAll
		}
		return func(p *domain.Product) bool {
			v, ok := toFloat(c.resolve(field, p))
			return ok && v >= lo && v <= hi
		}
	}
	target, ok := toFloat(value)
	if !ok {
		c.problems.Add(path+".value", "a numeric value is required")
		return matchAll
	}
	return func(p *domain.Product) bool {
		v, ok := toFloat(c.resolve(field, p))
		return ok && compareFloat(v, target, op)
	}
}

func (c *compiler) date(path string, field fields.Field, op domain.Operator, value any) Predicate {
	if op == domain.OpBetween {
		list, ok := asList(value)
		if !ok || len(list) != 2 {
			c.problems.Add(path+".value", "between requires exactly two values")
			return matchAll
		}
		lo, loDay, okLo := toTime(list[0])
		hi, hiDay, okHi := toTime(list[1])
		if !okLo || !okHi {
			c.problems.Add(path+".value", "between requires two dates")
			return matchAll
		}
		return func(p *domain.Product) bool {
			v, ok := c.resolve(field, p).(time.Time)
			if !ok || v.IsZero() {
				return false
			}
			return compareTime(v, lo, loDay, domain.OpGreaterEq) && compareTime(v, hi, hiDay, domain.OpLessEq)
		}
	}
	target, dayOnly, ok := toTime(value)
	if !ok {
		c.problems.Add(path+".value", "a date value is required")
		return matchAll
	}
	return func(p *domain.Product) bool {
		v, ok := c.resolve(field, p).(time.Time)
		if !ok || v.IsZero() {
			return false
		}
		return compareTime(v, target, dayOnly, op)
	}
}

func (c *compiler) boolean(path string, field fields.Field, value any) Predicate {
	target, ok := toBool(value)
	if !ok {
		c.problems.Add(path+".value", "a boolean value is required")
		return matchAll
	}
	return func(p *domain.Product) bool {
		v, ok := toBool(c.resolve(field, p))
		return ok && v == target
	}
}

func (c *compiler) relation(path string, field fields.Field, op domain.Operator, value any) Predicate {
	list, ok := asList(value)
	if !ok {
		c.problems.Add(path+".value", "%s requires a list of ids", op)
		return matchAll
	}
	set := make(map[int64]struct{}, len(list))
	for i, item := range list {
		id, ok := toInt(item)
		if !ok {
			c.problems.Add(fmt.Sprintf("%s.value[%d]", path, i), "id must be an integer")
			continue
		}
		set[id] = struct{}{}
	}
	anyIn := func(p *domain.Product) bool {
		for _, id := range field.IDs(p) {
			if _, hit := set[id]; hit {
				return true
			}
		}
		return false
	}
	if op == domain.OpNotIn {
		return func(p *domain.Product) bool { return !anyIn(p) }
	}
	return anyIn
}

func (c *compiler) selectField(path string, field fields.Field, op domain.Operator, value any) Predicate {
	list, ok := asList(value)
	if !ok {
		c.problems.Add(path+".value", "%s requires a list of values", op)
		return matchAll
	}
	set := make(map[string]struct{}, len(list))
	for _, item := range list {
		s, ok := toText(item)
		if !ok {
			continue
		}
		set[c.fold.String(s)] = struct{}{}
	}
	anyIn := func(p *domain.Product) bool {
		for _, s := range textValues(c.resolve(field, p)) {
			if _, hit := set[c.fold.String(s)]; hit {
				return true
			}
		}
		return false
	}
	if op == domain.OpNotIn {
		return func(p *domain.Product) bool { return !anyIn(p) }
	}
	return anyIn
}

func (c *compiler) bounds(path string, value any, conv func(any) (float64, bool)) (float64, float64, bool) {
	list, ok := asList(value)
	if !ok || len(list) != 2 {
		c.problems.Add(path+".value", "between requires exactly two values")
		return 0, 0, false
	}
	lo, okLo := conv(list[0])
	hi, okHi := conv(list[1])
	if !okLo || !okHi {
		c.problems.Add(path+".value", "between requires two numbers")
		return 0, 0, false
	}
	return lo, hi, true
}

func compareFloat(v, target float64, op domain.Operator) bool {
	switch op {
	case domain.OpEquals:
		return v == target
	case domain.OpGreater:
		return v > target
	case domain.OpLess:
		return v < target
	case domain.OpGreaterEq:
		return v >= target
	case domain.OpLessEq:
		return v <= target
	}
	return false
}

func compareTime(v, target time.Time, dayOnly bool, op domain.Operator) bool {
	if dayOnly {
		v = truncateDay(v)
		target = truncateDay(target)
	}
	switch op {
	case domain.OpEquals:
		return v.Equal(target)
	case domain.OpGreater:
		return v.After(target)
	case domain.OpLess:
		return v.Before(target)
	case domain.OpGreaterEq:
		return !v.Before(target)
	case domain.OpLessEq:
		return !v.After(target)
	}
	return false
}
