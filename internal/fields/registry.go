// Package fields holds the registry of exportable columns and the resolver
// functions that read them from catalog records.
package fields

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rpattn/catalog-export/internal/domain"
	"github.com/rpattn/catalog-export/internal/policy"
)

// AttributePrefix marks synthetic keys for per-category attributes.
const AttributePrefix = "attribute."

// ResolveFunc reads a raw value. Raw values are nil, string, bool, int64,
// float64, time.Time, domain.Money or []string.
type ResolveFunc func(p *domain.Product, ec domain.ExportContext) any

// IDsFunc returns related ids for relation fields.
type IDsFunc func(p *domain.Product) []int64

// Field is a registry entry.
type Field struct {
	Spec    domain.FieldSpec
	Resolve ResolveFunc
	IDs     IDsFunc
}

var nullField = Field{
	Resolve: func(*domain.Product, domain.ExportContext) any { return nil },
	IDs:     func(*domain.Product) []int64 { return nil },
}

// Registry maps field keys to their specs and resolvers. It is built once and
// only read afterwards, so it is safe to share between concurrent runs.
type Registry struct {
	fields map[string]Field
	order  []string
}

// NewRegistry builds the registry from the built-in product fields and the
// category attributes known at startup.
func NewRegistry(pricing policy.Pricing, stock policy.Stock, attributes []domain.CategoryAttribute) *Registry {
	if pricing == nil {
		pricing = policy.DiscountPricing{}
	}
	if stock == nil {
		stock = policy.RegionalStock{}
	}
	r := &Registry{fields: make(map[string]Field)}
	for _, f := range builtinFields(pricing, stock) {
		r.add(f)
	}
	attrs := append([]domain.CategoryAttribute(nil), attributes...)
	sort.SliceStable(attrs, func(i, j int) bool { return attrs[i].ID < attrs[j].ID })
	for _, attr := range attrs {
		r.add(attributeField(attr))
	}
	return r
}

func (r *Registry) add(f Field) {
	if f.IDs == nil {
		f.IDs = nullField.IDs
	}
	if _, exists := r.fields[f.Spec.Key]; !exists {
		r.order = append(r.order, f.Spec.Key)
	}
	r.fields[f.Spec.Key] = f
}

// Lookup returns the entry for key.
func (r *Registry) Lookup(key string) (Field, bool) {
	f, ok := r.fields[key]
	return f, ok
}

// Field returns the entry for key or the null entry for unknown keys.
func (r *Registry) Field(key string) Field {
	if f, ok := r.fields[key]; ok {
		return f
	}
	f := nullField
	f.Spec = domain.FieldSpec{Key: key, Label: key, Type: domain.FieldTypeText}
	return f
}

// Resolve reads one field of a record. Unknown keys resolve to nil.
func (r *Registry) Resolve(p *domain.Product, key string, ec domain.ExportContext) any {
	if p == nil {
		return nil
	}
	return r.Field(key).Resolve(p, ec)
}

// Specs lists every field in registry order.
func (r *Registry) Specs() []domain.FieldSpec {
	specs := make([]domain.FieldSpec, 0, len(r.order))
	for _, key := range r.order {
		specs = append(specs, r.fields[key].Spec)
	}
	return specs
}

// Operators lists the filter operators a field type accepts.
func Operators(t domain.FieldType) []domain.Operator {
	switch t {
	case domain.FieldTypeText:
		return []domain.Operator{domain.OpEquals, domain.OpContains, domain.OpNotContains, domain.OpStartsWith}
	case domain.FieldTypeNumeric, domain.FieldTypeDate:
		return []domain.Operator{domain.OpEquals, domain.OpGreater, domain.OpLess, domain.OpGreaterEq, domain.OpLessEq, domain.OpBetween}
	case domain.FieldTypeRelation, domain.FieldTypeSelect:
		return []domain.Operator{domain.OpIn, domain.OpNotIn}
	case domain.FieldTypeBoolean:
		return []domain.Operator{domain.OpEquals}
	}
	return nil
}

// Supports reports whether op is valid for t.
func Supports(t domain.FieldType, op domain.Operator) bool {
	for _, candidate := range Operators(t) {
		if candidate == op {
			return true
		}
	}
	return false
}

// AttributeKey builds the synthetic key of a category attribute.
func AttributeKey(id int64) string {
	return AttributePrefix + strconv.FormatInt(id, 10)
}

func attributeField(attr domain.CategoryAttribute) Field {
	fieldType := attr.Type
	switch fieldType {
	case domain.FieldTypeText, domain.FieldTypeNumeric, domain.FieldTypeBoolean, domain.FieldTypeSelect:
	default:
		fieldType = domain.FieldTypeText
	}
	spec := domain.FieldSpec{
		Key:   AttributeKey(attr.ID),
		Label: strings.TrimSpace(attr.Name),
		Type:  fieldType,
	}
	if spec.Label == "" {
		spec.Label = fmt.Sprintf("Атрибут %d", attr.ID)
	}
	if fieldType == domain.FieldTypeBoolean {
		spec.ModifierType = domain.ModifierBoolean
	}
	id := attr.ID
	return Field{
		Spec: spec,
		Resolve: func(p *domain.Product, _ domain.ExportContext) any {
			raw, ok := p.Attributes[id]
			if !ok {
				return nil
			}
			return coerceAttribute(fieldType, raw)
		},
	}
}

func coerceAttribute(t domain.FieldType, raw string) any {
	value := strings.TrimSpace(raw)
	switch t {
	case domain.FieldTypeNumeric:
		f, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", "."), 64)
		if err != nil {
			return nil
		}
		return f
	case domain.FieldTypeBoolean:
		switch strings.ToLower(value) {
		case "1", "true", "yes", "да":
			return true
		case "0", "false", "no", "нет", "":
			return false
		}
		return nil
	}
	return raw
}
