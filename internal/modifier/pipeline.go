// Package modifier turns resolved raw values into display-ready scalars.
package modifier

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/catalog-export/internal/domain"
	"github.com/rpattn/catalog-export/internal/policy"
)

const (
	DefaultTrueValue  = "Да"
	DefaultFalseValue = "Нет"
	DefaultSeparator  = ", "

	dateLayout = "2006-01-02 15:04:05"
)

// Pipeline applies a column's modifier. It holds the currency table of the run
// and is otherwise stateless.
type Pipeline struct {
	currencies domain.CurrencyTable
}

// New creates a pipeline that reconverts prices with the given table.
func New(currencies domain.CurrencyTable) *Pipeline {
	return &Pipeline{currencies: currencies}
}

// Apply transforms raw into a string, int64 or float64.
func (p *Pipeline) Apply(spec domain.FieldSpec, selected domain.SelectedField, raw any) any {
	switch spec.ModifierType {
	case domain.ModifierPrice:
		return p.price(selected.Modifiers, raw)
	case domain.ModifierBoolean:
		return booleanLabel(selected.Modifiers, raw)
	case domain.ModifierMultiValue:
		return join(selected.Modifiers, raw)
	}
	return Scalar(raw)
}

func (p *Pipeline) price(mods domain.Modifiers, raw any) any {
	m, ok := raw.(domain.Money)
	if !ok {
		return Scalar(raw)
	}
	if mods.CurrencyID != nil {
		if target, found := p.currencies.ByID(*mods.CurrencyID); found {
			return policy.Round2(target.FromBase(m.Base))
		}
	}
	return policy.Round2(m.Amount)
}

// booleanLabel always yields one of the two labels; a missing value is false.
func booleanLabel(mods domain.Modifiers, raw any) any {
	trueValue, falseValue := DefaultTrueValue, DefaultFalseValue
	if mods.TrueValue != nil {
		trueValue = *mods.TrueValue
	}
	if mods.FalseValue != nil {
		falseValue = *mods.FalseValue
	}
	if truthy(raw) {
		return trueValue
	}
	return falseValue
}

func truthy(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case float64:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "0", "false", "no", "нет":
			return false
		}
		return true
	}
	return raw != nil
}

func join(mods domain.Modifiers, raw any) any {
	separator := DefaultSeparator
	if mods.Separator != nil {
		separator = *mods.Separator
	}
	switch v := raw.(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(v, separator)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, text(Scalar(item)))
		}
		return strings.Join(parts, separator)
	}
	return Scalar(raw)
}

// Scalar normalises a raw value without a modifier. Nil becomes "".
func Scalar(raw any) any {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return v
	case float32:
		return float64(v)
	case bool:
		if v {
			return DefaultTrueValue
		}
		return DefaultFalseValue
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(dateLayout)
	case *time.Time:
		if v == nil || v.IsZero() {
			return ""
		}
		return v.Format(dateLayout)
	case domain.Money:
		return policy.Round2(v.Amount)
	case []string:
		return strings.Join(v, DefaultSeparator)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprintf("%v", raw)
}

func text(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		if math.IsInf(s, 0) || math.IsNaN(s) {
			return ""
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}
