package domain

// FieldType determines which filter operators a field accepts and how filter
// values are coerced.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeNumeric  FieldType = "numeric"
	FieldTypeDate     FieldType = "date"
	FieldTypeBoolean  FieldType = "boolean"
	FieldTypeRelation FieldType = "relation"
	FieldTypeSelect   FieldType = "select"
)

// ModifierType selects the display transform applied after resolution.
type ModifierType string

const (
	ModifierNone       ModifierType = ""
	ModifierPrice      ModifierType = "price"
	ModifierBoolean    ModifierType = "boolean"
	ModifierMultiValue ModifierType = "multi_value"
)

// FieldSpec is the static description of one exportable column.
type FieldSpec struct {
	Key          string       `json:"key"`
	Label        string       `json:"label"`
	Type         FieldType    `json:"type"`
	ModifierType ModifierType `json:"modifier_type,omitempty"`
}

// SelectedField is a column chosen in a profile. Label overrides the spec
// label when non-empty.
type SelectedField struct {
	Key       string    `json:"key"`
	Label     string    `json:"label,omitempty"`
	Modifiers Modifiers `json:"modifiers,omitempty"`
}

// Modifiers holds the saved options of every modifier type; only the ones
// matching the field's modifier type are read.
type Modifiers struct {
	CurrencyID *int64  `json:"currency_id,omitempty" yaml:"currency_id,omitempty"`
	TrueValue  *string `json:"true_value,omitempty" yaml:"true_value,omitempty"`
	FalseValue *string `json:"false_value,omitempty" yaml:"false_value,omitempty"`
	Separator  *string `json:"separator,omitempty" yaml:"separator,omitempty"`
}

// Column is one output column of a run.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ExportRow is one fully modified output record. Values are aligned with
// Columns and hold only string, int64 or float64.
type ExportRow struct {
	Columns []Column
	Values  []any
}

// Map returns the row keyed by column key.
func (r ExportRow) Map() map[string]any {
	out := make(map[string]any, len(r.Columns))
	for i, col := range r.Columns {
		if i < len(r.Values) {
			out[col.Key] = r.Values[i]
		}
	}
	return out
}
