package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ExportFormat enumerates supported output formats.
type ExportFormat string

const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatXML  ExportFormat = "xml"
	ExportFormatXLS  ExportFormat = "xls"
)

// Valid reports whether the format has a serializer.
func (f ExportFormat) Valid() bool {
	switch f {
	case ExportFormatJSON, ExportFormatCSV, ExportFormatXML, ExportFormatXLS:
		return true
	}
	return false
}

// ExportProfile is a saved export configuration reachable by its download hash.
type ExportProfile struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Format           ExportFormat    `json:"format"`
	Filters          FilterGroup     `json:"filters"`
	Fields           []SelectedField `json:"fields"`
	IsActive         bool            `json:"is_active"`
	ClientUserID     *int64          `json:"client_user_id,omitempty"`
	CurrencyID       *int64          `json:"currency_id,omitempty"`
	Hash             string          `json:"hash"`
	LastDownloadedAt *time.Time      `json:"last_downloaded_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewDownloadHash returns a fresh opaque download slug.
func NewDownloadHash() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// FiltersToJSON marshals the filter tree into the JSONB layout stored in Postgres.
func (p ExportProfile) FiltersToJSON() (json.RawMessage, error) {
	filters := p.Filters
	if filters.Logic == "" {
		filters.Logic = LogicAnd
	}
	if filters.Conditions == nil {
		filters.Conditions = []FilterNode{}
	}
	return json.Marshal(filters)
}

// FieldsToJSON marshals the selected columns for storage.
func (p ExportProfile) FieldsToJSON() (json.RawMessage, error) {
	fields := p.Fields
	if fields == nil {
		fields = []SelectedField{}
	}
	return json.Marshal(fields)
}

// SelectedFieldsFromJSON unmarshals persisted column selections.
func SelectedFieldsFromJSON(data []byte) ([]SelectedField, error) {
	if len(data) == 0 {
		return []SelectedField{}, nil
	}
	var fields []SelectedField
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = []SelectedField{}
	}
	return fields, nil
}
