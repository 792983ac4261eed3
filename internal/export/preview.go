package export

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/rotisserie/eris"

	"github.com/rpattn/catalog-export/internal/domain"
	"github.com/rpattn/catalog-export/internal/serializer"
)

// PreviewRequest is a transient, unsaved export definition.
type PreviewRequest struct {
	Filters      domain.FilterGroup
	Fields       []domain.SelectedField
	ClientUserID *int64
	Currency     string
	Limit        int
}

// PreviewResult is the capped sample returned to the admin UI. Total counts
// every matching record, not just the returned ones.
type PreviewResult struct {
	Total  int               `json:"total"`
	Data   []PreviewRow      `json:"data"`
	Labels map[string]string `json:"labels"`
}

// PreviewRow marshals as a JSON object whose keys keep column order.
type PreviewRow struct {
	columns []domain.Column
	values  []any
}

// Values returns the row keyed by column key.
func (r PreviewRow) Values() map[string]any {
	return domain.ExportRow{Columns: r.columns, Values: r.values}.Map()
}

func (r PreviewRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		var value any
		if i < len(r.values) {
			value = r.values[i]
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		buf.Write(encoded)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// previewEncoder collects rows in memory instead of writing a file.
type previewEncoder struct {
	columns []domain.Column
	rows    []PreviewRow
}

var _ serializer.Encoder = (*previewEncoder)(nil)

func (e *previewEncoder) Begin(columns []domain.Column) error {
	e.columns = columns
	e.rows = []PreviewRow{}
	return nil
}

func (e *previewEncoder) WriteRow(values []any) error {
	for _, v := range values {
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return &serializer.Failure{Format: domain.ExportFormatJSON, Err: eris.New("number is not finite")}
		}
	}
	e.rows = append(e.rows, PreviewRow{columns: e.columns, values: append([]any(nil), values...)})
	return nil
}

func (e *previewEncoder) Close() error { return nil }

func (e *previewEncoder) labels() map[string]string {
	labels := make(map[string]string, len(e.columns))
	for _, col := range e.columns {
		labels[col.Key] = col.Label
	}
	return labels
}
