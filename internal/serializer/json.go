package serializer

import (
	"bufio"
	"encoding/json"
	"io"
	"math"

	"github.com/rpattn/catalog-export/internal/domain"
)

// jsonEncoder streams an array of objects keyed by column key. Objects are
// written by hand so keys keep column order.
type jsonEncoder struct {
	buf  *bufio.Writer
	keys [][]byte
	rows int
}

func newJSONEncoder(w io.Writer) *jsonEncoder {
	return &jsonEncoder{buf: bufio.NewWriterSize(w, 64<<10)}
}

func (e *jsonEncoder) Begin(columns []domain.Column) error {
	e.keys = make([][]byte, len(columns))
	for i, col := range columns {
		key, err := json.Marshal(col.Key)
		if err != nil {
			return fail(domain.ExportFormatJSON, err, "encode column key")
		}
		e.keys[i] = key
	}
	_, err := e.buf.WriteString("[")
	return fail(domain.ExportFormatJSON, err, "write array start")
}

func (e *jsonEncoder) WriteRow(values []any) error {
	encoded := make([][]byte, len(e.keys))
	for i := range e.keys {
		var v any
		if i < len(values) {
			v = values[i]
		}
		if f, ok := v.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
			return fail(domain.ExportFormatJSON, errNonFinite, "encode value of "+string(e.keys[i]))
		}
		if v == nil {
			v = ""
		}
		b, err := json.Marshal(v)
		if err != nil {
			return fail(domain.ExportFormatJSON, err, "encode value of "+string(e.keys[i]))
		}
		encoded[i] = b
	}

	if e.rows > 0 {
		e.buf.WriteByte(',')
	}
	e.buf.WriteString("\n{")
	for i, key := range e.keys {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		e.buf.Write(key)
		e.buf.WriteByte(':')
		e.buf.Write(encoded[i])
	}
	_, err := e.buf.WriteString("}")
	e.rows++
	return fail(domain.ExportFormatJSON, err, "write row")
}

func (e *jsonEncoder) Close() error {
	if e.rows > 0 {
		e.buf.WriteByte('\n')
	}
	if _, err := e.buf.WriteString("]\n"); err != nil {
		return fail(domain.ExportFormatJSON, err, "write array end")
	}
	return fail(domain.ExportFormatJSON, e.buf.Flush(), "flush")
}
