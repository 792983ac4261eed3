package serializer

import (
	"bufio"
	"encoding/csv"
	"io"

	"github.com/rpattn/catalog-export/internal/domain"
)

// Delimiter separates CSV fields. Semicolon plus a BOM is what Excel expects
// in Cyrillic locales.
const Delimiter = ';'

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

type csvEncoder struct {
	buf    *bufio.Writer
	writer *csv.Writer
	record []string
}

func newCSVEncoder(w io.Writer) *csvEncoder {
	buf := bufio.NewWriterSize(w, 1<<20)
	writer := csv.NewWriter(buf)
	writer.Comma = Delimiter
	return &csvEncoder{buf: buf, writer: writer}
}

func (e *csvEncoder) Begin(columns []domain.Column) error {
	if _, err := e.buf.Write(byteOrderMark); err != nil {
		return fail(domain.ExportFormatCSV, err, "write byte order mark")
	}
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.Label
	}
	e.record = make([]string, len(columns))
	return fail(domain.ExportFormatCSV, e.writer.Write(headers), "write header")
}

func (e *csvEncoder) WriteRow(values []any) error {
	for i := range e.record {
		e.record[i] = ""
		if i >= len(values) {
			continue
		}
		text, err := cellText(values[i])
		if err != nil {
			return fail(domain.ExportFormatCSV, err, "encode cell")
		}
		e.record[i] = text
	}
	return fail(domain.ExportFormatCSV, e.writer.Write(e.record), "write row")
}

func (e *csvEncoder) Close() error {
	e.writer.Flush()
	if err := e.writer.Error(); err != nil {
		return fail(domain.ExportFormatCSV, err, "final flush")
	}
	return fail(domain.ExportFormatCSV, e.buf.Flush(), "final buffered flush")
}
