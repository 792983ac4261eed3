// Package serializer encodes a stream of export rows into one of the
// downloadable file formats.
package serializer

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/rpattn/catalog-export/internal/domain"
)

// Encoder consumes one ordered row stream. Begin is called once before any
// row; Close finishes the document. Any error is a *Failure and leaves the
// output unusable.
type Encoder interface {
	Begin(columns []domain.Column) error
	WriteRow(values []any) error
	Close() error
}

// Failure reports that a value or the document could not be encoded.
type Failure struct {
	Format domain.ExportFormat
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("serialize %s: %v", f.Format, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// IsFailure reports whether err came from an encoder.
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}

func fail(format domain.ExportFormat, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Failure{Format: format, Err: eris.Wrap(err, msg)}
}

var errNonFinite = eris.New("number is not finite")

// New returns the encoder for format writing to w.
func New(format domain.ExportFormat, w io.Writer) (Encoder, error) {
	switch format {
	case domain.ExportFormatJSON:
		return newJSONEncoder(w), nil
	case domain.ExportFormatCSV:
		return newCSVEncoder(w), nil
	case domain.ExportFormatXML:
		return newXMLEncoder(w), nil
	case domain.ExportFormatXLS:
		return newXLSXEncoder(w), nil
	}
	return nil, &domain.ValidationError{Problems: []domain.ValidationProblem{{
		Path:    "format",
		Message: fmt.Sprintf("unsupported format %q", format),
	}}}
}

// ContentType returns the MIME type served for format.
func ContentType(format domain.ExportFormat) string {
	switch format {
	case domain.ExportFormatJSON:
		return "application/json"
	case domain.ExportFormatCSV:
		return "text/csv"
	case domain.ExportFormatXML:
		return "application/xml"
	case domain.ExportFormatXLS:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

// Extension returns the file extension for format.
func Extension(format domain.ExportFormat) string {
	if format == domain.ExportFormatXLS {
		return "xlsx"
	}
	return string(format)
}

// cellText renders a scalar for text-based formats.
func cellText(v any) (string, error) {
	switch c := v.(type) {
	case nil:
		return "", nil
	case string:
		return c, nil
	case int64:
		return strconv.FormatInt(c, 10), nil
	case int:
		return strconv.Itoa(c), nil
	case float64:
		if math.IsInf(c, 0) || math.IsNaN(c) {
			return "", errNonFinite
		}
		return strconv.FormatFloat(c, 'f', -1, 64), nil
	}
	return "", eris.Errorf("unsupported cell type %T", v)
}
