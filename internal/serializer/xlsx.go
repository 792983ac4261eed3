package serializer

import (
	"io"
	"math"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"github.com/rpattn/catalog-export/internal/domain"
)

// SheetName is the single worksheet of an XLSX export.
const SheetName = "Products"

// xlsxEncoder streams rows into an in-memory workbook and writes the package
// on Close; the ZIP container cannot be finalised before the last row.
type xlsxEncoder struct {
	out     io.Writer
	file    *excelize.File
	stream  *excelize.StreamWriter
	columns int
	row     int
}

func newXLSXEncoder(w io.Writer) *xlsxEncoder {
	return &xlsxEncoder{out: w}
}

func (e *xlsxEncoder) Begin(columns []domain.Column) error {
	e.file = excelize.NewFile()
	if err := e.file.SetSheetName("Sheet1", SheetName); err != nil {
		return fail(domain.ExportFormatXLS, err, "name sheet")
	}
	stream, err := e.file.NewStreamWriter(SheetName)
	if err != nil {
		return fail(domain.ExportFormatXLS, err, "open stream writer")
	}
	e.stream = stream
	e.columns = len(columns)
	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col.Label
	}
	return e.setRow(header)
}

func (e *xlsxEncoder) WriteRow(values []any) error {
	cells := make([]interface{}, e.columns)
	for i := range cells {
		if i >= len(values) {
			cells[i] = ""
			continue
		}
		switch v := values[i].(type) {
		case nil:
			cells[i] = ""
		case string:
			cells[i] = v
		case int64:
			cells[i] = v
		case int:
			cells[i] = int64(v)
		case float64:
			if math.IsInf(v, 0) || math.IsNaN(v) {
				return fail(domain.ExportFormatXLS, errNonFinite, "encode cell")
			}
			cells[i] = v
		default:
			return fail(domain.ExportFormatXLS, eris.Errorf("unsupported cell type %T", v), "encode cell")
		}
	}
	return e.setRow(cells)
}

func (e *xlsxEncoder) setRow(cells []interface{}) error {
	e.row++
	cell, err := excelize.CoordinatesToCellName(1, e.row)
	if err != nil {
		return fail(domain.ExportFormatXLS, err, "address row")
	}
	return fail(domain.ExportFormatXLS, e.stream.SetRow(cell, cells), "write row")
}

func (e *xlsxEncoder) Close() error {
	if e.file == nil {
		return fail(domain.ExportFormatXLS, eris.New("workbook was never started"), "close")
	}
	defer e.file.Close()
	if err := e.stream.Flush(); err != nil {
		return fail(domain.ExportFormatXLS, err, "flush stream writer")
	}
	return fail(domain.ExportFormatXLS, e.file.Write(e.out), "write workbook")
}
