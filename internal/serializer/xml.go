package serializer

import (
	"bufio"
	"encoding/xml"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/rpattn/catalog-export/internal/domain"
)

const (
	xmlRootTag = "products"
	xmlRowTag  = "product"
)

type xmlEncoder struct {
	buf  *bufio.Writer
	enc  *xml.Encoder
	tags []xml.Name
}

func newXMLEncoder(w io.Writer) *xmlEncoder {
	buf := bufio.NewWriterSize(w, 64<<10)
	return &xmlEncoder{buf: buf, enc: xml.NewEncoder(buf)}
}

// TagName turns a column key into a valid XML element name.
func TagName(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" {
		return "_"
	}
	first := name[0]
	if (first >= '0' && first <= '9') || first == '-' || strings.HasPrefix(strings.ToLower(name), "xml") {
		name = "_" + name
	}
	return name
}

func (e *xmlEncoder) Begin(columns []domain.Column) error {
	e.tags = make([]xml.Name, len(columns))
	for i, col := range columns {
		e.tags[i] = xml.Name{Local: TagName(col.Key)}
	}
	if _, err := e.buf.WriteString(xml.Header); err != nil {
		return fail(domain.ExportFormatXML, err, "write header")
	}
	err := e.enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: xmlRootTag}})
	return fail(domain.ExportFormatXML, err, "open root")
}

func (e *xmlEncoder) WriteRow(values []any) error {
	texts := make([]string, len(e.tags))
	for i := range e.tags {
		if i >= len(values) {
			continue
		}
		text, err := cellText(values[i])
		if err != nil {
			return fail(domain.ExportFormatXML, err, "encode <"+e.tags[i].Local+">")
		}
		if err := checkXMLText(text); err != nil {
			return fail(domain.ExportFormatXML, err, "encode <"+e.tags[i].Local+">")
		}
		texts[i] = text
	}
	if err := e.enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: xmlRowTag}}); err != nil {
		return fail(domain.ExportFormatXML, err, "open row")
	}
	for i, tag := range e.tags {
		if err := e.enc.EncodeElement(texts[i], xml.StartElement{Name: tag}); err != nil {
			return fail(domain.ExportFormatXML, err, "write <"+tag.Local+">")
		}
	}
	err := e.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: xmlRowTag}})
	return fail(domain.ExportFormatXML, err, "close row")
}

func (e *xmlEncoder) Close() error {
	if err := e.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: xmlRootTag}}); err != nil {
		return fail(domain.ExportFormatXML, err, "close root")
	}
	if err := e.enc.Flush(); err != nil {
		return fail(domain.ExportFormatXML, err, "flush encoder")
	}
	return fail(domain.ExportFormatXML, e.buf.Flush(), "final buffered flush")
}

// checkXMLText rejects text XML 1.0 cannot carry, instead of letting the
// encoder substitute replacement characters.
func checkXMLText(s string) error {
	if !utf8.ValidString(s) {
		return eris.New("text is not valid UTF-8")
	}
	for _, r := range s {
		if !isXMLChar(r) {
			return eris.Errorf("character %U is not allowed in XML", r)
		}
	}
	return nil
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}
