package extractors

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// newDecoder returns a strict decoder that understands declared non-UTF-8
// encodings such as ISO-8859-1, which older modelling tools still emit.
func newDecoder(diagram string) *xml.Decoder {
	dec := xml.NewDecoder(strings.NewReader(diagram))
	dec.CharsetReader = charset.NewReaderLabel
	return dec
}

// isMalformed reports whether err means the document itself is broken, as
// opposed to the decoder being unable to read it.
func isMalformed(err error) bool {
	var syntaxErr *xml.SyntaxError
	return errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

// looksLikeXML accepts an XML declaration or any leading tag.
func looksLikeXML(diagram string) bool {
	trimmed := strings.TrimSpace(strings.TrimPrefix(diagram, "\ufeff"))
	return strings.HasPrefix(trimmed, "<")
}

// nameAttr returns the unqualified name attribute of an element.
func nameAttr(el xml.StartElement) string {
	for _, a := range el.Attr {
		if a.Name.Local == "name" && a.Name.Space == "" {
			return a.Value
		}
	}
	return ""
}
