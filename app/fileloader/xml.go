package fileloader

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/ianaindex"

	"plotloader/app/interfaces"
)

// XML ingestion. Every direct child of the document element is a candidate
// row; its attributes and its children's text supply the fields.

// xmlElement is the part of an element the row extractor needs.
type xmlElement struct {
	name     string
	attrs    []xml.Attr
	children []*xmlElement
	text     strings.Builder // all descendant character data, in document order
}

// charsetReader lets documents declare any IANA registered encoding.
// A UTF-16 declaration is read as is: the decoder only reaches it when the
// prolog was ASCII compatible, which means DecodeText already converted the
// content from its byte-order mark.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, errors.Errorf("unsupported XML encoding %q", label)
	}
	if name, _ := ianaindex.IANA.Name(enc); strings.HasPrefix(name, "UTF-16") {
		return input, nil
	}
	return enc.NewDecoder().Reader(input), nil
}

// parseXMLTree parses data into an element tree and returns its root.
func parseXMLTree(data []byte) (*xmlElement, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	dec.CharsetReader = charsetReader

	var root *xmlElement
	var stack []*xmlElement

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(ErrXMLParse, err.Error())
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &xmlElement{name: t.Name.Local, attrs: t.Attr}
			if len(stack) == 0 {
				if root != nil {
					line, _ := dec.InputPos()
					return nil, errors.Wrapf(ErrXMLParse, "line %d: extra content after the document element", line)
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)

		case xml.EndElement:
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					line, _ := dec.InputPos()
					return nil, errors.Wrapf(ErrXMLParse, "line %d: text outside the document element", line)
				}
				continue
			}
			for _, open := range stack {
				open.text.Write(t)
			}
		}
	}

	if root == nil {
		return nil, errors.Wrap(ErrXMLParse, "no document element")
	}
	return root, nil
}

// ParseXML converts an XML document into a table.
//
// For each child of the document element, attributes become fields. If the
// child has element children, each of those adds its tag name mapped to its
// trimmed text content (a repeated tag keeps the last value). Otherwise the
// child's own trimmed text, when non-empty, is stored under the child's tag
// name. Children that produce no fields are dropped.
func ParseXML(data []byte, source string) (*interfaces.Table, error) {
	root, err := parseXMLTree(data)
	if err != nil {
		return nil, errors.WithMessage(err, source)
	}

	table := &interfaces.Table{
		Source: source,
		Type:   FileTypeXML,
		Rows:   make([]*interfaces.Row, 0, len(root.children)),
	}

	for _, child := range root.children {
		row := interfaces.NewRow(len(child.attrs) + len(child.children))
		for _, attr := range child.attrs {
			row.Set(attr.Name.Local, interfaces.String(attr.Value))
		}

		if len(child.children) > 0 {
			for _, grandchild := range child.children {
				row.Set(grandchild.name, interfaces.String(strings.TrimSpace(grandchild.text.String())))
			}
		} else if text := strings.TrimSpace(child.text.String()); text != "" {
			row.Set(child.name, interfaces.String(text))
		}

		if row.Len() > 0 {
			table.Rows = append(table.Rows, row)
		}
	}

	return table, nil
}
