package csdl

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/agentflare-ai/go-xmldom"
)

// Element is a node of the abstract syntax tree consumed by the conversion engine.
// Namespace is the resolved namespace URI. When it is empty the engine resolves the
// prefix of Name through the xmlns attributes of the element and its ancestors.
type Element struct {
	Name       string
	Namespace  string
	Attributes map[string]string
	Elements   []*Element
	// Text holds the character data of elements without child elements
	Text     string
	Position Position
}

// ASTFactory turns raw metadata text into an abstract syntax tree
type ASTFactory func(data []byte) (*Element, error)

// Normalizer adapts a raw element to the shape expected by the engine
type Normalizer func(el *Element) *Element

// identityNormalizer returns the element unchanged
func identityNormalizer(el *Element) *Element { return el }

// Attr returns the value of an attribute and whether it is present
func (e *Element) Attr(name string) (string, bool) {
	if e == nil || e.Attributes == nil {
		return "", false
	}
	v, ok := e.Attributes[name]
	return v, ok
}

// Prefix returns the namespace prefix of the element name, or "" when unprefixed
func (e *Element) Prefix() string {
	if i := strings.IndexByte(e.Name, ':'); i >= 0 {
		return e.Name[:i]
	}
	return ""
}

// LocalName returns the element name without its prefix
func (e *Element) LocalName() string {
	if i := strings.IndexByte(e.Name, ':'); i >= 0 {
		return e.Name[i+1:]
	}
	return e.Name
}

// ParseAST decodes an XML metadata document into an abstract syntax tree.
// The returned element is a document node whose only child is the XML root element.
func ParseAST(data []byte) (*Element, error) {
	doc, err := xmldom.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	return FromDocument(doc)
}

// FromDocument converts an already decoded xmldom document
func FromDocument(doc xmldom.Document) (*Element, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil document")
	}
	root := doc.DocumentElement()
	if root == nil {
		return nil, fmt.Errorf("no root element")
	}
	return &Element{
		Elements: []*Element{fromDOM(root)},
	}, nil
}

// fromDOM copies an xmldom element and its element children
func fromDOM(elem xmldom.Element) *Element {
	line, col, offset := elem.Position()
	el := &Element{
		Name:       string(elem.LocalName()),
		Namespace:  string(elem.NamespaceURI()),
		Attributes: make(map[string]string),
		Position:   Position{Line: line, Column: col, Offset: offset},
	}
	if prefix := elem.Prefix(); prefix != "" {
		el.Name = string(prefix) + ":" + el.Name
	}

	attrs := elem.Attributes()
	for i := uint(0); i < attrs.Length(); i++ {
		attr := attrs.Item(i)
		if attr == nil {
			continue
		}
		if name, ok := attributeName(string(attr.NamespaceURI()), string(attr.LocalName())); ok {
			el.Attributes[name] = string(attr.NodeValue())
		}
	}

	children := elem.Children()
	for i := uint(0); i < children.Length(); i++ {
		if child := children.Item(i); child != nil {
			el.Elements = append(el.Elements, fromDOM(child))
		}
	}

	if len(el.Elements) == 0 {
		el.Text = string(elem.TextContent())
	}
	return el
}

const xmlnsNamespace = "http://www.w3.org/2000/xmlns/"

// attributeName keys unqualified attributes by local name and namespace declarations
// as xmlns or xmlns:prefix. Attributes of other namespaces are not part of CSDL.
func attributeName(namespace, local string) (string, bool) {
	switch namespace {
	case "":
		return local, true
	case "xmlns", xmlnsNamespace:
		return "xmlns:" + local, true
	}
	return "", false
}
