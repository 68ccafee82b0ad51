package csdl

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoASTFactory is returned when text input reaches a strategy without an AST factory
	ErrNoASTFactory = errors.New("no abstract syntax tree factory provided")

	// ErrNoMetadataFactory is returned when a referenced document is needed but no factory is configured
	ErrNoMetadataFactory = errors.New("no metadata factory provided")

	// ErrNoConverter is returned by NewConverter for unsupported projections
	ErrNoConverter = errors.New("no converter available")

	// ErrCyclicType is returned when a type or term resolution revisits itself
	ErrCyclicType = errors.New("cyclic type reference")
)

// StructuralError reports malformed metadata. It aborts the conversion immediately.
type StructuralError struct {
	Element   string
	Attribute string
	Position  Position
	Message   string
}

func (e *StructuralError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Element != "" {
		fmt.Fprintf(&sb, " (element '%s'", e.Element)
		if e.Position.Line > 0 {
			fmt.Fprintf(&sb, " at %d:%d", e.Position.Line, e.Position.Column)
		}
		sb.WriteString(")")
	}
	return sb.String()
}

// newStructuralError creates a StructuralError positioned at el
func newStructuralError(el *Element, attribute, format string, args ...any) *StructuralError {
	e := &StructuralError{
		Attribute: attribute,
		Message:   fmt.Sprintf(format, args...),
	}
	if el != nil {
		e.Element = el.Name
		e.Position = el.Position
	}
	return e
}

// MissingReference identifies a namespace whose document could not be provided
type MissingReference struct {
	Namespace string `json:"namespace"`
	URI       string `json:"uri,omitempty"`
}

// MissingReferencesError is the aggregate failure reported when a run ends with unresolved references
type MissingReferencesError struct {
	References []MissingReference
}

func (e *MissingReferencesError) Error() string {
	namespaces := make([]string, 0, len(e.References))
	for _, ref := range e.References {
		namespaces = append(namespaces, ref.Namespace)
	}
	return fmt.Sprintf("could not convert document: missing referenced documents (%s)", strings.Join(namespaces, ", "))
}
