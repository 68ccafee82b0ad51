package csdl

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type annotationsNode struct{ node }

func newAnnotationsNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Target"); err != nil {
		return nil, err
	}
	return &annotationsNode{node: newNode(NodeAnnotations, el, parent, c)}, nil
}

func (n *annotationsNode) Interpret() (any, error) {
	target := NewObject()
	n.target = target
	if err := n.mergeChildren(target); err != nil {
		return nil, err
	}
	path := n.ctx.ResolveNamespace(n.attr("Target"), false)
	return NewObject().Set("$Annotations", NewObject().Set(path, target)), nil
}

// annotationNode applies a term to its parent. The value is handed to the parent through
// Annotate, so Interpret itself yields nothing.
type annotationNode struct {
	node
	key string
}

func newAnnotationNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Term"); err != nil {
		return nil, err
	}
	n := &annotationNode{node: newNode(NodeAnnotation, el, parent, c)}

	qualifier, ok := el.Attr("Qualifier")
	if !ok && parent != nil && parent.Kind() == NodeAnnotations {
		qualifier, ok = parent.Element().Attr("Qualifier")
	}
	n.key = "@" + n.attr("Term")
	if ok && qualifier != "" {
		n.key += "#" + qualifier
	}
	return n, nil
}

// Annotate forwards annotations of this annotation to the parent, prefixed with its key
func (n *annotationNode) Annotate(key string, value any) {
	n.parent.Annotate(n.key+key, value)
}

func (n *annotationNode) Interpret() (any, error) {
	value, err := n.expressionFromAttributes()
	if err != nil {
		return nil, err
	}
	n.parent.Annotate(n.key, value)

	var values []any
	if value != nil {
		values = append(values, value)
	}
	for _, child := range n.children {
		result, err := child.Interpret()
		if err != nil {
			return nil, err
		}
		if child.Kind() == NodeAnnotation || result == nil {
			continue
		}
		values = append(values, result)
	}

	switch len(values) {
	case 0:
		n.ctx.Lifecycle().On(PhaseFinalize, n.applyDefault)
	case 1:
		n.parent.Annotate(n.key, values[0])
	default:
		n.parent.Annotate(n.key, values)
	}
	return nil, nil
}

// applyDefault annotates the parent with the default value of the term
func (n *annotationNode) applyDefault(ctx context.Context) error {
	term, _, _ := strings.Cut(n.attr("Term"), "#")
	def, err := n.ctx.ResolveType(ctx, term)
	if err != nil {
		return err
	}
	if def == nil {
		return nil
	}

	value, ok, err := n.defaultExpression(def)
	if err != nil {
		return err
	}
	if ok {
		n.parent.Annotate(n.key, value)
	}
	return nil
}

// defaultExpression derives the value of an annotation without expression from its term.
// ok is false when the term type lives in a document that could not be provided.
func (n *annotationNode) defaultExpression(term *Definition) (value any, ok bool, err error) {
	if term.IsCollection() {
		return []any{}, true, nil
	}
	typ := term.Type()
	if typ == nil {
		return nil, false, nil
	}
	if typ.Kind == KindEntityType || typ.Kind == KindComplexType {
		return NewObject(), true, nil
	}

	dv, found := term.DefaultValue()
	if !found {
		return nil, false, fmt.Errorf("Term '%s' for annotation '%s' must have a default value", term.FQN, n.key)
	}
	if typ.Kind == KindEnumType {
		return n.ctx.enumMemberExpression(literal(dv), typ.FQN), true, nil
	}

	typeName := typ.TypeName()
	if typ.Kind == KindTypeDefinition {
		if typeName, err = typ.PrimitiveName(); err != nil {
			return nil, false, err
		}
	}

	switch typeName {
	case "Edm.String":
		return dv, true, nil
	case "Edm.Binary", "Edm.Stream":
		return cast(literal(dv), "Edm.Binary"), true, nil
	case "Edm.Single", "Edm.Double":
		f, err := parseFloatLiteral(literal(dv))
		if err != nil {
			return nil, false, fmt.Errorf("invalid default value of term '%s': %w", term.FQN, err)
		}
		return f, true, nil
	case "Edm.Boolean":
		return literal(dv) == "true", true, nil
	case "Edm.Byte", "Edm.SByte", "Edm.Int16", "Edm.Int32":
		i, err := toInt(dv)
		if err != nil {
			return nil, false, fmt.Errorf("invalid default value of term '%s': %w", term.FQN, err)
		}
		return cast(i, typeName), true, nil
	case "Edm.Int64", "Edm.Date", "Edm.DateTimeOffset", "Edm.Decimal",
		"Edm.Duration", "Edm.Guid", "Edm.TimeOfDay":
		return cast(dv, typeName), true, nil
	case "Edm.ModelElementPath":
		return NewObject().Set("$ModelElementPath", literal(dv)), true, nil
	case "Edm.PropertyPath":
		return NewObject().Set("$PropertyPath", literal(dv)), true, nil
	case "Edm.AnnotationPath":
		return NewObject().Set("$AnnotationPath", n.ctx.ResolveNamespace(literal(dv), true)), true, nil
	}
	if IsPrimitiveTypeName(typeName) {
		return dv, true, nil
	}
	return nil, false, fmt.Errorf("Invalid annotation value for term '%s' of type '%s'", term.FQN, typeName)
}

// literal renders a default value the way it was written in XML
func literal(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	}
	return fmt.Sprint(v)
}

func toInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	case json.Number:
		i, err := t.Int64()
		return int(i), err
	}
	return strconv.Atoi(literal(v))
}
