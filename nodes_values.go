package csdl

import (
	"strings"
)

// constantNode interprets constant and path expressions written in element notation
type constantNode struct{ node }

func constantFactory(kind NodeKind) Factory {
	return func(el *Element, parent Node, c *Context) (Node, error) {
		return &constantNode{node: newNode(kind, el, parent, c)}, nil
	}
}

func (n *constantNode) Interpret() (any, error) {
	text := n.text()
	trimmed := strings.TrimSpace(text)
	library := n.ctx.isLibraryTarget()

	switch n.kind {
	case NodeString:
		return text, nil
	case NodeBool:
		return trimmed == "true", nil
	case NodeBinary, NodeDate, NodeDateTimeOffset, NodeDecimal, NodeDuration, NodeGuid, NodeTimeOfDay:
		return cast(trimmed, "Edm."+string(n.kind)), nil
	case NodeInt:
		return cast(trimmed, "Edm.Int64"), nil
	case NodeFloat:
		f, err := parseFloatLiteral(trimmed)
		if err != nil {
			return nil, newStructuralError(n.el, "", "invalid Float value '%s'", trimmed)
		}
		return f, nil
	case NodeEnumMember:
		return n.ctx.enumMemberExpression(trimmed, ""), nil
	case NodePath:
		return NewObject().Set("$Path", trimmed), nil
	case NodeAnnotationPath:
		return pathExpression("$AnnotationPath", n.ctx.ResolveNamespace(trimmed, true), library), nil
	case NodePropertyPath, NodeNavigationPropertyPath, NodeModelElementPath:
		return pathExpression("$"+string(n.kind), trimmed, library), nil
	case NodeLabeledElementReference:
		return NewObject().Set("$LabeledElementReference", n.ctx.ResolveNamespace(trimmed, false)), nil
	case NodeNull:
		target := NewObject().Set("$Null", nil)
		n.target = target
		if err := n.mergeChildren(target); err != nil {
			return nil, err
		}
		return target, nil
	}
	return nil, newStructuralError(n.el, "", "unsupported expression '%s'", n.kind)
}

// operatorNode interprets the logical, comparison and conditional expressions, all of which
// collect their operands in a list
type operatorNode struct {
	node
	member string
}

func operatorFactory(kind NodeKind) Factory {
	return func(el *Element, parent Node, c *Context) (Node, error) {
		if kind == NodeApply {
			if err := requireAttrs(el, "Function"); err != nil {
				return nil, err
			}
		}
		member := "$" + string(kind)
		if kind == NodeLogical {
			member = "$" + el.LocalName()
		}
		return &operatorNode{node: newNode(kind, el, parent, c), member: member}, nil
	}
}

func (n *operatorNode) Interpret() (any, error) {
	target := NewObject().Set(n.member, nil)
	n.target = target
	operands, err := n.childValues()
	if err != nil {
		return nil, err
	}

	if n.kind == NodeNot {
		var operand any
		if len(operands) > 0 {
			operand = operands[0]
		}
		target.Set(n.member, operand)
		return target, nil
	}

	target.Set(n.member, operands)
	if n.kind == NodeApply {
		target.Set("$Function", n.attr("Function"))
	}
	return target, nil
}

// typedNode interprets Cast and IsOf
type typedNode struct{ node }

func typedFactory(kind NodeKind) Factory {
	return func(el *Element, parent Node, c *Context) (Node, error) {
		if err := requireAttrs(el, "Type"); err != nil {
			return nil, err
		}
		return &typedNode{node: newNode(kind, el, parent, c)}, nil
	}
}

func (n *typedNode) Interpret() (any, error) {
	member := "$" + string(n.kind)
	target := NewObject().Set(member, nil)
	n.target = target
	operands, err := n.childValues()
	if err != nil {
		return nil, err
	}
	if len(operands) > 0 {
		target.Set(member, operands[0])
	}
	if err := applyFacets(target, n.el, facetType|valueFacets); err != nil {
		return nil, err
	}
	return target, nil
}

type labeledElementNode struct{ node }

func newLabeledElementNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Name"); err != nil {
		return nil, err
	}
	return &labeledElementNode{node: newNode(NodeLabeledElement, el, parent, c)}, nil
}

func (n *labeledElementNode) Interpret() (any, error) {
	target := NewObject().Set("$LabeledElement", nil)
	n.target = target

	value, err := n.expressionFromAttributes()
	if err != nil {
		return nil, err
	}
	operands, err := n.childValues()
	if err != nil {
		return nil, err
	}
	if value == nil && len(operands) > 0 {
		value = operands[0]
	}
	target.Set("$LabeledElement", value)
	target.Set("$Name", n.qualifiedName())
	return target, nil
}

// qualifiedName prefixes the label with the namespace of the enclosing schema
func (n *labeledElementNode) qualifiedName() string {
	name := n.attr("Name")
	for p := n.parent; p != nil; p = p.Parent() {
		if p.Kind() == NodeSchema {
			namespace, _ := p.Element().Attr("Namespace")
			return namespace + "." + name
		}
	}
	return name
}

type collectionNode struct{ node }

func newCollectionNode(el *Element, parent Node, c *Context) (Node, error) {
	return &collectionNode{node: newNode(NodeCollection, el, parent, c)}, nil
}

func (n *collectionNode) Interpret() (any, error) {
	return n.childValues()
}

type recordNode struct{ node }

func newRecordNode(el *Element, parent Node, c *Context) (Node, error) {
	return &recordNode{node: newNode(NodeRecord, el, parent, c)}, nil
}

func (n *recordNode) Interpret() (any, error) {
	target := NewObject()
	n.target = target
	if err := applyFacets(target, n.el, facetType); err != nil {
		return nil, err
	}

	for _, child := range n.children {
		result, err := child.Interpret()
		if err != nil {
			return nil, err
		}
		if child.Kind() == NodeCollection {
			return result, nil
		}
		if obj, ok := result.(*Object); ok {
			target.Merge(obj)
		}
	}
	return target, nil
}

type propertyValueNode struct{ node }

func newPropertyValueNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Property"); err != nil {
		return nil, err
	}
	return &propertyValueNode{node: newNode(NodePropertyValue, el, parent, c)}, nil
}

func (n *propertyValueNode) Annotate(key string, value any) {
	n.node.Annotate(n.attr("Property")+key, value)
}

func (n *propertyValueNode) Interpret() (any, error) {
	property := n.attr("Property")
	value, err := n.expressionFromAttributes()
	if err != nil {
		return nil, err
	}
	target := NewObject().Set(property, value)
	n.target = target

	for _, child := range n.children {
		result, err := child.Interpret()
		if err != nil {
			return nil, err
		}
		if child.Kind() == NodeAnnotation || result == nil {
			continue
		}
		if child.Kind() == NodeCollection {
			value = result
			continue
		}
		current, isObject := value.(*Object)
		incoming, ok := result.(*Object)
		if isObject && ok {
			current.Merge(incoming)
			continue
		}
		value = result
	}

	target.Set(property, value)
	// The members end up on the record
	n.target = n.parent.Target()
	return target, nil
}

type urlRefNode struct{ node }

func newURLRefNode(el *Element, parent Node, c *Context) (Node, error) {
	return &urlRefNode{node: newNode(NodeUrlRef, el, parent, c)}, nil
}

func (n *urlRefNode) Interpret() (any, error) {
	target := NewObject().Set("$UrlRef", nil)
	n.target = target

	var value any
	if v, ok := n.el.Attr("String"); ok {
		value = v
	}
	operands, err := n.childValues()
	if err != nil {
		return nil, err
	}
	if value == nil && len(operands) > 0 {
		value = operands[0]
	}
	target.Set("$UrlRef", value)
	return target, nil
}
