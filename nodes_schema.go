package csdl

import (
	"strconv"
	"strings"
)

// documentNode is the root of every tree; its element is the AST document element
type documentNode struct{ node }

func newDocumentNode(el *Element, c *Context) *documentNode {
	return &documentNode{node: node{kind: NodeDocument, el: el, ctx: c}}
}

type edmxNode struct{ node }

func newEdmxNode(el *Element, parent Node, c *Context) (Node, error) {
	return &edmxNode{node: newNode(NodeEdmx, el, parent, c)}, nil
}

func (n *edmxNode) Interpret() (any, error) {
	target := NewObject()
	if version, ok := n.el.Attr("Version"); ok {
		target.Set("$Version", version)
	}
	n.target = target

	for _, child := range n.children {
		result, err := child.Interpret()
		if err != nil {
			return nil, err
		}
		obj, ok := result.(*Object)
		if !ok {
			continue
		}
		if child.Kind() == NodeReference {
			refs, ok := target.GetObject("$Reference")
			if !ok {
				refs = NewObject()
				target.Set("$Reference", refs)
			}
			inner, _ := obj.GetObject("$Reference")
			refs.Merge(inner)
			continue
		}
		target.Merge(obj)
	}
	return target, nil
}

type dataServicesNode struct{ node }

func newDataServicesNode(el *Element, parent Node, c *Context) (Node, error) {
	if parent != nil {
		for _, sibling := range parent.Children() {
			if sibling.Kind() == NodeDataServices {
				return nil, newStructuralError(el, "", "only one DataServices element is allowed")
			}
		}
	}
	return &dataServicesNode{node: newNode(NodeDataServices, el, parent, c)}, nil
}

type referenceNode struct{ node }

func newReferenceNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Uri"); err != nil {
		return nil, err
	}
	return &referenceNode{node: newNode(NodeReference, el, parent, c)}, nil
}

func (n *referenceNode) Interpret() (any, error) {
	target := NewObject()
	n.target = target

	var includes, includeAnnotations []any
	for _, child := range n.children {
		result, err := child.Interpret()
		if err != nil {
			return nil, err
		}
		if result == nil {
			continue
		}
		switch child.Kind() {
		case NodeInclude:
			includes = append(includes, result)
			target.Set("$Include", includes)
		case NodeIncludeAnnotations:
			includeAnnotations = append(includeAnnotations, result)
			target.Set("$IncludeAnnotations", includeAnnotations)
		default:
			if obj, ok := result.(*Object); ok {
				target.Merge(obj)
			}
		}
	}

	return NewObject().Set("$Reference", NewObject().Set(n.attr("Uri"), target)), nil
}

type includeNode struct{ node }

func newIncludeNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Namespace"); err != nil {
		return nil, err
	}
	return &includeNode{node: newNode(NodeInclude, el, parent, c)}, nil
}

func (n *includeNode) Interpret() (any, error) {
	target := NewObject()
	n.target = target
	if err := applyFacets(target, n.el, facetNamespace|facetAlias); err != nil {
		return nil, err
	}
	if err := n.mergeChildren(target); err != nil {
		return nil, err
	}
	return target, nil
}

type includeAnnotationsNode struct{ node }

func newIncludeAnnotationsNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "TermNamespace"); err != nil {
		return nil, err
	}
	return &includeAnnotationsNode{node: newNode(NodeIncludeAnnotations, el, parent, c)}, nil
}

func (n *includeAnnotationsNode) Interpret() (any, error) {
	target := NewObject().Set("$TermNamespace", n.attr("TermNamespace"))
	if v, ok := n.el.Attr("Qualifier"); ok {
		target.Set("$Qualifier", v)
	}
	if v, ok := n.el.Attr("TargetNamespace"); ok {
		target.Set("$TargetNamespace", v)
	}
	n.target = target
	return target, nil
}

type schemaNode struct{ node }

func newSchemaNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Namespace"); err != nil {
		return nil, err
	}
	return &schemaNode{node: newNode(NodeSchema, el, parent, c)}, nil
}

func (n *schemaNode) Interpret() (any, error) {
	namespace := n.attr("Namespace")
	target := NewObject()
	n.target = target
	if alias, ok := n.el.Attr("Alias"); ok {
		target.Set("$Alias", alias)
	}
	result := NewObject().Set(namespace, target)

	for _, child := range n.children {
		value, err := child.Interpret()
		if err != nil {
			return nil, err
		}
		obj, ok := value.(*Object)
		if !ok {
			continue
		}

		switch child.Kind() {
		case NodeAction, NodeFunction:
			for _, name := range obj.Keys() {
				overloads, _ := obj.Get(name)
				existing, exists := target.Get(name)
				if !exists {
					target.Set(name, overloads)
					continue
				}
				list, isOperation := existing.([]any)
				if !isOperation {
					return nil, newStructuralError(child.Element(), "Name", "duplicate definition '%s' in schema '%s'", name, namespace)
				}
				target.Set(name, append(list, overloads.([]any)...))
			}
		case NodeAnnotations:
			mergeAnnotations(target, obj, child)
		default:
			if child.Kind() == NodeEntityContainer {
				name, _ := child.Element().Attr("Name")
				result.Set("$EntityContainer", namespace+"."+name)
			}
			for _, key := range obj.Keys() {
				if target.Has(key) {
					return nil, newStructuralError(child.Element(), "Name", "duplicate definition '%s' in schema '%s'", key, namespace)
				}
				v, _ := obj.Get(key)
				target.Set(key, v)
			}
		}
	}
	return result, nil
}

// mergeAnnotations adds an Annotations result to the $Annotations member of a schema.
// Annotations for an already present target path are merged into the existing object.
func mergeAnnotations(schema, result *Object, child Node) {
	annotations, ok := schema.GetObject("$Annotations")
	if !ok {
		annotations = NewObject()
		schema.Set("$Annotations", annotations)
	}
	incoming, _ := result.GetObject("$Annotations")
	for _, path := range incoming.Keys() {
		value, _ := incoming.GetObject(path)
		if existing, ok := annotations.GetObject(path); ok {
			existing.Merge(value)
			child.SetTarget(existing)
			continue
		}
		annotations.Set(path, value)
	}
}

// structuredTypeNode interprets EntityType and ComplexType
type structuredTypeNode struct{ node }

func newEntityTypeNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Name"); err != nil {
		return nil, err
	}
	return &structuredTypeNode{node: newNode(NodeEntityType, el, parent, c)}, nil
}

func newComplexTypeNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Name"); err != nil {
		return nil, err
	}
	return &structuredTypeNode{node: newNode(NodeComplexType, el, parent, c)}, nil
}

func (n *structuredTypeNode) Interpret() (any, error) {
	target := NewObject().Set("$Kind", string(n.kind))
	n.target = target
	if err := applyFacets(target, n.el, facetBaseType); err != nil {
		return nil, err
	}
	if n.attr("Abstract") == "true" {
		target.Set("$Abstract", true)
	}
	if err := applyFacets(target, n.el, facetOpenType|facetHasStream); err != nil {
		return nil, err
	}
	if err := n.mergeChildren(target); err != nil {
		return nil, err
	}
	return NewObject().Set(n.attr("Name"), target), nil
}

type keyNode struct{ node }

func newKeyNode(el *Element, parent Node, c *Context) (Node, error) {
	return &keyNode{node: newNode(NodeKey, el, parent, c)}, nil
}

func (n *keyNode) Interpret() (any, error) {
	values, err := n.childValues()
	if err != nil {
		return nil, err
	}
	target := NewObject().Set("$Key", values)
	n.target = target
	return target, nil
}

type propertyRefNode struct{ node }

func newPropertyRefNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Name"); err != nil {
		return nil, err
	}
	return &propertyRefNode{node: newNode(NodePropertyRef, el, parent, c)}, nil
}

func (n *propertyRefNode) Interpret() (any, error) {
	if alias, ok := n.el.Attr("Alias"); ok {
		target := NewObject().Set(alias, n.attr("Name"))
		n.target = target
		return target, nil
	}
	return n.attr("Name"), nil
}

type propertyNode struct{ node }

func newPropertyNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Name", "Type"); err != nil {
		return nil, err
	}
	return &propertyNode{node: newNode(NodeProperty, el, parent, c)}, nil
}

func (n *propertyNode) Interpret() (any, error) {
	target := NewObject()
	n.target = target
	if err := applyFacets(target, n.el, facetType|valueFacets|facetDefaultValue|facetNullable); err != nil {
		return nil, err
	}
	if raw, ok := n.el.Attr("DefaultValue"); ok {
		if err := n.ctx.defaults.Resolve(n.el, target, raw); err != nil {
			return nil, err
		}
	}
	if err := n.mergeChildren(target); err != nil {
		return nil, err
	}
	return NewObject().Set(n.attr("Name"), target), nil
}

type navigationPropertyNode struct{ node }

func newNavigationPropertyNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Name", "Type"); err != nil {
		return nil, err
	}
	return &navigationPropertyNode{node: newNode(NodeNavigationProperty, el, parent, c)}, nil
}

func (n *navigationPropertyNode) Interpret() (any, error) {
	target := NewObject().Set("$Kind", "NavigationProperty")
	n.target = target
	if err := applyFacets(target, n.el, facetType|facetPartner|facetContainsTarget|facetNullable); err != nil {
		return nil, err
	}

	for _, child := range n.children {
		result, err := child.Interpret()
		if err != nil {
			return nil, err
		}
		obj, ok := result.(*Object)
		if !ok {
			continue
		}
		if child.Kind() == NodeReferentialConstraint {
			constraints, ok := target.GetObject("$ReferentialConstraint")
			if !ok {
				constraints = NewObject()
				target.Set("$ReferentialConstraint", constraints)
			}
			inner, _ := obj.GetObject("$ReferentialConstraint")
			constraints.Merge(inner)
			child.SetTarget(constraints)
			continue
		}
		target.Merge(obj)
	}
	return NewObject().Set(n.attr("Name"), target), nil
}

type onDeleteNode struct{ node }

func newOnDeleteNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Action"); err != nil {
		return nil, err
	}
	return &onDeleteNode{node: newNode(NodeOnDelete, el, parent, c)}, nil
}

func (n *onDeleteNode) Annotate(key string, value any) {
	n.node.Annotate("$OnDelete"+key, value)
}

func (n *onDeleteNode) Interpret() (any, error) {
	target := NewObject().Set("$OnDelete", n.attr("Action"))
	n.target = target
	if err := n.mergeChildren(target); err != nil {
		return nil, err
	}
	// The members end up on the navigation property
	n.target = n.parent.Target()
	return target, nil
}

type referentialConstraintNode struct{ node }

func newReferentialConstraintNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Property", "ReferencedProperty"); err != nil {
		return nil, err
	}
	return &referentialConstraintNode{node: newNode(NodeReferentialConstraint, el, parent, c)}, nil
}

func (n *referentialConstraintNode) Annotate(key string, value any) {
	n.node.Annotate(n.attr("Property")+key, value)
}

func (n *referentialConstraintNode) Interpret() (any, error) {
	target := NewObject().Set(n.attr("Property"), n.attr("ReferencedProperty"))
	n.target = target
	if err := n.mergeChildren(target); err != nil {
		return nil, err
	}
	return NewObject().Set("$ReferentialConstraint", target), nil
}

type enumTypeNode struct{ node }

func newEnumTypeNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Name"); err != nil {
		return nil, err
	}
	return &enumTypeNode{node: newNode(NodeEnumType, el, parent, c)}, nil
}

func (n *enumTypeNode) Interpret() (any, error) {
	target := NewObject().Set("$Kind", "EnumType")
	n.target = target
	if err := applyFacets(target, n.el, facetUnderlyingType|facetIsFlags); err != nil {
		return nil, err
	}
	if err := n.mergeChildren(target); err != nil {
		return nil, err
	}
	return NewObject().Set(n.attr("Name"), target), nil
}

type memberNode struct{ node }

func newMemberNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Name"); err != nil {
		return nil, err
	}
	return &memberNode{node: newNode(NodeMember, el, parent, c)}, nil
}

func (n *memberNode) Annotate(key string, value any) {
	n.node.Annotate(n.attr("Name")+key, value)
}

// index returns the position of the member among the members of its enum type
func (n *memberNode) index() int64 {
	var i int64
	for _, sibling := range n.parent.Children() {
		if sibling == Node(n) {
			break
		}
		if sibling.Kind() == NodeMember {
			i++
		}
	}
	return i
}

func (n *memberNode) Interpret() (any, error) {
	value := n.index()
	if raw, ok := n.el.Attr("Value"); ok {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, newStructuralError(n.el, "Value", "enum member value must be an integer, got '%s'", raw)
		}
		value = v
	}

	target := NewObject().Set(n.attr("Name"), value)
	n.target = target
	if err := n.mergeChildren(target); err != nil {
		return nil, err
	}
	// The members end up on the enum type
	n.target = n.parent.Target()
	return target, nil
}

type typeDefinitionNode struct{ node }

func newTypeDefinitionNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Name", "UnderlyingType"); err != nil {
		return nil, err
	}
	return &typeDefinitionNode{node: newNode(NodeTypeDefinition, el, parent, c)}, nil
}

func (n *typeDefinitionNode) Interpret() (any, error) {
	target := NewObject().Set("$Kind", "TypeDefinition")
	n.target = target
	if err := applyFacets(target, n.el, facetUnderlyingType|valueFacets); err != nil {
		return nil, err
	}
	if err := n.mergeChildren(target); err != nil {
		return nil, err
	}
	return NewObject().Set(n.attr("Name"), target), nil
}

// operationNode interprets Action and Function. The result is a one-element overload list.
type operationNode struct{ node }

func newActionNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Name"); err != nil {
		return nil, err
	}
	return &operationNode{node: newNode(NodeAction, el, parent, c)}, nil
}

func newFunctionNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Name"); err != nil {
		return nil, err
	}
	return &operationNode{node: newNode(NodeFunction, el, parent, c)}, nil
}

func (n *operationNode) Interpret() (any, error) {
	target := NewObject().Set("$Kind", string(n.kind))
	n.target = target

	facets := facetIsBound | facetEntitySetPath
	if n.kind == NodeFunction {
		facets |= facetIsComposable
	}
	if err := applyFacets(target, n.el, facets); err != nil {
		return nil, err
	}

	var parameters []any
	for _, child := range n.children {
		result, err := child.Interpret()
		if err != nil {
			return nil, err
		}
		if child.Kind() == NodeParameter {
			parameters = append(parameters, result)
			target.Set("$Parameter", parameters)
			continue
		}
		if obj, ok := result.(*Object); ok {
			target.Merge(obj)
		}
	}
	return NewObject().Set(n.attr("Name"), []any{target}), nil
}

type parameterNode struct{ node }

func newParameterNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Name", "Type"); err != nil {
		return nil, err
	}
	return &parameterNode{node: newNode(NodeParameter, el, parent, c)}, nil
}

func (n *parameterNode) Interpret() (any, error) {
	target := NewObject().Set("$Name", n.attr("Name"))
	n.target = target
	if err := applyFacets(target, n.el, facetType|valueFacets|facetNullable); err != nil {
		return nil, err
	}
	if err := n.mergeChildren(target); err != nil {
		return nil, err
	}
	return target, nil
}

type returnTypeNode struct{ node }

func newReturnTypeNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Type"); err != nil {
		return nil, err
	}
	return &returnTypeNode{node: newNode(NodeReturnType, el, parent, c)}, nil
}

func (n *returnTypeNode) Interpret() (any, error) {
	target := NewObject()
	n.target = target
	if err := applyFacets(target, n.el, facetType|valueFacets|facetNullable); err != nil {
		return nil, err
	}
	if err := n.mergeChildren(target); err != nil {
		return nil, err
	}
	return NewObject().Set("$ReturnType", target), nil
}

type termNode struct{ node }

func newTermNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Name", "Type"); err != nil {
		return nil, err
	}
	return &termNode{node: newNode(NodeTerm, el, parent, c)}, nil
}

func (n *termNode) Interpret() (any, error) {
	target := NewObject().Set("$Kind", "Term")
	n.target = target
	if err := applyFacets(target, n.el, facetType|valueFacets|facetBaseType|facetDefaultValue|facetNullable); err != nil {
		return nil, err
	}
	if appliesTo, ok := n.el.Attr("AppliesTo"); ok {
		list := []any{}
		for _, kind := range strings.Fields(appliesTo) {
			list = append(list, kind)
		}
		target.Set("$AppliesTo", list)
	}
	if raw, ok := n.el.Attr("DefaultValue"); ok {
		if err := n.ctx.defaults.Resolve(n.el, target, raw); err != nil {
			return nil, err
		}
	}
	if err := n.mergeChildren(target); err != nil {
		return nil, err
	}
	return NewObject().Set(n.attr("Name"), target), nil
}

type entityContainerNode struct{ node }

func newEntityContainerNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Name"); err != nil {
		return nil, err
	}
	return &entityContainerNode{node: newNode(NodeEntityContainer, el, parent, c)}, nil
}

func (n *entityContainerNode) Interpret() (any, error) {
	target := NewObject().Set("$Kind", "EntityContainer")
	n.target = target
	if extends, ok := n.el.Attr("Extends"); ok {
		target.Set("$Extends", extends)
	}
	if err := n.mergeChildren(target); err != nil {
		return nil, err
	}
	return NewObject().Set(n.attr("Name"), target), nil
}

// entitySetNode interprets EntitySet and Singleton
type entitySetNode struct{ node }

func newEntitySetNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Name", "EntityType"); err != nil {
		return nil, err
	}
	return &entitySetNode{node: newNode(NodeEntitySet, el, parent, c)}, nil
}

func newSingletonNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Name", "Type"); err != nil {
		return nil, err
	}
	return &entitySetNode{node: newNode(NodeSingleton, el, parent, c)}, nil
}

func (n *entitySetNode) Interpret() (any, error) {
	target := NewObject()
	n.target = target
	if n.kind == NodeEntitySet {
		target.Set("$Collection", true)
	}
	if err := applyFacets(target, n.el, facetType); err != nil {
		return nil, err
	}
	if n.kind == NodeEntitySet && n.attr("IncludeInServiceDocument") == "false" {
		target.Set("$IncludeInServiceDocument", false)
	}

	for _, child := range n.children {
		result, err := child.Interpret()
		if err != nil {
			return nil, err
		}
		obj, ok := result.(*Object)
		if !ok {
			continue
		}
		if child.Kind() == NodeNavigationPropertyBinding {
			bindings, ok := target.GetObject("$NavigationPropertyBinding")
			if !ok {
				bindings = NewObject()
				target.Set("$NavigationPropertyBinding", bindings)
			}
			inner, _ := obj.GetObject("$NavigationPropertyBinding")
			bindings.Merge(inner)
			continue
		}
		target.Merge(obj)
	}
	return NewObject().Set(n.attr("Name"), target), nil
}

type navigationPropertyBindingNode struct{ node }

func newNavigationPropertyBindingNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Path", "Target"); err != nil {
		return nil, err
	}
	return &navigationPropertyBindingNode{node: newNode(NodeNavigationPropertyBinding, el, parent, c)}, nil
}

func (n *navigationPropertyBindingNode) Interpret() (any, error) {
	target := NewObject().Set(n.attr("Path"), n.attr("Target"))
	n.target = target
	return NewObject().Set("$NavigationPropertyBinding", target), nil
}

type actionImportNode struct{ node }

func newActionImportNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Name", "Action"); err != nil {
		return nil, err
	}
	return &actionImportNode{node: newNode(NodeActionImport, el, parent, c)}, nil
}

func (n *actionImportNode) Interpret() (any, error) {
	target := NewObject().Set("$Action", n.ctx.ResolveNamespace(n.attr("Action"), false))
	n.target = target
	if err := applyFacets(target, n.el, facetEntitySet); err != nil {
		return nil, err
	}
	if err := n.mergeChildren(target); err != nil {
		return nil, err
	}
	return NewObject().Set(n.attr("Name"), target), nil
}

type functionImportNode struct{ node }

func newFunctionImportNode(el *Element, parent Node, c *Context) (Node, error) {
	if err := requireAttrs(el, "Name", "Function"); err != nil {
		return nil, err
	}
	return &functionImportNode{node: newNode(NodeFunctionImport, el, parent, c)}, nil
}

func (n *functionImportNode) Interpret() (any, error) {
	target := NewObject().Set("$Function", n.attr("Function"))
	n.target = target
	if err := applyFacets(target, n.el, facetEntitySet); err != nil {
		return nil, err
	}
	if n.attr("IncludeInServiceDocument") == "true" {
		target.Set("$IncludeInServiceDocument", true)
	}
	if err := n.mergeChildren(target); err != nil {
		return nil, err
	}
	return NewObject().Set(n.attr("Name"), target), nil
}
