package csdl

import (
	"strconv"
)

// NodeKind identifies the element a Node interprets
type NodeKind string

const (
	NodeDocument                  NodeKind = "Document"
	NodeEdmx                      NodeKind = "Edmx"
	NodeReference                 NodeKind = "Reference"
	NodeInclude                   NodeKind = "Include"
	NodeIncludeAnnotations        NodeKind = "IncludeAnnotations"
	NodeDataServices              NodeKind = "DataServices"
	NodeSchema                    NodeKind = "Schema"
	NodeEntityType                NodeKind = "EntityType"
	NodeComplexType               NodeKind = "ComplexType"
	NodeKey                       NodeKind = "Key"
	NodePropertyRef               NodeKind = "PropertyRef"
	NodeProperty                  NodeKind = "Property"
	NodeNavigationProperty        NodeKind = "NavigationProperty"
	NodeOnDelete                  NodeKind = "OnDelete"
	NodeReferentialConstraint     NodeKind = "ReferentialConstraint"
	NodeEnumType                  NodeKind = "EnumType"
	NodeMember                    NodeKind = "Member"
	NodeTypeDefinition            NodeKind = "TypeDefinition"
	NodeAction                    NodeKind = "Action"
	NodeFunction                  NodeKind = "Function"
	NodeParameter                 NodeKind = "Parameter"
	NodeReturnType                NodeKind = "ReturnType"
	NodeTerm                      NodeKind = "Term"
	NodeEntityContainer           NodeKind = "EntityContainer"
	NodeEntitySet                 NodeKind = "EntitySet"
	NodeSingleton                 NodeKind = "Singleton"
	NodeNavigationPropertyBinding NodeKind = "NavigationPropertyBinding"
	NodeActionImport              NodeKind = "ActionImport"
	NodeFunctionImport            NodeKind = "FunctionImport"
	NodeAnnotations               NodeKind = "Annotations"
	NodeAnnotation                NodeKind = "Annotation"
	NodeString                    NodeKind = "String"
	NodeBool                      NodeKind = "Bool"
	NodeInt                       NodeKind = "Int"
	NodeFloat                     NodeKind = "Float"
	NodeDecimal                   NodeKind = "Decimal"
	NodeDate                      NodeKind = "Date"
	NodeDateTimeOffset            NodeKind = "DateTimeOffset"
	NodeDuration                  NodeKind = "Duration"
	NodeGuid                      NodeKind = "Guid"
	NodeTimeOfDay                 NodeKind = "TimeOfDay"
	NodeBinary                    NodeKind = "Binary"
	NodeEnumMember                NodeKind = "EnumMember"
	NodePath                      NodeKind = "Path"
	NodeAnnotationPath            NodeKind = "AnnotationPath"
	NodePropertyPath              NodeKind = "PropertyPath"
	NodeNavigationPropertyPath    NodeKind = "NavigationPropertyPath"
	NodeModelElementPath          NodeKind = "ModelElementPath"
	NodeNull                      NodeKind = "Null"
	NodeLabeledElementReference   NodeKind = "LabeledElementReference"
	NodeLogical                   NodeKind = "Logical"
	NodeNot                       NodeKind = "Not"
	NodeIf                        NodeKind = "If"
	NodeApply                     NodeKind = "Apply"
	NodeCast                      NodeKind = "Cast"
	NodeIsOf                      NodeKind = "IsOf"
	NodeRecord                    NodeKind = "Record"
	NodePropertyValue             NodeKind = "PropertyValue"
	NodeCollection                NodeKind = "Collection"
	NodeUrlRef                    NodeKind = "UrlRef"
	NodeLabeledElement            NodeKind = "LabeledElement"
)

// Node interprets one recognized element into a CSDL JSON fragment.
//
// Interpret is called once, after the whole tree has been built. Annotate lets a
// descendant attach an annotation to the object this node produces; each node decides
// how the key is prefixed.
type Node interface {
	Kind() NodeKind
	Element() *Element
	Parent() Node
	Children() []Node
	AddChild(child Node)
	Target() any
	SetTarget(target any)
	Interpret() (any, error)
	Annotate(key string, value any)
}

// node carries the state shared by all interpreters
type node struct {
	kind     NodeKind
	el       *Element
	parent   Node
	children []Node
	target   any
	ctx      *Context
}

// newNode creates the shared state. An element declaring both Alias and Namespace
// registers the alias with the context.
func newNode(kind NodeKind, el *Element, parent Node, c *Context) node {
	alias, hasAlias := el.Attr("Alias")
	namespace, hasNamespace := el.Attr("Namespace")
	if hasAlias && hasNamespace && alias != "" && namespace != "" {
		c.SetAlias(alias, namespace)
	}
	c.logger.Debug("creating node", "kind", string(kind), "element", el.Name)
	return node{kind: kind, el: el, parent: parent, ctx: c}
}

func (n *node) Kind() NodeKind       { return n.kind }
func (n *node) Element() *Element    { return n.el }
func (n *node) Parent() Node         { return n.parent }
func (n *node) Children() []Node     { return n.children }
func (n *node) AddChild(child Node)  { n.children = append(n.children, child) }
func (n *node) Target() any          { return n.target }
func (n *node) SetTarget(target any) { n.target = target }

// Annotate sets key on the target object
func (n *node) Annotate(key string, value any) {
	if obj, ok := n.target.(*Object); ok {
		obj.Set(key, value)
	}
}

// Interpret merges the object results of all children into the target
func (n *node) Interpret() (any, error) {
	target, ok := n.target.(*Object)
	if !ok {
		target = NewObject()
		n.target = target
	}
	if err := n.mergeChildren(target); err != nil {
		return nil, err
	}
	return target, nil
}

// mergeChildren interprets every child and assigns object results onto target
func (n *node) mergeChildren(target *Object) error {
	for _, child := range n.children {
		result, err := child.Interpret()
		if err != nil {
			return err
		}
		if obj, ok := result.(*Object); ok {
			target.Merge(obj)
		}
	}
	return nil
}

// childValues interprets every child and collects the non-nil results
func (n *node) childValues() ([]any, error) {
	values := []any{}
	for _, child := range n.children {
		result, err := child.Interpret()
		if err != nil {
			return nil, err
		}
		if result != nil {
			values = append(values, result)
		}
	}
	return values, nil
}

func (n *node) attr(name string) string {
	v, _ := n.el.Attr(name)
	return v
}

func (n *node) text() string { return n.el.Text }

// requireAttrs fails with a StructuralError for the first missing attribute
func requireAttrs(el *Element, names ...string) error {
	for _, name := range names {
		if _, ok := el.Attr(name); !ok {
			return newStructuralError(el, name, "missing required attribute '%s'", name)
		}
	}
	return nil
}

// lookupNamespace returns the resolved namespace of the element, or finds the URI bound
// to the element prefix on the element itself or on the elements of its ancestors
func lookupNamespace(el *Element, parent Node) (string, bool) {
	if el.Namespace != "" {
		return el.Namespace, true
	}
	key := "xmlns"
	if prefix := el.Prefix(); prefix != "" {
		key = "xmlns:" + prefix
	}
	if uri, ok := el.Attr(key); ok {
		return uri, true
	}
	for p := parent; p != nil; p = p.Parent() {
		if uri, ok := p.Element().Attr(key); ok {
			return uri, true
		}
	}
	return "", false
}

// cast builds the {$Cast, $Type} wrapper for literals JSON cannot carry natively
func cast(value any, typeName string) *Object {
	return NewObject().Set("$Cast", value).Set("$Type", typeName)
}

// expressionFromAttributes evaluates the constant or path expression given in attribute
// notation. It returns nil when the element carries none.
func (n *node) expressionFromAttributes() (any, error) {
	el := n.el
	if v, ok := el.Attr("String"); ok {
		return v, nil
	}
	if v, ok := el.Attr("Bool"); ok {
		return v == "true", nil
	}

	for _, c := range []struct{ attr, typeName string }{
		{"Binary", "Edm.Binary"},
		{"Date", "Edm.Date"},
		{"DateTimeOffset", "Edm.DateTimeOffset"},
		{"Decimal", "Edm.Decimal"},
		{"Duration", "Edm.Duration"},
	} {
		if v, ok := el.Attr(c.attr); ok {
			return cast(v, c.typeName), nil
		}
	}
	for _, attr := range []string{"Float", "Double"} {
		if v, ok := el.Attr(attr); ok {
			f, err := parseFloatLiteral(v)
			if err != nil {
				return nil, newStructuralError(el, attr, "invalid %s value '%s'", attr, v)
			}
			return f, nil
		}
	}
	if v, ok := el.Attr("Guid"); ok {
		return cast(v, "Edm.Guid"), nil
	}
	if v, ok := el.Attr("Int"); ok {
		return cast(v, "Edm.Int64"), nil
	}
	if v, ok := el.Attr("TimeOfDay"); ok {
		return cast(v, "Edm.TimeOfDay"), nil
	}

	library := n.ctx.isLibraryTarget()
	if v, ok := el.Attr("AnnotationPath"); ok {
		return pathExpression("$AnnotationPath", n.ctx.ResolveNamespace(v, true), library), nil
	}
	for _, attr := range []string{"PropertyPath", "ModelElementPath", "NavigationPropertyPath"} {
		if v, ok := el.Attr(attr); ok {
			return pathExpression("$"+attr, v, library), nil
		}
	}
	if v, ok := el.Attr("EnumMember"); ok {
		return n.ctx.enumMemberExpression(v, ""), nil
	}

	if v, ok := el.Attr("Path"); ok {
		return NewObject().Set("$Path", v), nil
	}
	if v, ok := el.Attr("UrlRef"); ok {
		return NewObject().Set("$UrlRef", v), nil
	}
	return nil, nil
}

// pathExpression wraps a path for the library target and keeps it bare otherwise
func pathExpression(key, value string, library bool) any {
	if library {
		return NewObject().Set(key, value)
	}
	return value
}

// parseFloatLiteral accepts the special values INF, -INF and NaN verbatim
func parseFloatLiteral(v string) (any, error) {
	switch v {
	case "INF", "-INF", "NaN":
		return v, nil
	}
	return strconv.ParseFloat(v, 64)
}
