package csdl

import (
	"fmt"
	"strings"
)

// DefinitionKind discriminates the named definitions a SchemaIndex can return
type DefinitionKind string

const (
	KindEntityType     DefinitionKind = "EntityType"
	KindComplexType    DefinitionKind = "ComplexType"
	KindEnumType       DefinitionKind = "EnumType"
	KindTypeDefinition DefinitionKind = "TypeDefinition"
	KindTerm           DefinitionKind = "Term"
	KindPrimitive      DefinitionKind = "Primitive"
)

// documentKeys are top-level members of a CSDL JSON document that are not schemas
var documentKeys = map[string]bool{
	"$Reference":       true,
	"$Version":         true,
	"$EntityContainer": true,
}

// Definition is a typed view of one named definition inside a CSDL JSON document
type Definition struct {
	Kind   DefinitionKind
	Name   string
	FQN    string
	Target *Object

	index    *SchemaIndex
	typ      *Definition
	resolved bool
}

// primitiveDefinition wraps an Edm primitive type name
func primitiveDefinition(name string) *Definition {
	return &Definition{Kind: KindPrimitive, Name: name, FQN: name, resolved: true}
}

// TypeName returns the declared type: $Type, then $UnderlyingType, then Edm.String
func (d *Definition) TypeName() string {
	if d.Kind == KindPrimitive {
		return d.Name
	}
	if t, ok := d.Target.GetString("$Type"); ok {
		return t
	}
	if t, ok := d.Target.GetString("$UnderlyingType"); ok {
		return t
	}
	return "Edm.String"
}

func (d *Definition) String() string { return d.TypeName() }

// Type returns the definition of the declared type when it can be found in the same
// document or is primitive. It returns nil when the type lives in another document.
func (d *Definition) Type() *Definition {
	if d.Kind == KindPrimitive {
		return d
	}
	if d.resolved {
		return d.typ
	}
	name := d.TypeName()
	if d.index != nil {
		for _, kind := range []DefinitionKind{KindEntityType, KindComplexType, KindEnumType, KindTypeDefinition} {
			if def := d.index.lookup(name, kind); def != nil {
				d.typ, d.resolved = def, true
				return def
			}
		}
	}
	if IsPrimitiveTypeName(name) {
		d.typ, d.resolved = primitiveDefinition(name), true
		return d.typ
	}
	return nil
}

// SetType records a type resolved from another document
func (d *Definition) SetType(t *Definition) {
	d.typ, d.resolved = t, true
}

// IsCollection reports whether the definition is collection-valued
func (d *Definition) IsCollection() bool {
	if d.Target == nil {
		return false
	}
	v, _ := d.Target.Get("$Collection")
	return v == true
}

// DefaultValue returns the $DefaultValue member
func (d *Definition) DefaultValue() (any, bool) {
	if d.Target == nil {
		return nil, false
	}
	v, ok := d.Target.Get("$DefaultValue")
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// PrimitiveName follows type definitions down to their primitive underlying type.
// A chain that revisits a definition is reported as ErrCyclicType.
func (d *Definition) PrimitiveName() (string, error) {
	visited := map[*Object]bool{}
	cur := d
	for cur != nil && cur.Kind == KindTypeDefinition {
		if visited[cur.Target] {
			return "", fmt.Errorf("%w: type definition '%s'", ErrCyclicType, cur.FQN)
		}
		visited[cur.Target] = true
		next := cur.Type()
		if next == nil {
			return cur.TypeName(), nil
		}
		cur = next
	}
	if cur == nil {
		return d.TypeName(), nil
	}
	return cur.TypeName(), nil
}

// SchemaIndex is a read-only navigational view over a CSDL JSON document
type SchemaIndex struct {
	doc     *Object
	schemas []string
}

// NewSchemaIndex indexes doc. A nil document yields an empty index.
func NewSchemaIndex(doc *Object) *SchemaIndex {
	idx := &SchemaIndex{doc: doc}
	for _, key := range doc.Keys() {
		if documentKeys[key] {
			continue
		}
		if _, ok := doc.GetObject(key); ok {
			idx.schemas = append(idx.schemas, key)
		}
	}
	return idx
}

// Document returns the indexed document
func (i *SchemaIndex) Document() *Object { return i.doc }

// Schemas returns the schema namespaces in document order
func (i *SchemaIndex) Schemas() []string {
	out := make([]string, len(i.schemas))
	copy(out, i.schemas)
	return out
}

// HasSchema reports whether namespace is a schema of the document
func (i *SchemaIndex) HasSchema(namespace string) bool {
	for _, s := range i.schemas {
		if s == namespace {
			return true
		}
	}
	return false
}

func (i *SchemaIndex) EntityType(name string) *Definition {
	return i.lookup(name, KindEntityType)
}

func (i *SchemaIndex) ComplexType(name string) *Definition {
	return i.lookup(name, KindComplexType)
}

func (i *SchemaIndex) EnumType(name string) *Definition {
	return i.lookup(name, KindEnumType)
}

func (i *SchemaIndex) TypeDefinition(name string) *Definition {
	return i.lookup(name, KindTypeDefinition)
}

func (i *SchemaIndex) Term(name string) *Definition {
	return i.lookup(name, KindTerm)
}

// lookup resolves a namespace- or alias-qualified name. A kind mismatch is "not found".
func (i *SchemaIndex) lookup(name string, kind DefinitionKind) *Definition {
	schema, rest := i.splitSchema(name)
	if schema == "" {
		return nil
	}
	target, ok := i.doc.GetObject(schema)
	if !ok {
		return nil
	}

	var simple string
	for _, part := range strings.Split(rest, ".") {
		if idx := strings.IndexByte(part, '#'); idx >= 0 {
			part = part[:idx]
		}
		next, ok := target.GetObject(part)
		if !ok {
			return nil
		}
		simple = part
		target = next
	}

	if k, _ := target.GetString("$Kind"); k != string(kind) {
		return nil
	}
	return &Definition{
		Kind:   kind,
		Name:   simple,
		FQN:    schema + "." + rest,
		Target: target,
		index:  i,
	}
}

// splitSchema finds the schema a qualified name belongs to, by namespace or alias.
// The longest matching qualifier wins.
func (i *SchemaIndex) splitSchema(name string) (schema, rest string) {
	best := -1
	for _, s := range i.schemas {
		qualifiers := []string{s}
		if obj, ok := i.doc.GetObject(s); ok {
			if alias, ok := obj.GetString("$Alias"); ok && alias != "" {
				qualifiers = append(qualifiers, alias)
			}
		}
		for _, q := range qualifiers {
			if strings.HasPrefix(name, q+".") && len(q) > best {
				best = len(q)
				schema, rest = s, name[len(q)+1:]
			}
		}
	}
	return schema, rest
}

// includes iterates over the $Include entries of every $Reference
func (i *SchemaIndex) includes(fn func(uri string, include *Object) bool) {
	refs, ok := i.doc.GetObject("$Reference")
	if !ok {
		return
	}
	for _, uri := range refs.Keys() {
		ref, ok := refs.GetObject(uri)
		if !ok {
			continue
		}
		list, _ := ref.Get("$Include")
		items, _ := list.([]any)
		for _, item := range items {
			include, ok := item.(*Object)
			if !ok {
				continue
			}
			if !fn(uri, include) {
				return
			}
		}
	}
}

// ToFQN replaces a reference alias qualifier by its namespace. Names that are not
// alias-qualified are returned unchanged.
func (i *SchemaIndex) ToFQN(aliasedName string) string {
	qualifier, simple := splitQualifiedName(aliasedName)
	if qualifier == "" {
		return aliasedName
	}
	result := aliasedName
	i.includes(func(_ string, include *Object) bool {
		if alias, _ := include.GetString("$Alias"); alias == qualifier {
			if ns, ok := include.GetString("$Namespace"); ok {
				result = ns + "." + simple
				return false
			}
		}
		return true
	})
	return result
}

// ReferenceURIForType returns the Uri of the reference including the namespace or alias
// that qualifies name, or "" when there is none.
func (i *SchemaIndex) ReferenceURIForType(name string) string {
	qualifier, _ := splitQualifiedName(name)
	if qualifier == "" {
		return ""
	}
	var uri string
	i.includes(func(u string, include *Object) bool {
		alias, _ := include.GetString("$Alias")
		ns, _ := include.GetString("$Namespace")
		if alias == qualifier || ns == qualifier {
			uri = u
			return false
		}
		return true
	})
	return uri
}

// splitQualifiedName splits at the last dot: "a.b.C" -> ("a.b", "C")
func splitQualifiedName(name string) (qualifier, simple string) {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return "", name
	}
	return name[:idx], name[idx+1:]
}
