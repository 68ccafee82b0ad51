package csdl

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Metadata is a referenced document supplied by a MetadataFactory. AST takes precedence over Text.
type Metadata struct {
	Text []byte
	AST  *Element
}

// MetadataFactory supplies the document defining namespace. referenceURI is the Uri of the
// edmx:Reference including it, or "". Returning (nil, nil) means the document does not exist.
type MetadataFactory func(ctx context.Context, namespace, referenceURI string) (*Metadata, error)

// noMetadataFactory is used until a factory is configured
func noMetadataFactory(_ context.Context, namespace, _ string) (*Metadata, error) {
	return nil, fmt.Errorf("%w: cannot resolve '%s'", ErrNoMetadataFactory, namespace)
}

type aliasEntry struct {
	alias     string
	namespace string
}

// Context is the per-run resolution state shared by all nodes of one conversion
type Context struct {
	strategy  *Strategy
	options   Options
	logger    Logger
	aliases   []aliasEntry
	result    *Object
	cache     *IndexCache
	missing   []MissingReference
	lifecycle *Lifecycle
	inFlight  map[string]bool
	defaults  *DefaultValueResolver
}

// newContext creates the state of one run of strategy
func newContext(s *Strategy, opts Options) *Context {
	cache := s.cache
	if cache == nil {
		cache = NewIndexCache()
	}
	c := &Context{
		strategy:  s,
		options:   opts,
		logger:    s.logger,
		cache:     cache,
		lifecycle: NewLifecycle(),
		inFlight:  make(map[string]bool),
	}
	c.defaults = NewDefaultValueResolver(c)
	return c
}

func (c *Context) Logger() Logger        { return c.logger }
func (c *Context) Options() Options      { return c.options }
func (c *Context) Lifecycle() *Lifecycle { return c.lifecycle }
func (c *Context) Cache() *IndexCache    { return c.cache }
func (c *Context) Result() *Object       { return c.result }
func (c *Context) SetResult(doc *Object) { c.result = doc }
func (c *Context) isLibraryTarget() bool { return c.options.Target == TargetLibrary }

// MissingReferences returns the namespaces whose documents could not be provided
func (c *Context) MissingReferences() []MissingReference {
	out := make([]MissingReference, len(c.missing))
	copy(out, c.missing)
	return out
}

// addMissing records a missing document once per namespace
func (c *Context) addMissing(ref MissingReference) {
	for _, m := range c.missing {
		if m.Namespace == ref.Namespace {
			return
		}
	}
	c.logger.Warn("referenced document not found", "namespace", ref.Namespace, "uri", ref.URI)
	c.missing = append(c.missing, ref)
}

// SetAlias registers alias for namespace. Existing entries are never replaced.
func (c *Context) SetAlias(alias, namespace string) {
	for _, a := range c.aliases {
		if a.alias == alias {
			return
		}
	}
	c.aliases = append(c.aliases, aliasEntry{alias: alias, namespace: namespace})
}

// ResolveAlias replaces a leading "alias." by the aliased namespace
func (c *Context) ResolveAlias(name string) string {
	for _, a := range c.aliases {
		if strings.HasPrefix(name, a.alias+".") {
			return a.namespace + name[len(a.alias):]
		}
	}
	return name
}

// ResolveNamespace replaces the namespace qualifying name by its alias. With force,
// the first namespace found anywhere in name is replaced.
func (c *Context) ResolveNamespace(name string, force bool) string {
	if force {
		for _, a := range c.aliases {
			if strings.Contains(name, a.namespace) {
				return strings.Replace(name, a.namespace, a.alias, 1)
			}
		}
		return name
	}
	schema, simple := splitQualifiedName(name)
	for _, a := range c.aliases {
		if a.namespace == schema {
			return a.alias + "." + simple
		}
	}
	return name
}

// adoptResult caches the schemas of the finished tree so deferred tasks of this run
// and of nested runs see the document being produced
func (c *Context) adoptResult(doc *Object) {
	c.result = doc
	if doc == nil {
		return
	}
	idx := NewSchemaIndex(doc)
	for _, ns := range idx.Schemas() {
		c.cache.Set(ns, idx)
	}
}

// ResolveType resolves a qualified or aliased name to its definition, loading referenced
// documents as needed. A nil definition without error means the defining document is missing.
func (c *Context) ResolveType(ctx context.Context, name string) (*Definition, error) {
	c.logger.Path("entering Context.ResolveType", "type", name)
	fqn := c.ResolveAlias(name)

	if c.inFlight[fqn] {
		return nil, fmt.Errorf("%w: '%s' refers to itself", ErrCyclicType, fqn)
	}
	c.inFlight[fqn] = true
	defer delete(c.inFlight, fqn)

	idx, err := c.index(ctx, fqn)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, nil
	}

	for _, lookup := range []func(string) *Definition{idx.EntityType, idx.ComplexType, idx.EnumType} {
		if def := lookup(fqn); def != nil {
			return def, nil
		}
	}

	def := idx.Term(fqn)
	if def == nil {
		def = idx.TypeDefinition(fqn)
	}
	if def == nil {
		return nil, fmt.Errorf("could not find artifact '%s' in provided EDM schemas '%s'",
			fqn, strings.Join(idx.Schemas(), ","))
	}

	if def.Type() == nil {
		resolved, err := c.ResolveType(ctx, idx.ToFQN(def.TypeName()))
		if err != nil {
			return nil, err
		}
		def.SetType(resolved)
	}
	return def, nil
}

// index returns the SchemaIndex of the namespace qualifying fqn
func (c *Context) index(ctx context.Context, fqn string) (*SchemaIndex, error) {
	c.logger.Path("entering Context.index", "type", fqn)
	schema, _ := splitQualifiedName(fqn)
	if schema == "" {
		return nil, fmt.Errorf("'%s' is not a qualified name", fqn)
	}

	if idx, ok := c.cache.Get(schema); ok {
		c.logger.Debug("schema index found in cache", "type", fqn)
		return idx, nil
	}

	if c.result != nil && c.result.Has(schema) {
		idx := NewSchemaIndex(c.result)
		c.cache.Set(schema, idx)
		c.logger.Debug("schema index built from current document", "type", fqn)
		return idx, nil
	}

	vocabulary, found, err := LoadVocabulary(schema)
	if err != nil {
		return nil, err
	}
	if found {
		c.logger.Debug("schema index built from bundled vocabulary", "type", fqn)
		idx := NewSchemaIndex(vocabulary)
		c.cache.Set(schema, idx)
		return idx, nil
	}

	uri := NewSchemaIndex(c.result).ReferenceURIForType(fqn)
	return c.fetch(ctx, schema, uri)
}

// fetch asks the metadata factory for a namespace and converts what it returns
func (c *Context) fetch(ctx context.Context, namespace, uri string) (*SchemaIndex, error) {
	if err := c.cache.beginLoad(namespace); err != nil {
		return nil, err
	}
	defer c.cache.endLoad(namespace)

	c.logger.Path("entering metadata factory", "namespace", namespace, "uri", uri)
	factory := c.strategy.metadataFactory
	if factory == nil {
		factory = noMetadataFactory
	}
	md, err := factory(ctx, namespace, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata for namespace '%s': %w", namespace, err)
	}
	if md == nil || (md.AST == nil && md.Text == nil) {
		c.addMissing(MissingReference{Namespace: namespace, URI: uri})
		return nil, nil
	}

	c.logger.Debug("converting referenced document", "namespace", namespace)
	res, err := c.nestedConversion(ctx, md)
	var missing *MissingReferencesError
	switch {
	case errors.As(err, &missing):
		for _, ref := range missing.References {
			c.addMissing(ref)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to convert referenced document for namespace '%s': %w", namespace, err)
	}

	doc, ok := res.Document.(*Object)
	if !ok {
		return nil, fmt.Errorf("referenced document for namespace '%s' produced no CSDL document", namespace)
	}
	idx := NewSchemaIndex(doc)
	c.cache.Set(namespace, idx)
	return idx, nil
}

// nestedConversion runs this engine over a referenced document. Annotations are skipped
// and Edm.String types are kept so the index sees every declared type.
func (c *Context) nestedConversion(ctx context.Context, md *Metadata) (*Result, error) {
	opts := c.options
	opts.OmitDefaultStringType = false

	nested := c.strategy.clone().
		SetCache(c.cache).
		Use(edmNamespace+":Annotation", nil).
		Use(edmNamespace+":Annotations", nil)

	var input any = md.Text
	if md.AST != nil {
		input = md.AST
	}
	return NewPipeline(opts, nested).Execute(ctx, input)
}

// enumMemberExpression converts "ns.Type/A ns.Type/B" into the enum member expression of
// the output target. typeName is used when members are not qualified.
func (c *Context) enumMemberExpression(value, typeName string) any {
	members := strings.Fields(value)
	enumType := typeName
	for i, member := range members {
		idx := strings.Index(member, "/")
		if idx < 0 {
			continue
		}
		if enumType == "" {
			enumType = member[:idx]
		}
		members[i] = member[idx+1:]
	}
	joined := strings.Join(members, ",")
	if !c.isLibraryTarget() {
		return joined
	}
	return NewObject().
		Set("$EnumMember", joined).
		Set("$EnumMember@odata.type", "#"+enumType)
}
