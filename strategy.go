package csdl

import (
	"context"
	"fmt"
)

// Strategy converts an EDMX abstract syntax tree into a CSDL JSON document. It builds a
// node tree from the registered factories, interprets it and drains the deferred
// resolution tasks.
type Strategy struct {
	registry        map[string]Factory
	astFactory      ASTFactory
	metadataFactory MetadataFactory
	normalizer      Normalizer
	logger          Logger
	cache           *IndexCache
}

// NewStrategy creates a strategy with the built-in factories
func NewStrategy() *Strategy {
	return &Strategy{
		registry:   defaultRegistry(),
		astFactory: ParseAST,
		normalizer: identityNormalizer,
		logger:     NopLogger{},
	}
}

// clone copies the configuration and the factory table
func (s *Strategy) clone() *Strategy {
	out := *s
	out.registry = make(map[string]Factory, len(s.registry))
	for name, factory := range s.registry {
		out.registry[name] = factory
	}
	return &out
}

// Use registers factory for a qualified element name "namespaceURI:LocalName".
// A nil factory makes the strategy skip the element and its subtree.
func (s *Strategy) Use(name string, factory Factory) *Strategy {
	if factory == nil {
		factory = ignore
	}
	s.registry[name] = factory
	return s
}

func (s *Strategy) SetASTFactory(f ASTFactory) *Strategy {
	s.astFactory = f
	return s
}

func (s *Strategy) SetMetadataFactory(f MetadataFactory) *Strategy {
	s.metadataFactory = f
	return s
}

func (s *Strategy) SetNormalizer(f Normalizer) *Strategy {
	if f == nil {
		f = identityNormalizer
	}
	s.normalizer = f
	return s
}

func (s *Strategy) SetLogger(l Logger) *Strategy {
	if l == nil {
		l = NopLogger{}
	}
	s.logger = l
	return s
}

// SetCache makes runs of this strategy share an index cache
func (s *Strategy) SetCache(cache *IndexCache) *Strategy {
	s.cache = cache
	return s
}

// Execute converts input, which may be raw text ([]byte or string), an *Element or a
// *Metadata. On failure the partial document is returned along with the error. When
// referenced documents were missing the error is a *MissingReferencesError.
func (s *Strategy) Execute(ctx context.Context, input any, p *Pipeline) (any, []MissingReference, error) {
	opts := DefaultOptions()
	if p != nil {
		opts = p.Options()
	}

	root, err := s.ast(input)
	if err != nil {
		return nil, []MissingReference{}, err
	}
	root = s.normalizer(root)
	if root == nil {
		return nil, []MissingReference{}, fmt.Errorf("normalizer returned no element")
	}
	if root.Name != "" {
		root = &Element{Elements: []*Element{root}}
	}

	c := newContext(s, opts)
	doc := newDocumentNode(root, c)
	if err := s.build(ctx, doc, c); err != nil {
		return nil, c.MissingReferences(), err
	}

	result, err := doc.Interpret()
	if err != nil {
		return nil, c.MissingReferences(), err
	}
	document, _ := result.(*Object)
	c.adoptResult(document)

	if err := c.Lifecycle().Emit(ctx, PhaseFinalize); err != nil {
		return document, c.MissingReferences(), err
	}

	missing := c.MissingReferences()
	if len(missing) > 0 {
		return document, missing, &MissingReferencesError{References: missing}
	}
	return document, missing, nil
}

// ast turns the input of Execute into an abstract syntax tree
func (s *Strategy) ast(input any) (*Element, error) {
	switch in := input.(type) {
	case *Element:
		return in, nil
	case *Metadata:
		if in.AST != nil {
			return in.AST, nil
		}
		return s.parse(in.Text)
	case []byte:
		return s.parse(in)
	case string:
		return s.parse([]byte(in))
	}
	return nil, fmt.Errorf("unsupported input type %T", input)
}

func (s *Strategy) parse(data []byte) (*Element, error) {
	if s.astFactory == nil {
		return nil, ErrNoASTFactory
	}
	return s.astFactory(data)
}

// build creates the nodes for the child elements of parent, depth first
func (s *Strategy) build(ctx context.Context, parent Node, c *Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, el := range parent.Element().Elements {
		uri, ok := lookupNamespace(el, parent)
		if !ok {
			c.logger.Debug("skipping element without namespace", "element", el.Name)
			continue
		}
		if !isODataNamespace(uri) {
			c.logger.Debug("skipping element of foreign namespace", "element", el.Name, "namespace", uri)
			continue
		}
		factory, ok := s.registry[uri+":"+el.LocalName()]
		if !ok {
			c.logger.Debug("skipping unrecognized element", "element", el.Name)
			continue
		}

		child, err := factory(el, parent, c)
		if err != nil {
			return err
		}
		if child == nil {
			continue
		}
		parent.AddChild(child)
		if err := s.build(ctx, child, c); err != nil {
			return err
		}
	}
	return nil
}
