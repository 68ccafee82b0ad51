package csdl

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Target selects the representation of path and enum member expressions
type Target string

const (
	// TargetPlain renders paths and enum members as bare strings
	TargetPlain Target = "plain"
	// TargetLibrary wraps them in objects carrying their expression kind
	TargetLibrary Target = "library"
)

// ParseTarget accepts "plain", "library" and its alias "CS01", ignoring case
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "plain":
		return TargetPlain, nil
	case "library", "cs01":
		return TargetLibrary, nil
	}
	return "", fmt.Errorf("unknown output target '%s'", s)
}

// Options configures a conversion
type Options struct {
	// OmitDefaultStringType removes "$Type": "Edm.String" members that carry no $Cast
	OmitDefaultStringType bool
	Target                Target
	// Ignore lists elements skipped with their subtree. Names without ':' are edm local names.
	Ignore          []string
	ASTFactory      ASTFactory
	MetadataFactory MetadataFactory
	Normalizer      Normalizer
	Logger          Logger
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{
		OmitDefaultStringType: true,
		Target:                TargetPlain,
	}
}

// Stage is one step of a pipeline. It receives the output of the previous stage.
type Stage interface {
	Execute(ctx context.Context, input any, p *Pipeline) (any, []MissingReference, error)
}

// StageFunc adapts a function to the Stage interface
type StageFunc func(ctx context.Context, input any, p *Pipeline) (any, []MissingReference, error)

func (f StageFunc) Execute(ctx context.Context, input any, p *Pipeline) (any, []MissingReference, error) {
	return f(ctx, input, p)
}

// Result is the outcome of a pipeline run. It is returned even when the run fails.
type Result struct {
	Document          any                `json:"document"`
	MissingReferences []MissingReference `json:"missingReferences"`
}

// Pipeline chains stages, feeding each the output of the one before
type Pipeline struct {
	opts   Options
	stages []Stage
}

// NewPipeline creates a pipeline running stages in order
func NewPipeline(opts Options, stages ...Stage) *Pipeline {
	return &Pipeline{opts: opts, stages: stages}
}

// AddConversion appends stages
func (p *Pipeline) AddConversion(stages ...Stage) *Pipeline {
	p.stages = append(p.stages, stages...)
	return p
}

func (p *Pipeline) Options() Options { return p.opts }

// Execute runs every stage. The first failing stage stops the run and its partial output
// becomes the result document.
func (p *Pipeline) Execute(ctx context.Context, input any) (*Result, error) {
	res := &Result{MissingReferences: []MissingReference{}}
	current := input
	for _, stage := range p.stages {
		out, missing, err := stage.Execute(ctx, current, p)
		res.Document = out
		if missing != nil {
			res.MissingReferences = missing
		}
		if err != nil {
			var missingErr *MissingReferencesError
			if errors.As(err, &missingErr) && p.opts.OmitDefaultStringType {
				res.Document = omitDefaultStringType(res.Document)
			}
			return res, err
		}
		current = out
	}

	if p.opts.OmitDefaultStringType {
		res.Document = omitDefaultStringType(res.Document)
	}
	return res, nil
}

// omitDefaultStringType copies v without the "$Type": "Edm.String" members of objects
// that have no $Cast
func omitDefaultStringType(v any) any {
	switch t := v.(type) {
	case *Object:
		if t == nil {
			return t
		}
		out := NewObject()
		strip := !t.Has("$Cast")
		for _, key := range t.Keys() {
			value, _ := t.Get(key)
			if strip && key == "$Type" && value == "Edm.String" {
				continue
			}
			out.Set(key, omitDefaultStringType(value))
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = omitDefaultStringType(item)
		}
		return out
	}
	return v
}

// projection is one side of a converter description such as "4.0:xml"
type projection struct {
	version string
	format  string
}

func parseProjection(s string) (projection, bool) {
	version, format, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return projection{}, false
	}
	return projection{version: strings.TrimSpace(version), format: strings.ToLower(strings.TrimSpace(format))}, true
}

func isV4(version string) bool { return version == "4.0" || version == "4.01" }

// NewConverter creates the pipeline for a projection such as "4.0:xml -> 4.0:json".
// Only EDMX XML to CSDL JSON of OData v4 is available.
func NewConverter(description string, opts Options) (*Pipeline, error) {
	from, to, ok := strings.Cut(description, "->")
	if !ok {
		return nil, fmt.Errorf("%w for '%s'", ErrNoConverter, description)
	}
	src, okSrc := parseProjection(from)
	dst, okDst := parseProjection(to)
	if !okSrc || !okDst || !isV4(src.version) || !isV4(dst.version) || src.format != "xml" || dst.format != "json" {
		return nil, fmt.Errorf("%w for '%s'", ErrNoConverter, description)
	}

	strategy := NewStrategy()
	if opts.ASTFactory != nil {
		strategy.SetASTFactory(opts.ASTFactory)
	}
	if opts.MetadataFactory != nil {
		strategy.SetMetadataFactory(opts.MetadataFactory)
	}
	strategy.SetNormalizer(opts.Normalizer)
	strategy.SetLogger(opts.Logger)
	for _, name := range opts.Ignore {
		if strings.Contains(name, ":") {
			strategy.Use(name, nil)
			continue
		}
		// a bare name matches the element in either OData namespace
		strategy.Use(edmxNamespace+":"+name, nil)
		strategy.Use(edmNamespace+":"+name, nil)
	}
	if opts.Target == "" {
		opts.Target = TargetPlain
	}
	return NewPipeline(opts, strategy), nil
}

// Convert runs the EDMX XML to CSDL JSON conversion of data
func Convert(ctx context.Context, data []byte, opts Options) (*Result, error) {
	p, err := NewConverter("4.0:xml -> 4.0:json", opts)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, data)
}
