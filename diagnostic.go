package csdl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Diagnostic represents a rustc-style conversion diagnostic
type Diagnostic struct {
	Severity  Severity `json:"severity"`
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Position  Position `json:"position"`
	Tag       string   `json:"tag"`
	Attribute string   `json:"attribute,omitempty"`
	SpecRef   string   `json:"spec_ref,omitempty"`
	Hints     []string `json:"hints,omitempty"`
}

// Severity represents the severity level of a diagnostic
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Position contains source position information for a node
type Position struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Offset int64  `json:"offset"`
}

// Diagnostic codes
const (
	CodeStructural       = "E100"
	CodeMissingReference = "E200"
	CodeCyclicType       = "E300"
	CodeMetadataFactory  = "E400"
	CodeInternal         = "E900"
)

// DiagnosticConverter converts conversion errors to rustc-style diagnostics
type DiagnosticConverter struct {
	fileName string
	source   string
}

// NewDiagnosticConverter creates a new converter
func NewDiagnosticConverter(fileName, source string) *DiagnosticConverter {
	return &DiagnosticConverter{
		fileName: fileName,
		source:   source,
	}
}

// Convert converts a conversion error to diagnostics. A nil error yields none.
func (dc *DiagnosticConverter) Convert(err error) []Diagnostic {
	if err == nil {
		return nil
	}

	var structural *StructuralError
	var missing *MissingReferencesError

	switch {
	case errors.As(err, &structural):
		return []Diagnostic{dc.convertStructural(structural)}
	case errors.As(err, &missing):
		diagnostics := make([]Diagnostic, 0, len(missing.References))
		for _, ref := range missing.References {
			diagnostics = append(diagnostics, dc.convertMissing(ref))
		}
		return diagnostics
	case errors.Is(err, ErrCyclicType):
		return []Diagnostic{dc.simple(CodeCyclicType, err.Error(),
			"A type definition or term refers back to itself through its underlying type",
			"Break the chain by using a primitive Edm type")}
	case errors.Is(err, ErrNoMetadataFactory):
		return []Diagnostic{dc.simple(CodeMetadataFactory, err.Error(),
			"Configure a metadata factory or a metadata directory so referenced documents can be loaded")}
	default:
		return []Diagnostic{dc.simple(CodeInternal, err.Error())}
	}
}

// convertStructural converts a structural error
func (dc *DiagnosticConverter) convertStructural(e *StructuralError) Diagnostic {
	pos := e.Position
	pos.File = dc.fileName
	diag := Diagnostic{
		Severity:  SeverityError,
		Code:      CodeStructural,
		Message:   e.Message,
		Position:  pos,
		Tag:       dc.getTag(e.Element),
		Attribute: e.Attribute,
		SpecRef:   dc.getSpecRef(CodeStructural),
	}
	if e.Attribute != "" {
		diag.Hints = append(diag.Hints, fmt.Sprintf("Add required attribute: %s=\"...\"", e.Attribute))
	}
	return diag
}

// convertMissing converts one missing reference
func (dc *DiagnosticConverter) convertMissing(ref MissingReference) Diagnostic {
	diag := Diagnostic{
		Severity: SeverityWarning,
		Code:     CodeMissingReference,
		Message:  fmt.Sprintf("Referenced document for namespace '%s' could not be loaded", ref.Namespace),
		Position: Position{File: dc.fileName},
		SpecRef:  dc.getSpecRef(CodeMissingReference),
	}
	if ref.URI != "" {
		diag.Hints = append(diag.Hints, fmt.Sprintf("The document is referenced with Uri '%s'", ref.URI))
	}
	diag.Hints = append(diag.Hints, "Provide the document through the metadata directory or a namespace location")
	return diag
}

func (dc *DiagnosticConverter) simple(code, message string, hints ...string) Diagnostic {
	return Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Message:  message,
		Position: Position{File: dc.fileName},
		SpecRef:  dc.getSpecRef(code),
		Hints:    hints,
	}
}

// getTag strips the prefix of an element name
func (dc *DiagnosticConverter) getTag(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// specRefs names the section of OData CSDL XML each code relates to
var specRefs = map[string]string{
	CodeStructural:       "OData CSDL XML 4.01",
	CodeMissingReference: "OData CSDL XML 4.01 §3.3 (Reference)",
	CodeCyclicType:       "OData CSDL XML 4.01 §11 (Type Definition)",
}

func (dc *DiagnosticConverter) getSpecRef(code string) string {
	return specRefs[code]
}

// ErrorFormatter renders diagnostics the way rustc prints compiler errors
type ErrorFormatter struct {
	Color        bool
	ContextLines int
}

var severityColors = map[Severity][]color.Attribute{
	SeverityError:   {color.FgRed, color.Bold},
	SeverityWarning: {color.FgYellow, color.Bold},
	SeverityInfo:    {color.FgCyan, color.Bold},
}

// paint applies attrs when coloring is enabled, regardless of the terminal
func (ef *ErrorFormatter) paint(s string, attrs ...color.Attribute) string {
	if !ef.Color || len(attrs) == 0 {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

// Format renders diag with the source lines leading up to its position
func (ef *ErrorFormatter) Format(diag Diagnostic, source string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s[%s]: %s\n",
		ef.paint(string(diag.Severity), severityColors[diag.Severity]...), diag.Code, diag.Message)

	pos := diag.Position
	switch {
	case pos.Line > 0:
		fmt.Fprintf(&sb, " --> %s:%d:%d\n", pos.File, pos.Line, pos.Column)
	case pos.File != "":
		fmt.Fprintf(&sb, " --> %s\n", pos.File)
	}

	ef.writeSnippet(&sb, diag, source)

	if len(diag.Hints) > 0 {
		sb.WriteString("     |\n")
	}
	for _, hint := range diag.Hints {
		fmt.Fprintf(&sb, "     = help: %s\n", hint)
	}
	if diag.SpecRef != "" {
		fmt.Fprintf(&sb, "     = note: see %s\n", diag.SpecRef)
	}
	return sb.String()
}

// writeSnippet prints up to ContextLines lines before the reported line and marks the
// element name under it
func (ef *ErrorFormatter) writeSnippet(sb *strings.Builder, diag Diagnostic, source string) {
	pos := diag.Position
	if source == "" || pos.Line <= 0 {
		return
	}
	lines := strings.Split(source, "\n")
	if pos.Line > len(lines) {
		return
	}

	first := max(pos.Line-ef.ContextLines, 1)
	for n := first; n <= pos.Line; n++ {
		fmt.Fprintf(sb, "%4d | %s\n", n, lines[n-1])
	}

	sb.WriteString("     | ")
	if pos.Column > 0 {
		// the caret sits under '<' and the tildes under the tag name
		sb.WriteString(strings.Repeat(" ", pos.Column-1))
		sb.WriteString(ef.paint("^", color.FgRed, color.Bold))
		sb.WriteString(strings.Repeat("~", len(diag.Tag)))
	}
	sb.WriteString("\n")
}
