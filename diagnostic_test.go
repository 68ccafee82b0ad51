package csdl

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticConverterStructural(t *testing.T) {
	source := edmxOpen + "\n<edmx:DataServices>\n" +
		`<Schema xmlns="http://docs.oasis-open.org/odata/ns/edm" Namespace="Demo">` + "\n" +
		`<ComplexType Name="C"><Property Name="P"/></ComplexType>` + "\n" +
		"</Schema>\n</edmx:DataServices>\n" + edmxClose

	_, err := Convert(context.Background(), []byte(source), DefaultOptions())
	require.Error(t, err)

	diagnostics := NewDiagnosticConverter("demo.xml", source).Convert(err)
	require.Len(t, diagnostics, 1)
	diag := diagnostics[0]
	assert.Equal(t, SeverityError, diag.Severity)
	assert.Equal(t, CodeStructural, diag.Code)
	assert.Equal(t, "Property", diag.Tag)
	assert.Equal(t, "Type", diag.Attribute)
	assert.Equal(t, "demo.xml", diag.Position.File)
	assert.Contains(t, diag.Hints, `Add required attribute: Type="..."`)
}

func TestDiagnosticConverterMissingReferences(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &MissingReferencesError{References: []MissingReference{
		{Namespace: "A", URI: "a.xml"},
		{Namespace: "B"},
	}})

	diagnostics := NewDiagnosticConverter("demo.xml", "").Convert(err)
	require.Len(t, diagnostics, 2)
	for _, diag := range diagnostics {
		assert.Equal(t, SeverityWarning, diag.Severity)
		assert.Equal(t, CodeMissingReference, diag.Code)
	}
	assert.Contains(t, diagnostics[0].Message, "'A'")
	assert.Contains(t, diagnostics[0].Hints, "The document is referenced with Uri 'a.xml'")
	assert.Len(t, diagnostics[1].Hints, 1)
}

func TestDiagnosticConverterCodes(t *testing.T) {
	dc := NewDiagnosticConverter("demo.xml", "")

	tests := []struct {
		err  error
		code string
	}{
		{fmt.Errorf("%w: Demo.A", ErrCyclicType), CodeCyclicType},
		{fmt.Errorf("load: %w", ErrNoMetadataFactory), CodeMetadataFactory},
		{fmt.Errorf("something else"), CodeInternal},
	}
	for _, tt := range tests {
		diagnostics := dc.Convert(tt.err)
		require.Len(t, diagnostics, 1)
		assert.Equal(t, tt.code, diagnostics[0].Code, tt.err.Error())
	}
	assert.Nil(t, dc.Convert(nil))
}

func TestErrorFormatter(t *testing.T) {
	source := "line one\n  <Property Name=\"P\"/>\nline three"
	diag := Diagnostic{
		Severity: SeverityError,
		Code:     CodeStructural,
		Message:  "missing required attribute 'Type'",
		Position: Position{File: "demo.xml", Line: 2, Column: 3},
		Tag:      "Property",
		Hints:    []string{`Add required attribute: Type="..."`},
		SpecRef:  "OData CSDL XML 4.01",
	}

	out := (&ErrorFormatter{ContextLines: 1}).Format(diag, source)
	assert.Equal(t, strings.Join([]string{
		"error[E100]: missing required attribute 'Type'",
		" --> demo.xml:2:3",
		"   1 | line one",
		"   2 |   <Property Name=\"P\"/>",
		"     |   ^" + strings.Repeat("~", len("Property")),
		"     |",
		"     = help: Add required attribute: Type=\"...\"",
		"     = note: see OData CSDL XML 4.01",
		"",
	}, "\n"), out)

	colored := (&ErrorFormatter{Color: true}).Format(diag, "")
	assert.True(t, strings.HasPrefix(colored, "\033[31;1merror"), "%q", colored)
	assert.Contains(t, colored, "[E100]: missing required attribute 'Type'")
}
