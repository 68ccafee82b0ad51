package csdl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertDefaultValue(t *testing.T) {
	tests := []struct {
		typeName string
		value    string
		expected any
	}{
		{"Edm.Boolean", "true", true},
		{"Edm.Boolean", "false", false},
		{"Edm.Int32", "42", 42},
		{"Edm.Byte", "7", 7},
		{"Edm.Int64", "9007199254740993", int64(9007199254740993)},
		{"Edm.Double", "1.5", 1.5},
		{"Edm.Single", "-INF", "-INF"},
		{"Edm.Double", "NaN", "NaN"},
		{"Edm.Decimal", "2.50", 2.5},
		{"Edm.String", "text", "text"},
		{"Edm.Binary", "T0RhdGE", "T0RhdGE"},
		{"Edm.Date", "2000-01-01", "2000-01-01"},
		{"Edm.Guid", "21EC2020-3AEA-1069-A2DD-08002B30309D", "21EC2020-3AEA-1069-A2DD-08002B30309D"},
		{enumTypeName, "Demo.Color/Red Demo.Color/Blue", "Red,Blue"},
	}

	for _, tt := range tests {
		t.Run(tt.typeName+"/"+tt.value, func(t *testing.T) {
			got, err := convertDefaultValue(tt.typeName, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestConvertDefaultValueRejectsInvalidLiterals(t *testing.T) {
	for typeName, value := range map[string]string{
		"Edm.Int32":   "forty",
		"Edm.Boolean": "yes",
		"Edm.Date":    "01/01/2000",
	} {
		_, err := convertDefaultValue(typeName, value)
		assert.Error(t, err, "%s %q", typeName, value)
	}
}

func TestEnumMemberNames(t *testing.T) {
	assert.Equal(t, "Red", enumMemberNames("Demo.Color/Red"))
	assert.Equal(t, "Red,Green", enumMemberNames("  Demo.Color/Red\tDemo.Color/Green "))
	assert.Equal(t, "Plain", enumMemberNames("Plain"))
}

func TestDefaultValueResolverDefersNonPrimitiveTypes(t *testing.T) {
	doc := NewObject().Set("Demo", NewObject().
		Set("Level", NewObject().Set("$Kind", "EnumType").Set("Low", int64(0)).Set("High", int64(1))).
		Set("Percent", NewObject().Set("$Kind", "TypeDefinition").Set("$UnderlyingType", "Edm.Byte")))

	c := newContext(NewStrategy(), DefaultOptions())
	c.adoptResult(doc)
	resolver := NewDefaultValueResolver(c)

	level := NewObject().Set("$Type", "Demo.Level").Set("$DefaultValue", "Demo.Level/High")
	percent := NewObject().Set("$Type", "Demo.Percent").Set("$DefaultValue", "50")
	require.NoError(t, resolver.Resolve(nil, level, "Demo.Level/High"))
	require.NoError(t, resolver.Resolve(nil, percent, "50"))
	assert.Equal(t, 2, c.Lifecycle().Pending(PhasePreFinalize))

	require.NoError(t, c.Lifecycle().Emit(context.Background(), PhaseFinalize))
	assert.Equal(t, "High", member(t, level, "$DefaultValue"))
	assert.Equal(t, 50, member(t, percent, "$DefaultValue"))
}

func TestDefaultValueResolverRejectsStructuredTypes(t *testing.T) {
	doc := NewObject().Set("Demo", NewObject().
		Set("Info", NewObject().Set("$Kind", "ComplexType")))

	c := newContext(NewStrategy(), DefaultOptions())
	c.adoptResult(doc)

	target := NewObject().Set("$Type", "Demo.Info")
	require.NoError(t, NewDefaultValueResolver(c).Resolve(nil, target, "x"))
	err := c.Lifecycle().Emit(context.Background(), PhaseFinalize)
	assert.ErrorContains(t, err, "is not supported to create a term default value")
}

func TestDefaultValueResolverPrimitive(t *testing.T) {
	c := newContext(NewStrategy(), DefaultOptions())
	target := NewObject().Set("$Type", "Edm.Int16")

	require.NoError(t, NewDefaultValueResolver(c).Resolve(nil, target, "12"))
	assert.Equal(t, 12, member(t, target, "$DefaultValue"))
	assert.Zero(t, c.Lifecycle().Pending(PhasePreFinalize))

	err := NewDefaultValueResolver(c).Resolve(&Element{Name: "Property"}, target, "x")
	var structural *StructuralError
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, "DefaultValue", structural.Attribute)
}
