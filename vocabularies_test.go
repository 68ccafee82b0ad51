package csdl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vocabularyReferences = `
	<edmx:Reference Uri="https://oasis-tcs.github.io/odata-vocabularies/vocabularies/Org.OData.Core.V1.xml">
		<edmx:Include Namespace="Org.OData.Core.V1" Alias="Core"/>
	</edmx:Reference>
	<edmx:Reference Uri="https://oasis-tcs.github.io/odata-vocabularies/vocabularies/Org.OData.Capabilities.V1.xml">
		<edmx:Include Namespace="Org.OData.Capabilities.V1" Alias="Capabilities"/>
	</edmx:Reference>
	<edmx:Reference Uri="https://oasis-tcs.github.io/odata-vocabularies/vocabularies/Org.OData.Aggregation.V1.xml">
		<edmx:Include Namespace="Org.OData.Aggregation.V1" Alias="Aggregation"/>
	</edmx:Reference>
	<edmx:Reference Uri="https://oasis-tcs.github.io/odata-vocabularies/vocabularies/Org.OData.Authorization.V1.xml">
		<edmx:Include Namespace="Org.OData.Authorization.V1" Alias="Auth"/>
	</edmx:Reference>
	<edmx:Reference Uri="https://oasis-tcs.github.io/odata-vocabularies/vocabularies/Org.OData.Measures.V1.xml">
		<edmx:Include Namespace="Org.OData.Measures.V1" Alias="Measures"/>
	</edmx:Reference>
	<edmx:Reference Uri="https://oasis-tcs.github.io/odata-vocabularies/vocabularies/Org.OData.Temporal.V1.xml">
		<edmx:Include Namespace="Org.OData.Temporal.V1" Alias="Temporal"/>
	</edmx:Reference>
	<edmx:Reference Uri="https://oasis-tcs.github.io/odata-vocabularies/vocabularies/Org.OData.Validation.V1.xml">
		<edmx:Include Namespace="Org.OData.Validation.V1" Alias="Validation"/>
	</edmx:Reference>`

func TestVocabularyTermDefaults(t *testing.T) {
	tests := []struct {
		term     string
		expected string
	}{
		{"Core.Ordered", `true`},
		{"Core.AutoExpand", `true`},
		{"Core.ComputedDefaultValue", `true`},
		{"Core.OperationAvailable", `true`},
		{"Core.Links", `[]`},
		{"Capabilities.BatchSupported", `true`},
		{"Capabilities.ReadRestrictions", `{}`},
		{"Capabilities.SearchRestrictions", `{}`},
		{"Aggregation.Groupable", `true`},
		{"Aggregation.ApplySupported", `{}`},
		{"Auth.SecuritySchemes", `[]`},
		{"Measures.UNECEUnit", ``},
		{"Temporal.ApplicationTimeSupport", `{}`},
		{"Validation.SingleValue", `true`},
		{"Validation.AllowedValues", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			res, err := convertXML(t, edmxDocument(vocabularyReferences,
				`<EntityType Name="Thing"><Annotation Term="`+tt.term+`"/></EntityType>`), DefaultOptions())

			if tt.expected == "" {
				// string terms without a default value cannot be applied bare
				assert.ErrorContains(t, err, "must have a default value")
				return
			}
			require.NoError(t, err)
			assert.Empty(t, res.MissingReferences)
			assert.JSONEq(t, tt.expected, toJSON(t, member(t, res.Document, "Demo", "Thing", "@"+tt.term)))
		})
	}
}

func TestVocabularyTermsResolve(t *testing.T) {
	ctx := context.Background()
	namespaces := Vocabularies()
	require.Len(t, namespaces, 7)

	for _, namespace := range namespaces {
		doc, found, err := LoadVocabulary(namespace)
		require.NoError(t, err)
		require.True(t, found, namespace)

		schemas := NewSchemaIndex(doc).Schemas()
		require.Len(t, schemas, 1, namespace)
		schema, ok := doc.GetObject(schemas[0])
		require.True(t, ok)

		terms := 0
		for _, name := range schema.Keys() {
			entry, ok := schema.GetObject(name)
			if !ok {
				continue
			}
			if kind, _ := entry.GetString("$Kind"); kind != string(KindTerm) {
				continue
			}
			terms++

			fqn := schemas[0] + "." + name
			c := newContext(NewStrategy(), DefaultOptions())
			def, err := c.ResolveType(ctx, fqn)
			require.NoError(t, err, fqn)
			require.NotNil(t, def, fqn)
			assert.NotNil(t, def.Type(), "type of %s", fqn)
			assert.Empty(t, c.MissingReferences(), fqn)
		}
		assert.NotZero(t, terms, namespace)
	}
}

func TestVocabularyTermCounts(t *testing.T) {
	tests := map[string]int{
		"Org.OData.Core.V1":          43,
		"Org.OData.Capabilities.V1":  40,
		"Org.OData.Validation.V1":    15,
		"Org.OData.Aggregation.V1":   9,
		"Org.OData.Measures.V1":      5,
		"Org.OData.Authorization.V1": 2,
		"Org.OData.Temporal.V1":      1,
	}

	for namespace, expected := range tests {
		doc, found, err := LoadVocabulary(namespace)
		require.NoError(t, err)
		require.True(t, found)

		schema, ok := doc.GetObject(namespace)
		require.True(t, ok, namespace)
		count := 0
		for _, name := range schema.Keys() {
			if entry, ok := schema.GetObject(name); ok {
				if kind, _ := entry.GetString("$Kind"); kind == string(KindTerm) {
					count++
				}
			}
		}
		assert.Equal(t, expected, count, namespace)
	}
}
