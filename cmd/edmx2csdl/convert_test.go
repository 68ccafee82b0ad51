package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	csdl "github.com/agentflare-ai/go-csdl"
	"github.com/agentflare-ai/go-csdl/internal/config"
)

const (
	serviceDocument = `<edmx:Edmx xmlns:edmx="http://docs.oasis-open.org/odata/ns/edmx" Version="4.0">
  <edmx:Reference Uri="Ext.xml"><edmx:Include Namespace="Ext"/></edmx:Reference>
  <edmx:DataServices>
    <Schema xmlns="http://docs.oasis-open.org/odata/ns/edm" Namespace="Demo">
      <ComplexType Name="C"><Annotation Term="Ext.Flag"/></ComplexType>
    </Schema>
  </edmx:DataServices>
</edmx:Edmx>`

	extDocument = `<edmx:Edmx xmlns:edmx="http://docs.oasis-open.org/odata/ns/edmx" Version="4.0">
  <edmx:DataServices>
    <Schema xmlns="http://docs.oasis-open.org/odata/ns/edm" Namespace="Ext">
      <Term Name="Flag" Type="Edm.Boolean" DefaultValue="true"/>
    </Schema>
  </edmx:DataServices>
</edmx:Edmx>`

	brokenDocument = `<edmx:Edmx xmlns:edmx="http://docs.oasis-open.org/odata/ns/edmx" Version="4.0">
  <edmx:DataServices><Schema xmlns="http://docs.oasis-open.org/odata/ns/edm"/></edmx:DataServices>
</edmx:Edmx>`
)

func testConfig(output string) *config.Config {
	return &config.Config{
		Target:         "plain",
		OmitStringType: true,
		Format:         "json",
		Output:         output,
		Workers:        2,
	}
}

func TestConverterRun(t *testing.T) {
	dir := t.TempDir()
	service := filepath.Join(dir, "service.xml")
	broken := filepath.Join(dir, "broken.xml")
	require.NoError(t, os.WriteFile(service, []byte(serviceDocument), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Ext.xml"), []byte(extDocument), 0o644))
	require.NoError(t, os.WriteFile(broken, []byte(brokenDocument), 0o644))

	out := filepath.Join(dir, "out")
	c, err := newConverter(testConfig(out), csdl.NopLogger{})
	require.NoError(t, err)

	failed := c.run(context.Background(), []string{service, broken})
	assert.Equal(t, 1, failed)

	data, err := os.ReadFile(filepath.Join(out, "service.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"$Version":"4.0","$Reference":{"Ext.xml":{"$Include":[{"$Namespace":"Ext"}]}},"Demo":{"C":{"$Kind":"ComplexType","@Ext.Flag":true}}}`, string(data))

	_, err = os.Stat(filepath.Join(out, "broken.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestConverterWritesPartialOutput(t *testing.T) {
	dir := t.TempDir()
	service := filepath.Join(dir, "service.xml")
	require.NoError(t, os.WriteFile(service, []byte(serviceDocument), 0o644))

	c, err := newConverter(testConfig(filepath.Join(dir, "service.json")), csdl.NopLogger{})
	require.NoError(t, err)

	o := c.convert(context.Background(), service)
	var missing *csdl.MissingReferencesError
	require.ErrorAs(t, o.err, &missing)
	require.NotNil(t, o.output)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(o.output, &doc))
	assert.Contains(t, doc, "Demo")
}

func TestEncode(t *testing.T) {
	doc := csdl.NewObject().Set("$Version", "4.0").Set("Demo", csdl.NewObject().Set("$Kind", "EnumType"))

	out, err := encode(doc, "json")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"$Version\": \"4.0\",\n  \"Demo\": {\n    \"$Kind\": \"EnumType\"\n  }\n}\n", string(out))

	out, err = encode(doc, "yaml")
	require.NoError(t, err)
	assert.Equal(t, "$Version: \"4.0\"\nDemo:\n  $Kind: EnumType\n", string(out))
}
