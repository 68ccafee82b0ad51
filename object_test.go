package csdl

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestObjectKeepsInsertionOrder(t *testing.T) {
	obj := NewObject().Set("b", 1).Set("a", 2).Set("c", 3)
	obj.Set("b", 4)

	assert.Equal(t, []string{"b", "a", "c"}, obj.Keys())
	assert.Equal(t, 3, obj.Len())

	v, ok := obj.Get("b")
	require.True(t, ok)
	assert.Equal(t, 4, v)

	obj.Delete("a")
	obj.Delete("missing")
	assert.Equal(t, []string{"b", "c"}, obj.Keys())
	assert.False(t, obj.Has("a"))
}

func TestObjectTypedGetters(t *testing.T) {
	inner := NewObject().Set("x", true)
	obj := NewObject().Set("s", "text").Set("o", inner).Set("n", 1)

	s, ok := obj.GetString("s")
	assert.True(t, ok)
	assert.Equal(t, "text", s)

	_, ok = obj.GetString("n")
	assert.False(t, ok)

	o, ok := obj.GetObject("o")
	assert.True(t, ok)
	assert.Same(t, inner, o)

	_, ok = obj.GetObject("s")
	assert.False(t, ok)
}

func TestNilObject(t *testing.T) {
	var obj *Object
	assert.False(t, obj.Has("a"))
	assert.Nil(t, obj.Keys())
	assert.Zero(t, obj.Len())
	_, ok := obj.Get("a")
	assert.False(t, ok)

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestObjectMerge(t *testing.T) {
	obj := NewObject().Set("a", 1).Set("b", 2)
	obj.Merge(NewObject().Set("b", 3).Set("c", 4)).Merge(nil)

	assert.Equal(t, []string{"a", "b", "c"}, obj.Keys())
	assert.Equal(t, 3, member(t, obj, "b"))
}

func TestObjectJSON(t *testing.T) {
	input := `{"z":1,"a":{"y":[1,"two",{"k":null}],"x":true},"m":1.5}`

	obj := NewObject()
	require.NoError(t, json.Unmarshal([]byte(input), obj))
	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())
	assert.Equal(t, json.Number("1"), member(t, obj, "z"))
	assert.Equal(t, []string{"y", "x"}, member(t, obj, "a").(*Object).Keys())

	out, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, input, string(out))

	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), NewObject()))
}

func TestObjectYAML(t *testing.T) {
	obj := NewObject().
		Set("$Version", "4.0").
		Set("Demo", NewObject().Set("$Kind", "EntityType").Set("$Key", []any{"ID"}))

	out, err := yaml.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, "$Version: \"4.0\"\nDemo:\n    $Kind: EntityType\n    $Key:\n        - ID\n", string(out))
}
