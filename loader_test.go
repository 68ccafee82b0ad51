package csdl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const extDocument = edmxOpen + `<edmx:DataServices>` +
	`<Schema xmlns="http://docs.oasis-open.org/odata/ns/edm" Namespace="Ext">` +
	`<Term Name="Flag" Type="Edm.Boolean" DefaultValue="true"/>` +
	`</Schema></edmx:DataServices>` + edmxClose

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMetadataLoaderLocalFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "refs/ext.xml", "by reference")
	writeFile(t, dir, "Ext.xml", "by namespace")
	writeFile(t, dir, "custom/location.xml", "by location")

	ctx := context.Background()

	md, err := NewMetadataLoader(dir).Load(ctx, "Ext", "refs/ext.xml")
	require.NoError(t, err)
	assert.Equal(t, "by reference", string(md.Text))

	md, err = NewMetadataLoader(dir).Load(ctx, "Ext", "")
	require.NoError(t, err)
	assert.Equal(t, "by namespace", string(md.Text))

	md, err = NewMetadataLoader(dir).Load(ctx, "Ext", "refs/missing.xml")
	require.NoError(t, err)
	assert.Equal(t, "by namespace", string(md.Text), "falls back to the namespace file")

	loader := NewMetadataLoader(dir)
	loader.Locations["ext"] = "custom/location.xml"
	md, err = loader.Load(ctx, "Ext", "refs/ext.xml")
	require.NoError(t, err)
	assert.Equal(t, "by location", string(md.Text), "locations match without regard to case")

	md, err = NewMetadataLoader(dir).Load(ctx, "Unknown", "")
	require.NoError(t, err)
	assert.Nil(t, md)
}

func TestMetadataLoaderRemote(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch r.URL.Path {
		case "/ext.xml":
			_, _ = w.Write([]byte(extDocument))
		case "/broken.xml":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	ctx := context.Background()

	md, err := NewMetadataLoader("").Load(ctx, "Ext", server.URL+"/ext.xml")
	require.NoError(t, err)
	assert.Nil(t, md, "remote loading is disabled by default")
	assert.Zero(t, requests.Load())

	loader := NewMetadataLoader("").SetHTTPClient(server.Client())
	loader.AllowRemote = true

	md, err = loader.Load(ctx, "Ext", server.URL+"/ext.xml")
	require.NoError(t, err)
	assert.Equal(t, extDocument, string(md.Text))

	_, err = loader.Load(ctx, "Ext", server.URL+"/ext.xml")
	require.NoError(t, err)
	assert.Equal(t, int32(1), requests.Load(), "documents are cached")

	md, err = loader.Load(ctx, "Missing", server.URL+"/missing.xml")
	require.NoError(t, err)
	assert.Nil(t, md)

	_, err = loader.Load(ctx, "Broken", server.URL+"/broken.xml")
	assert.ErrorContains(t, err, "HTTP 500")
	_, err = loader.Load(ctx, "Broken", server.URL+"/broken.xml")
	assert.Error(t, err)
	assert.Equal(t, int32(4), requests.Load(), "failures are not cached")
}

func TestConvertWithMetadataLoader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Ext.xml", extDocument)

	opts := DefaultOptions()
	opts.MetadataFactory = NewMetadataLoader(dir).Factory()
	res, err := Convert(context.Background(), []byte(edmxDocument(
		`<edmx:Reference Uri="Ext.xml"><edmx:Include Namespace="Ext"/></edmx:Reference>`,
		`<ComplexType Name="C"><Annotation Term="Ext.Flag"/></ComplexType>`)), opts)

	require.NoError(t, err)
	assert.Equal(t, true, member(t, res.Document, "Demo", "C", "@Ext.Flag"))
}
