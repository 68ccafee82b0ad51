package csdl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// errNotFound marks a location that does not hold a document
var errNotFound = errors.New("document not found")

// MetadataLoader locates the documents of referenced namespaces on disk or over HTTP
type MetadataLoader struct {
	// Base directory for resolving relative locations
	BaseDir string

	// Whether reference URIs may be fetched over http(s)
	AllowRemote bool

	// Explicit document location per namespace
	Locations map[string]string

	httpClient *http.Client
	cache      *DocumentCache
}

// NewMetadataLoader creates a loader resolving relative locations against baseDir.
// Remote loading is disabled by default.
func NewMetadataLoader(baseDir string) *MetadataLoader {
	return &MetadataLoader{
		BaseDir:    baseDir,
		Locations:  make(map[string]string),
		httpClient: &http.Client{},
		cache:      NewDocumentCache(),
	}
}

// SetHTTPClient replaces the client used for remote documents
func (ml *MetadataLoader) SetHTTPClient(client *http.Client) *MetadataLoader {
	ml.httpClient = client
	return ml
}

// SetCache shares a document cache between loaders
func (ml *MetadataLoader) SetCache(cache *DocumentCache) *MetadataLoader {
	ml.cache = cache
	return ml
}

// Factory returns the loader as a MetadataFactory
func (ml *MetadataLoader) Factory() MetadataFactory {
	return ml.Load
}

// Load finds the document defining namespace. It tries the configured location of the
// namespace, then the reference URI, then "<BaseDir>/<namespace>.xml". It returns
// (nil, nil) when none of them exists.
func (ml *MetadataLoader) Load(ctx context.Context, namespace, referenceURI string) (*Metadata, error) {
	for _, location := range ml.candidates(namespace, referenceURI) {
		data, err := ml.read(ctx, location)
		if errors.Is(err, errNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &Metadata{Text: data}, nil
	}
	return nil, nil
}

// candidates lists the locations to try, in order
func (ml *MetadataLoader) candidates(namespace, referenceURI string) []string {
	var out []string
	if location := ml.location(namespace); location != "" {
		out = append(out, ml.resolveLocation(location))
	}
	if referenceURI != "" {
		if isRemote(referenceURI) {
			if ml.AllowRemote {
				out = append(out, referenceURI)
			}
		} else {
			out = append(out, ml.resolveLocation(referenceURI))
		}
	}
	if ml.BaseDir != "" {
		out = append(out, filepath.Join(ml.BaseDir, namespace+".xml"))
	}
	return out
}

// location returns the configured location of namespace. Keys match without regard
// to case since configuration files may lowercase them.
func (ml *MetadataLoader) location(namespace string) string {
	if location, ok := ml.Locations[namespace]; ok {
		return location
	}
	for ns, location := range ml.Locations {
		if strings.EqualFold(ns, namespace) {
			return location
		}
	}
	return ""
}

// resolveLocation resolves a location to an absolute path or URL
func (ml *MetadataLoader) resolveLocation(location string) string {
	if isRemote(location) || filepath.IsAbs(location) {
		return location
	}
	location = strings.TrimPrefix(location, "file://")
	if ml.BaseDir != "" {
		location = filepath.Join(ml.BaseDir, location)
	}
	if abs, err := filepath.Abs(location); err == nil {
		return abs
	}
	return location
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// read loads a location through the document cache
func (ml *MetadataLoader) read(ctx context.Context, location string) ([]byte, error) {
	cache := ml.cache
	if cache == nil {
		cache = NewDocumentCache()
		ml.cache = cache
	}
	data, err := cache.Get(location, func() ([]byte, error) {
		if isRemote(location) {
			return ml.fetch(ctx, location)
		}
		data, err := os.ReadFile(location)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", location, err)
		}
		return data, nil
	})
	if err != nil && !errors.Is(err, errNotFound) {
		// Transient failures are retried on the next request
		cache.Remove(location)
	}
	return data, err
}

// fetch downloads a remote document
func (ml *MetadataLoader) fetch(ctx context.Context, location string) ([]byte, error) {
	if !ml.AllowRemote {
		return nil, fmt.Errorf("remote metadata loading is disabled: %s", location)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
	}
	client := ml.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, location)
	}
	return io.ReadAll(resp.Body)
}
