package csdl

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed vocabularies/*.json
var vocabularyFS embed.FS

// vocabularyFiles maps a lowercased vocabulary namespace to its bundled document
var vocabularyFiles = map[string]string{
	"org.odata.core.v1":          "vocabularies/Org.OData.Core.V1.json",
	"org.odata.aggregation.v1":   "vocabularies/Org.OData.Aggregation.V1.json",
	"org.odata.authorization.v1": "vocabularies/Org.OData.Authorization.V1.json",
	"org.odata.capabilities.v1":  "vocabularies/Org.OData.Capabilities.V1.json",
	"org.odata.measures.v1":      "vocabularies/Org.OData.Measures.V1.json",
	"org.odata.temporal.v1":      "vocabularies/Org.OData.Temporal.V1.json",
	"org.odata.validation.v1":    "vocabularies/Org.OData.Validation.V1.json",
}

// IsVocabulary reports whether a document for namespace is bundled. Matching ignores case.
func IsVocabulary(namespace string) bool {
	_, ok := vocabularyFiles[strings.ToLower(namespace)]
	return ok
}

// Vocabularies returns the bundled vocabulary namespaces, lowercased and sorted
func Vocabularies() []string {
	out := make([]string, 0, len(vocabularyFiles))
	for ns := range vocabularyFiles {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// LoadVocabulary decodes the bundled CSDL JSON document of a vocabulary.
// Every call returns a fresh document.
func LoadVocabulary(namespace string) (*Object, bool, error) {
	file, ok := vocabularyFiles[strings.ToLower(namespace)]
	if !ok {
		return nil, false, nil
	}
	data, err := vocabularyFS.ReadFile(file)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read vocabulary %s: %w", namespace, err)
	}
	doc := NewObject()
	if err := doc.UnmarshalJSON(data); err != nil {
		return nil, true, fmt.Errorf("failed to decode vocabulary %s: %w", namespace, err)
	}
	return doc, true, nil
}
