package csdl

import (
	"sync"
)

const (
	edmNamespace  = "http://docs.oasis-open.org/odata/ns/edm"
	edmxNamespace = "http://docs.oasis-open.org/odata/ns/edmx"
)

// Factory creates the node interpreting el. A nil node without error means the element
// and its subtree are ignored.
type Factory func(el *Element, parent Node, c *Context) (Node, error)

// ignore is the factory registered for elements a strategy skips
func ignore(*Element, Node, *Context) (Node, error) { return nil, nil }

var (
	registryOnce sync.Once
	registry     map[string]Factory
)

// defaultRegistry returns a copy of the built-in factories keyed by "namespaceURI:LocalName"
func defaultRegistry() map[string]Factory {
	registryOnce.Do(func() {
		registry = map[string]Factory{
			edmxNamespace + ":Edmx":               newEdmxNode,
			edmxNamespace + ":Reference":          newReferenceNode,
			edmxNamespace + ":Include":            newIncludeNode,
			edmxNamespace + ":IncludeAnnotations": newIncludeAnnotationsNode,
			edmxNamespace + ":DataServices":       newDataServicesNode,
		}

		edm := map[string]Factory{
			"Schema":                    newSchemaNode,
			"EntityType":                newEntityTypeNode,
			"ComplexType":               newComplexTypeNode,
			"Key":                       newKeyNode,
			"PropertyRef":               newPropertyRefNode,
			"Property":                  newPropertyNode,
			"NavigationProperty":        newNavigationPropertyNode,
			"OnDelete":                  newOnDeleteNode,
			"ReferentialConstraint":     newReferentialConstraintNode,
			"EnumType":                  newEnumTypeNode,
			"Member":                    newMemberNode,
			"TypeDefinition":            newTypeDefinitionNode,
			"Action":                    newActionNode,
			"Function":                  newFunctionNode,
			"Parameter":                 newParameterNode,
			"ReturnType":                newReturnTypeNode,
			"Term":                      newTermNode,
			"EntityContainer":           newEntityContainerNode,
			"EntitySet":                 newEntitySetNode,
			"Singleton":                 newSingletonNode,
			"NavigationPropertyBinding": newNavigationPropertyBindingNode,
			"ActionImport":              newActionImportNode,
			"FunctionImport":            newFunctionImportNode,
			"Annotations":               newAnnotationsNode,
			"Annotation":                newAnnotationNode,

			"String":                  constantFactory(NodeString),
			"Bool":                    constantFactory(NodeBool),
			"Int":                     constantFactory(NodeInt),
			"Float":                   constantFactory(NodeFloat),
			"Decimal":                 constantFactory(NodeDecimal),
			"Date":                    constantFactory(NodeDate),
			"DateTimeOffset":          constantFactory(NodeDateTimeOffset),
			"Duration":                constantFactory(NodeDuration),
			"Guid":                    constantFactory(NodeGuid),
			"TimeOfDay":               constantFactory(NodeTimeOfDay),
			"Binary":                  constantFactory(NodeBinary),
			"EnumMember":              constantFactory(NodeEnumMember),
			"Path":                    constantFactory(NodePath),
			"AnnotationPath":          constantFactory(NodeAnnotationPath),
			"PropertyPath":            constantFactory(NodePropertyPath),
			"NavigationPropertyPath":  constantFactory(NodeNavigationPropertyPath),
			"ModelElementPath":        constantFactory(NodeModelElementPath),
			"Null":                    constantFactory(NodeNull),
			"LabeledElementReference": constantFactory(NodeLabeledElementReference),

			"And": operatorFactory(NodeLogical),
			"Or":  operatorFactory(NodeLogical),
			"Eq":  operatorFactory(NodeLogical),
			"Ne":  operatorFactory(NodeLogical),
			"Gt":  operatorFactory(NodeLogical),
			"Ge":  operatorFactory(NodeLogical),
			"Lt":  operatorFactory(NodeLogical),
			"Le":  operatorFactory(NodeLogical),

			"Not":            operatorFactory(NodeNot),
			"If":             operatorFactory(NodeIf),
			"Apply":          operatorFactory(NodeApply),
			"Cast":           typedFactory(NodeCast),
			"IsOf":           typedFactory(NodeIsOf),
			"LabeledElement": newLabeledElementNode,
			"Collection":     newCollectionNode,
			"Record":         newRecordNode,
			"PropertyValue":  newPropertyValueNode,
			"UrlRef":         newURLRefNode,
		}
		for name, factory := range edm {
			registry[edmNamespace+":"+name] = factory
		}
	})

	out := make(map[string]Factory, len(registry))
	for name, factory := range registry {
		out[name] = factory
	}
	return out
}

// isODataNamespace reports whether uri is one of the namespaces the engine interprets
func isODataNamespace(uri string) bool {
	return uri == edmNamespace || uri == edmxNamespace
}
