package csdl

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// enumTypeName is the pseudo type name used to convert enum member literals
const enumTypeName = "EnumType"

// convertDefaultValue turns an XML default value literal into its CSDL JSON value
func convertDefaultValue(typeName, value string) (any, error) {
	if pt, ok := LookupPrimitiveType(typeName); ok {
		if err := pt.Validate(value); err != nil {
			return nil, err
		}
	}

	switch typeName {
	case "Edm.Boolean":
		return value == "true", nil
	case "Edm.Binary", "Edm.String":
		return value, nil
	case "Edm.Int16", "Edm.Int32", "Edm.Byte", "Edm.SByte":
		return strconv.Atoi(value)
	case "Edm.Int64":
		return strconv.ParseInt(value, 10, 64)
	case "Edm.Single", "Edm.Double", "Edm.Decimal":
		switch value {
		case "INF", "-INF", "NaN":
			return value, nil
		}
		return strconv.ParseFloat(value, 64)
	case enumTypeName:
		return enumMemberNames(value), nil
	}
	return value, nil
}

// enumMemberNames strips the type qualifier of each member: "ns.Color/Red ns.Color/Blue" -> "Red,Blue"
func enumMemberNames(value string) string {
	members := strings.Fields(value)
	for i, member := range members {
		if idx := strings.Index(member, "/"); idx >= 0 {
			members[i] = member[idx+1:]
		}
	}
	return strings.Join(members, ",")
}

// DefaultValueResolver converts the $DefaultValue member of a property or term in place
type DefaultValueResolver struct {
	ctx *Context
}

// NewDefaultValueResolver creates a resolver bound to a conversion context
func NewDefaultValueResolver(c *Context) *DefaultValueResolver {
	return &DefaultValueResolver{ctx: c}
}

// Resolve converts raw according to the $Type of target. Primitive types convert
// immediately. Other types are resolved in the pre finalize phase once the whole
// document is known.
func (r *DefaultValueResolver) Resolve(el *Element, target *Object, raw string) error {
	typeName, ok := target.GetString("$Type")
	if !ok {
		typeName = "Edm.String"
	}

	if IsPrimitiveTypeName(typeName) {
		value, err := convertDefaultValue(typeName, raw)
		if err != nil {
			return newStructuralError(el, "DefaultValue", "invalid default value: %v", err)
		}
		target.Set("$DefaultValue", value)
		return nil
	}

	r.ctx.Lifecycle().On(PhasePreFinalize, func(ctx context.Context) error {
		def, err := r.ctx.ResolveType(ctx, typeName)
		if err != nil {
			return err
		}
		if def == nil {
			// The defining document is missing and has been recorded as such
			return nil
		}

		var value any
		switch def.Kind {
		case KindTypeDefinition:
			primitive, err := def.PrimitiveName()
			if err != nil {
				return err
			}
			value, err = convertDefaultValue(primitive, raw)
			if err != nil {
				return fmt.Errorf("default value of '%s': %w", typeName, err)
			}
		case KindEnumType:
			value = enumMemberNames(raw)
		default:
			return fmt.Errorf("%s is not supported to create a term default value", typeName)
		}

		target.Set("$DefaultValue", value)
		return nil
	})
	return nil
}
