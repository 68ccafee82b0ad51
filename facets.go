package csdl

import (
	"strconv"
	"strings"
)

// facet selects which attributes applyFacets copies onto a target
type facet uint32

const (
	facetType facet = 1 << iota
	facetUnderlyingType
	facetNamespace
	facetAlias
	facetBaseType
	facetHasStream
	facetOpenType
	facetIsFlags
	facetMaxLength
	facetScale
	facetPrecision
	facetSRID
	facetUnicode
	facetPartner
	facetIsComposable
	facetContainsTarget
	facetIsBound
	facetDefaultValue
	facetEntitySet
	facetEntitySetPath
	facetNullable
)

const (
	valueFacets = facetMaxLength | facetPrecision | facetScale | facetSRID | facetUnicode
)

func (f facet) has(other facet) bool { return f&other != 0 }

// applyFacets copies the selected attributes of el onto target using the CSDL JSON
// presence rules. Members are written in a fixed order so output is stable.
func applyFacets(target *Object, el *Element, set facet) error {
	if el == nil || el.Attributes == nil {
		return nil
	}

	if set.has(facetType | facetUnderlyingType) {
		applyType(target, el)
	}

	if set.has(facetHasStream) {
		setTrueFlag(target, el, "HasStream")
	}
	if set.has(facetOpenType) {
		setTrueFlag(target, el, "OpenType")
	}
	if set.has(facetIsFlags) {
		setTrueFlag(target, el, "IsFlags")
	}
	if v, ok := el.Attr("Alias"); set.has(facetAlias) && ok && v != "" {
		target.Set("$Alias", v)
	}
	if v, ok := el.Attr("Namespace"); set.has(facetNamespace) && ok && v != "" {
		target.Set("$Namespace", v)
	}
	if v, ok := el.Attr("BaseType"); set.has(facetBaseType) && ok && v != "" {
		target.Set("$BaseType", v)
	}

	if v, ok := el.Attr("MaxLength"); set.has(facetMaxLength) && ok && !strings.EqualFold(v, "max") {
		n, err := strconv.Atoi(v)
		if err != nil {
			return newStructuralError(el, "MaxLength", "MaxLength must be an integer or 'max', got '%s'", v)
		}
		target.Set("$MaxLength", n)
	}

	if set.has(facetScale) && typeIs(target, "Edm.Decimal") {
		v, ok := el.Attr("Scale")
		switch {
		case !ok:
			target.Set("$Scale", 0)
		case v == "variable":
			target.Set("$Scale", "variable")
		case v != "0":
			n, err := strconv.Atoi(v)
			if err != nil {
				return newStructuralError(el, "Scale", "Scale must be an integer or 'variable', got '%s'", v)
			}
			target.Set("$Scale", n)
		}
	}

	if set.has(facetPrecision) {
		v, ok := el.Attr("Precision")
		switch {
		case !ok:
			if typeIsTemporal(target) {
				target.Set("$Precision", 0)
			}
		case v != "0":
			n, err := strconv.Atoi(v)
			if err != nil {
				return newStructuralError(el, "Precision", "Precision must be an integer, got '%s'", v)
			}
			target.Set("$Precision", n)
		}
	}

	if v, ok := el.Attr("SRID"); set.has(facetSRID) && ok {
		if strings.EqualFold(v, "variable") {
			target.Set("$SRID", "variable")
		} else {
			n, err := strconv.Atoi(v)
			if err != nil {
				return newStructuralError(el, "SRID", "SRID must be an integer or 'variable', got '%s'", v)
			}
			target.Set("$SRID", n)
		}
	}

	if v, ok := el.Attr("Unicode"); set.has(facetUnicode) && ok && v == "false" {
		target.Set("$Unicode", false)
	}

	if v, ok := el.Attr("Partner"); set.has(facetPartner) && ok {
		target.Set("$Partner", v)
	}
	if set.has(facetIsComposable) {
		setTrueFlag(target, el, "IsComposable")
	}
	if set.has(facetContainsTarget) {
		setTrueFlag(target, el, "ContainsTarget")
	}
	if set.has(facetIsBound) {
		setTrueFlag(target, el, "IsBound")
	}
	if v, ok := el.Attr("DefaultValue"); set.has(facetDefaultValue) && ok {
		target.Set("$DefaultValue", v)
	}
	if v, ok := el.Attr("EntitySet"); set.has(facetEntitySet) && ok {
		target.Set("$EntitySet", v)
	}
	if v, ok := el.Attr("EntitySetPath"); set.has(facetEntitySetPath) && ok {
		target.Set("$EntitySetPath", v)
	}

	if set.has(facetNullable) {
		v, ok := el.Attr("Nullable")
		kind, _ := target.GetString("$Kind")
		collection, _ := target.Get("$Collection")
		collectionNavigation := kind == "NavigationProperty" && collection == true
		if (!ok || v == "true") && !collectionNavigation {
			target.Set("$Nullable", true)
		}
	}

	return nil
}

// applyType writes $Type (or $UnderlyingType) and splits Collection(X)
func applyType(target *Object, el *Element) {
	key := "$Type"
	realType, ok := el.Attr("Type")
	if !ok {
		realType, ok = el.Attr("EntityType")
	}
	if underlying, found := el.Attr("UnderlyingType"); found {
		key = "$UnderlyingType"
		if !ok {
			realType, ok = underlying, true
		}
	}
	if !ok || realType == "" {
		return
	}
	if strings.HasPrefix(realType, "Collection(") && strings.HasSuffix(realType, ")") {
		realType = realType[len("Collection(") : len(realType)-1]
		target.Set("$Collection", true)
	}
	target.Set(key, realType)
}

func setTrueFlag(target *Object, el *Element, name string) {
	if v, ok := el.Attr(name); ok && v == "true" {
		target.Set("$"+name, true)
	}
}

func typeIs(target *Object, name string) bool {
	if t, _ := target.GetString("$Type"); t == name {
		return true
	}
	t, _ := target.GetString("$UnderlyingType")
	return t == name
}

func typeIsTemporal(target *Object) bool {
	if t, ok := target.GetString("$Type"); ok {
		return isTemporalType(t)
	}
	t, _ := target.GetString("$UnderlyingType")
	return isTemporalType(t)
}
