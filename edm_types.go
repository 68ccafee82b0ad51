package csdl

import (
	"encoding/base64"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PrimitiveType represents a built-in Edm primitive type
type PrimitiveType struct {
	Name      string
	Validator func(value string) error
}

var primitiveTypes = map[string]*PrimitiveType{}

var (
	datePattern      = regexp.MustCompile(`^-?\d{4,}-\d{2}-\d{2}$`)
	timeOfDayPattern = regexp.MustCompile(`^\d{2}:\d{2}(:\d{2}(\.\d{1,12})?)?$`)
	durationPattern  = regexp.MustCompile(`^-?P(\d+D)?(T(\d+H)?(\d+M)?(\d+(\.\d+)?S)?)?$`)
	decimalPattern   = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
	guidPattern      = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

func init() {
	registerPrimitiveTypes()
}

func registerPrimitiveTypes() {
	primitiveTypes["Edm.Binary"] = &PrimitiveType{"Edm.Binary", validateBinary}
	primitiveTypes["Edm.Boolean"] = &PrimitiveType{"Edm.Boolean", validateBoolean}
	primitiveTypes["Edm.Byte"] = &PrimitiveType{"Edm.Byte", validateUnsigned(8)}
	primitiveTypes["Edm.SByte"] = &PrimitiveType{"Edm.SByte", validateSigned(8)}
	primitiveTypes["Edm.Int16"] = &PrimitiveType{"Edm.Int16", validateSigned(16)}
	primitiveTypes["Edm.Int32"] = &PrimitiveType{"Edm.Int32", validateSigned(32)}
	primitiveTypes["Edm.Int64"] = &PrimitiveType{"Edm.Int64", validateSigned(64)}
	primitiveTypes["Edm.Single"] = &PrimitiveType{"Edm.Single", validateFloat(32)}
	primitiveTypes["Edm.Double"] = &PrimitiveType{"Edm.Double", validateFloat(64)}
	primitiveTypes["Edm.Decimal"] = &PrimitiveType{"Edm.Decimal", validateDecimal}
	primitiveTypes["Edm.Date"] = &PrimitiveType{"Edm.Date", validateDate}
	primitiveTypes["Edm.DateTimeOffset"] = &PrimitiveType{"Edm.DateTimeOffset", validateDateTimeOffset}
	primitiveTypes["Edm.Duration"] = &PrimitiveType{"Edm.Duration", validateDuration}
	primitiveTypes["Edm.TimeOfDay"] = &PrimitiveType{"Edm.TimeOfDay", validateTimeOfDay}
	primitiveTypes["Edm.Guid"] = &PrimitiveType{"Edm.Guid", validateGuid}
	primitiveTypes["Edm.String"] = &PrimitiveType{"Edm.String", nil}
	primitiveTypes["Edm.Stream"] = &PrimitiveType{"Edm.Stream", nil}
}

// LookupPrimitiveType returns the primitive type registered under name
func LookupPrimitiveType(name string) (*PrimitiveType, bool) {
	pt, ok := primitiveTypes[name]
	return pt, ok
}

// IsPrimitiveTypeName reports whether name lives in the Edm namespace
func IsPrimitiveTypeName(name string) bool {
	return strings.HasPrefix(name, "Edm.")
}

// isTemporalType reports whether the type carries a precision defaulting to zero
func isTemporalType(name string) bool {
	switch name {
	case "Edm.Duration", "Edm.Date", "Edm.TimeOfDay", "Edm.DateTimeOffset":
		return true
	}
	return false
}

// Validate checks a literal against the type. Types without a validator accept anything.
func (pt *PrimitiveType) Validate(value string) error {
	if pt == nil || pt.Validator == nil {
		return nil
	}
	if err := pt.Validator(value); err != nil {
		return fmt.Errorf("invalid %s literal '%s': %w", pt.Name, value, err)
	}
	return nil
}

func validateBoolean(value string) error {
	if value != "true" && value != "false" {
		return fmt.Errorf("must be 'true' or 'false'")
	}
	return nil
}

func validateSigned(bits int) func(string) error {
	return func(value string) error {
		_, err := strconv.ParseInt(value, 10, bits)
		return err
	}
}

func validateUnsigned(bits int) func(string) error {
	return func(value string) error {
		_, err := strconv.ParseUint(value, 10, bits)
		return err
	}
}

func validateFloat(bits int) func(string) error {
	return func(value string) error {
		switch value {
		case "INF", "-INF", "NaN":
			return nil
		}
		f, err := strconv.ParseFloat(value, bits)
		if err != nil {
			return err
		}
		if math.IsInf(f, 0) {
			return fmt.Errorf("out of range")
		}
		return nil
	}
}

func validateDecimal(value string) error {
	if !decimalPattern.MatchString(value) {
		return fmt.Errorf("not a decimal number")
	}
	return nil
}

func validateDate(value string) error {
	if !datePattern.MatchString(value) {
		return fmt.Errorf("expected YYYY-MM-DD")
	}
	// Years beyond four digits are valid but not parseable by time
	if len(value) == 10 {
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return err
		}
	}
	return nil
}

func validateDateTimeOffset(value string) error {
	if _, err := time.Parse(time.RFC3339Nano, value); err != nil {
		return fmt.Errorf("expected an RFC 3339 timestamp")
	}
	return nil
}

func validateDuration(value string) error {
	if value == "P" || value == "-P" || strings.HasSuffix(value, "T") || !durationPattern.MatchString(value) {
		return fmt.Errorf("expected a day-time duration such as P1DT2H")
	}
	return nil
}

func validateTimeOfDay(value string) error {
	if !timeOfDayPattern.MatchString(value) {
		return fmt.Errorf("expected hh:mm[:ss[.fff]]")
	}
	hour, _ := strconv.Atoi(value[0:2])
	minute, _ := strconv.Atoi(value[3:5])
	if hour > 23 || minute > 59 {
		return fmt.Errorf("time out of range")
	}
	if len(value) >= 8 {
		if second, _ := strconv.Atoi(value[6:8]); second > 59 {
			return fmt.Errorf("time out of range")
		}
	}
	return nil
}

func validateGuid(value string) error {
	if !guidPattern.MatchString(value) {
		return fmt.Errorf("expected 8-4-4-4-12 hexadecimal digits")
	}
	return nil
}

func validateBinary(value string) error {
	trimmed := strings.TrimRight(value, "=")
	if _, err := base64.RawURLEncoding.DecodeString(trimmed); err == nil {
		return nil
	}
	if _, err := base64.StdEncoding.DecodeString(value); err != nil {
		return fmt.Errorf("not base64 encoded")
	}
	return nil
}
