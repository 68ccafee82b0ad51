package csdl

import (
	"testing"
)

func TestPrimitiveTypeValidate(t *testing.T) {
	tests := []struct {
		typeName  string
		value     string
		wantError bool
	}{
		{"Edm.Boolean", "true", false},
		{"Edm.Boolean", "1", true},
		{"Edm.Byte", "255", false},
		{"Edm.Byte", "256", true},
		{"Edm.SByte", "-128", false},
		{"Edm.Int16", "40000", true},
		{"Edm.Int32", "-2147483648", false},
		{"Edm.Int64", "9223372036854775807", false},
		{"Edm.Int64", "12.5", true},
		{"Edm.Single", "INF", false},
		{"Edm.Double", "-1.5e10", false},
		{"Edm.Double", "abc", true},
		{"Edm.Decimal", "3.14", false},
		{"Edm.Decimal", "1e5", false},
		{"Edm.Decimal", "one", true},
		{"Edm.Date", "2024-02-29", false},
		{"Edm.Date", "2023-02-29", true},
		{"Edm.Date", "12024-01-01", false},
		{"Edm.DateTimeOffset", "2024-01-01T10:00:00Z", false},
		{"Edm.DateTimeOffset", "2024-01-01", true},
		{"Edm.Duration", "P1DT2H", false},
		{"Edm.Duration", "PT", true},
		{"Edm.TimeOfDay", "23:59:59.999", false},
		{"Edm.TimeOfDay", "24:00", true},
		{"Edm.Guid", "21EC2020-3AEA-1069-A2DD-08002B30309D", false},
		{"Edm.Guid", "21EC2020", true},
		{"Edm.Binary", "T0RhdGE", false},
		{"Edm.Binary", "not base64!", true},
		{"Edm.String", "anything", false},
	}

	for _, tt := range tests {
		t.Run(tt.typeName+"/"+tt.value, func(t *testing.T) {
			pt, ok := LookupPrimitiveType(tt.typeName)
			if !ok {
				t.Fatalf("primitive type %s not registered", tt.typeName)
			}
			err := pt.Validate(tt.value)
			if tt.wantError && err == nil {
				t.Errorf("expected %s to reject %q", tt.typeName, tt.value)
			}
			if !tt.wantError && err != nil {
				t.Errorf("expected %s to accept %q, got %v", tt.typeName, tt.value, err)
			}
		})
	}
}

func TestIsTemporalType(t *testing.T) {
	for _, name := range []string{"Edm.Duration", "Edm.Date", "Edm.TimeOfDay", "Edm.DateTimeOffset"} {
		if !isTemporalType(name) {
			t.Errorf("%s should be temporal", name)
		}
	}
	for _, name := range []string{"Edm.String", "Edm.Decimal", "Demo.Date"} {
		if isTemporalType(name) {
			t.Errorf("%s should not be temporal", name)
		}
	}
}

func TestIsPrimitiveTypeName(t *testing.T) {
	if !IsPrimitiveTypeName("Edm.GeographyPoint") {
		t.Error("Edm.GeographyPoint should be primitive")
	}
	if IsPrimitiveTypeName("Demo.Edm") {
		t.Error("Demo.Edm should not be primitive")
	}
}
