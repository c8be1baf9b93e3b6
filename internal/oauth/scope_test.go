package oauth

import (
	"reflect"
	"testing"
)

func TestParseScope(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Scope
	}{
		{name: "empty", raw: "", want: nil},
		{name: "whitespace only", raw: "   ", want: nil},
		{name: "single", raw: "read", want: Scope{"read"}},
		{name: "multiple", raw: "read write", want: Scope{"read", "write"}},
		{name: "duplicates dropped", raw: "read write read", want: Scope{"read", "write"}},
		{name: "extra whitespace", raw: "  read\t write ", want: Scope{"read", "write"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseScope(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseScope(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestScopeSubset(t *testing.T) {
	allowed := Scope{"read", "write", "admin"}

	if !ParseScope("read").Subset(allowed) {
		t.Error("expected read to be a subset")
	}
	if !ParseScope("read write").Subset(allowed) {
		t.Error("expected read write to be a subset")
	}
	if ParseScope("read delete").Subset(allowed) {
		t.Error("expected read delete to not be a subset")
	}
	if !Scope(nil).Subset(allowed) {
		t.Error("expected empty scope to be a subset")
	}
	if ParseScope("read").Subset(nil) {
		t.Error("expected nothing to be a subset of the empty scope")
	}
}

func TestScopeString(t *testing.T) {
	if got := ParseScope("read write").String(); got != "read write" {
		t.Errorf("String() = %q, want %q", got, "read write")
	}
	if got := Scope(nil).String(); got != "" {
		t.Errorf("String() = %q, want empty", got)
	}
}
