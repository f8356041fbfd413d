package main

import (
	"os"
	"testing"
)

func TestGetenv(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		set   bool
		def   string
		want  string
	}{
		{name: "set returns value", key: "COORDINATOR_TEST_A", value: "custom", set: true, def: "default", want: "custom"},
		{name: "unset returns default", key: "COORDINATOR_TEST_B", set: false, def: "default", want: "default"},
		{name: "empty returns default", key: "COORDINATOR_TEST_C", value: "", set: true, def: "default", want: "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.set {
				t.Setenv(tt.key, tt.value)
			} else {
				os.Unsetenv(tt.key)
			}
			if got := getenv(tt.key, tt.def); got != tt.want {
				t.Errorf("getenv(%q, %q) = %q, want %q", tt.key, tt.def, got, tt.want)
			}
		})
	}
}

func TestGetenvInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		set   bool
		def   int
		want  int
	}{
		{name: "valid int overrides default", value: "250", set: true, def: 100, want: 250},
		{name: "unset uses default", set: false, def: 100, want: 100},
		{name: "non-numeric uses default", value: "not-a-number", set: true, def: 100, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "COORDINATOR_TEST_INT"
			if tt.set {
				t.Setenv(key, tt.value)
			} else {
				os.Unsetenv(key)
			}
			if got := getenvInt(key, tt.def); got != tt.want {
				t.Errorf("getenvInt(%q, %d) = %d, want %d", key, tt.def, got, tt.want)
			}
		})
	}
}
