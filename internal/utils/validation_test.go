package utils

import (
	"strings"
	"testing"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		err      ValidationError
		expected string
	}{
		{
			name: "error with field",
			err: ValidationError{
				Field:   "source",
				Value:   "",
				Message: "cannot be empty",
			},
			expected: "validation error for field 'source': cannot be empty",
		},
		{
			name: "error without field",
			err: ValidationError{
				Message: "invalid format",
			},
			expected: "validation error: invalid format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNotEmpty(t *testing.T) {
	validator := NotEmpty("test_field")

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid string", "hello", false},
		{"empty string", "", true},
		{"whitespace only", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("NotEmpty() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsOneOf(t *testing.T) {
	validator := IsOneOf("log_format", "text", "json")

	if err := validator("json"); err != nil {
		t.Errorf("expected json to be accepted, got %v", err)
	}

	err := validator("xml")
	if err == nil {
		t.Fatal("expected xml to be rejected")
	}
	if !strings.Contains(err.Error(), "must be one of: [text json]") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestInRange(t *testing.T) {
	validator := InRange("workers", 0, 64)

	for _, v := range []int{0, 8, 64} {
		if err := validator(v); err != nil {
			t.Errorf("InRange(%d) unexpected error %v", v, err)
		}
	}
	for _, v := range []int{-1, 65} {
		if err := validator(v); err == nil {
			t.Errorf("InRange(%d) expected error", v)
		}
	}
}

func TestValidatorChain(t *testing.T) {
	chain := NewValidatorChain(NotEmpty("out")).
		Add(Custom("out", "must differ from source", func(v string) bool { return v != "src" })).
		Add(Conditional(func(v string) bool { return strings.HasPrefix(v, "/") },
			Custom("out", "must not be the file system root", func(v string) bool { return v != "/" })))

	tests := []struct {
		value   string
		message string
	}{
		{"build", ""},
		{"", "cannot be empty"},
		{"src", "must differ from source"},
		{"/", "must not be the file system root"},
		{"/tmp/out", ""},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			err := chain.Validate(tt.value)
			if tt.message == "" {
				if err != nil {
					t.Errorf("unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.message) {
				t.Errorf("expected %q, got %v", tt.message, err)
			}
		})
	}
}
