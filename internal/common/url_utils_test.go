package common

import (
	"testing"
)

func TestDecodeTargetURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Percent-encoded relative target",
			input:    "https://myservice.example.com/now/nav/ui/classic/params/target/kb_view.do%3Fsysparm_article%3DKB0010611",
			expected: "https://myservice.example.com/kb_view.do?sysparm_article=KB0010611",
		},
		{
			name:     "Absolute URL inside target",
			input:    "https://myservice.example.com/target/https%3A%2F%2Fother.example.com%2Fkb_view.do%3Fsysparm_article%3DKB0000001",
			expected: "https://other.example.com/kb_view.do?sysparm_article=KB0000001",
		},
		{
			name:     "No wrapper returns input unchanged",
			input:    "https://myservice.example.com/kb_view.do?sysparm_article=KB0010611",
			expected: "https://myservice.example.com/kb_view.do?sysparm_article=KB0010611",
		},
		{
			name:     "Leading slash in decoded path is not doubled",
			input:    "https://myservice.example.com/target/%2Fkb_view.do%3Fsysparm_article%3DKB0000002",
			expected: "https://myservice.example.com/kb_view.do?sysparm_article=KB0000002",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeTargetURL(tt.input)
			if got != tt.expected {
				t.Errorf("DecodeTargetURL(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDecodeTargetURLIdempotent(t *testing.T) {
	input := "https://myservice.example.com/now/nav/ui/classic/params/target/kb_view.do%3Fsysparm_article%3DKB0010611"

	once := DecodeTargetURL(input)
	twice := DecodeTargetURL(once)

	if once != twice {
		t.Errorf("decoding is not idempotent: first %q, second %q", once, twice)
	}
}

func TestExtractKBNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"KB0010611", "KB0010611"},
		{"see KB1234567 for details", "KB1234567"},
		{"https://x.example.com/kb_view.do?sysparm_article=KB0000042", "KB0000042"},
		{"no article here", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ExtractKBNumber(tt.input); got != tt.expected {
			t.Errorf("ExtractKBNumber(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		input    string
		def      string
		expected string
	}{
		{"KB0010611", "file", "KB0010611"},
		{"a b/c:d", "file", "a_b_c_d"},
		{"   ", "file", "file"},
		{"", "page", "page"},
	}

	for _, tt := range tests {
		if got := SafeFilename(tt.input, tt.def); got != tt.expected {
			t.Errorf("SafeFilename(%q, %q) = %q, want %q", tt.input, tt.def, got, tt.expected)
		}
	}
}
