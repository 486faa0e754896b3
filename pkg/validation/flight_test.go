package validation

import (
	"testing"
)

func TestValidateFlightNumber(t *testing.T) {
	tests := []struct {
		name    string
		flight  string
		wantErr bool
	}{
		// Valid flight numbers
		{"iata", "AM241", false},
		{"icao", "AMX241", false},
		{"two chars", "A1", false},
		{"charter hyphen", "AM-241", false},
		{"max length", "ABCDEFGHIJ", false},
		{"all digits", "241241", false},

		// Invalid flight numbers - injection attempts
		{"empty", "", true},
		{"shell injection", "AM241; rm -rf /", true},
		{"command substitution", "AM$(whoami)", true},
		{"newline injection", "AM241\ncat /etc/passwd", true},
		{"lowercase", "am241", true}, // Must be uppercase
		{"single char", "A", true},
		{"too long", "ABCDEFGHIJK", true},
		{"special chars", "AM@241", true},
		{"spaces", "AM 241", true},
		{"starts with hyphen", "-AM241", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFlightNumber(tt.flight)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFlightNumber(%q) error = %v, wantErr %v", tt.flight, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeFlightNumber(t *testing.T) {
	tests := []struct {
		name    string
		flight  string
		want    string
		wantErr bool
	}{
		{"already clean", "AM241", "AM241", false},
		{"lowercase normalized", "am241", "AM241", false},
		{"whitespace trimmed", "  am241  ", "AM241", false},
		{"invalid after trim", "  ", "", true},
		{"injection rejected", "AM241;id", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeFlightNumber(tt.flight)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SanitizeFlightNumber(%q) error = %v, wantErr %v", tt.flight, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SanitizeFlightNumber(%q) = %q, want %q", tt.flight, got, tt.want)
			}
		})
	}
}
