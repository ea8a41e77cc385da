package utils

import "testing"

func TestNormalizePlate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AB12CDE", "AB12CDE"},
		{"ab12cde", "AB12CDE"},
		{"AB12 CDE", "AB12CDE"},
		{"ab-12-cde", "AB12CDE"},
		{" 7abc123\n", "7ABC123"},
		{"ÄB 12", "B12"},
		{"", ""},
		{"--", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizePlate(tt.in); got != tt.want {
				t.Errorf("NormalizePlate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	got := SanitizeFilename(`inspection report: london/2024?`)
	want := "inspection_report__london_2024_"
	if got != want {
		t.Errorf("SanitizeFilename = %q, want %q", got, want)
	}
}
