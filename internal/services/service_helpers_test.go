package services

import (
	"strings"
	"testing"
)

func TestGenerateJoinCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := generateJoinCode()
		if err != nil {
			t.Fatalf("generateJoinCode failed: %v", err)
		}
		if len(code) != joinCodeLength {
			t.Fatalf("Expected %d characters, got %q", joinCodeLength, code)
		}
		for _, r := range code {
			if !strings.ContainsRune(joinCodeAlphabet, r) {
				t.Fatalf("Character %q outside the code alphabet in %q", r, code)
			}
		}
		seen[code] = true
	}
	// A collision in 200 draws from a 36^6 space points at a broken
	// generator, not bad luck.
	if len(seen) < 200 {
		t.Errorf("Expected 200 distinct codes, got %d", len(seen))
	}
}

func TestBuildJoinURL(t *testing.T) {
	tests := []struct {
		base string
		code string
		want string
	}{
		{"http://boards.test", "ABC123", "http://boards.test/join/ABC123"},
		{"http://boards.test/", "ABC123", "http://boards.test/join/ABC123"},
	}
	for _, tt := range tests {
		if got := buildJoinURL(tt.base, tt.code); got != tt.want {
			t.Errorf("buildJoinURL(%q, %q) = %q, want %q", tt.base, tt.code, got, tt.want)
		}
	}
}
