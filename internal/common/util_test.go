package common

import (
	"encoding/hex"
	"strings"
	"testing"
)

// ---------- MakeRandHexString ----------

func TestMakeRandHexString_LengthAndHex(t *testing.T) {
	const n = 16
	s, err := MakeRandHexString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != n*2 {
		t.Fatalf("expected hex length %d, got %d", n*2, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		t.Fatalf("string is not valid hex: %v", err)
	}
}

func TestMakeRandHexString_ZeroSize(t *testing.T) {
	s, err := MakeRandHexString(0)
	if err != nil {
		t.Fatalf("unexpected error for size=0: %v", err)
	}
	if s != "" {
		t.Fatalf("expected empty string for size=0, got %q", s)
	}
}

// ---------- RandomString ----------

func TestRandomString_LengthAndAlphabet(t *testing.T) {
	s, err := RandomString(32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != 32 {
		t.Fatalf("expected length 32, got %d", len(s))
	}
	for _, r := range s {
		if !strings.ContainsRune(alphanumeric, r) {
			t.Fatalf("unexpected rune %q in %q", r, s)
		}
	}
}

func TestRandomString_EntropyHint(t *testing.T) {
	a, _ := RandomString(32)
	b, _ := RandomString(32)
	if a == b {
		t.Logf("warning: two RandomString(32) results are identical; extremely unlikely")
	}
}

func TestRandomString_NoModuloBias(t *testing.T) {
	const perChar = 2000
	s, err := RandomString(perChar * len(alphanumeric))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counts := make(map[rune]int, len(alphanumeric))
	for _, r := range s {
		counts[r]++
	}

	// 256 % 62 == 8: a plain modulo would favour the first 8 characters by 25%.
	var head, tail float64
	for i, r := range alphanumeric {
		if i < 8 {
			head += float64(counts[r])
		} else {
			tail += float64(counts[r])
		}
	}
	head /= 8
	tail /= float64(len(alphanumeric) - 8)

	if ratio := head / tail; ratio > 1.1 || ratio < 0.9 {
		t.Fatalf("first characters drawn %.2fx as often as the rest", ratio)
	}
}
