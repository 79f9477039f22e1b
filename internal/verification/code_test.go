package verification_test

import (
	"testing"

	"github.com/uniusa/verify-bot/internal/verification"
)

func TestGenerateCode_SixASCIIDigits(t *testing.T) {
	for range 1000 {
		code := verification.GenerateCode()
		if len(code) != 6 {
			t.Fatalf("len(%q) = %d, want 6", code, len(code))
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("code %q contains non-digit %q", code, c)
			}
		}
	}
}

// Coarse uniformity check over the leading digit: with 10000 samples each
// bucket expects ~1000, so anything outside [700, 1300] signals a skewed
// generator rather than bad luck.
func TestGenerateCode_LeadingDigitRoughlyUniform(t *testing.T) {
	const samples = 10000
	var buckets [10]int
	for range samples {
		code := verification.GenerateCode()
		buckets[code[0]-'0']++
	}
	for digit, n := range buckets {
		if n < 700 || n > 1300 {
			t.Errorf("leading digit %d: %d occurrences, outside [700, 1300]", digit, n)
		}
	}
}
