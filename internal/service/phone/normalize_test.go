package phone_test

import (
	"strings"
	"testing"

	"github.com/zhouzirui/elio-helpdesk/client/internal/service/phone"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"formatted", "+55 (11) 98765-4321", "5511987654321"},
		{"letters only", "abc", ""},
		{"truncates", "1234567890123456789", "123456789012345"},
		{"non ascii digits dropped", "١٢٣45", "45"},
		{"already clean", "11987654321", "11987654321"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := phone.Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeIdempotentAndBounded(t *testing.T) {
	inputs := []string{
		"",
		"  +1 (800) 555-0199 ext. 42 ",
		strings.Repeat("9a", 40),
		"☎️ 11-9-8765-4321",
		"\x00\xff12",
	}

	for _, in := range inputs {
		once := phone.Normalize(in)
		if twice := phone.Normalize(once); twice != once {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
		if len(once) > phone.MaxDigits {
			t.Fatalf("result too long for %q: %d", in, len(once))
		}
		for _, r := range once {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit %q in result for %q", r, in)
			}
		}
	}
}
