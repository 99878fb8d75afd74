package encoder

import (
	"errors"
	"math"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		input    uint64
		expected string
	}{
		{"zero", 0, "0"},
		{"first store id", 1, "1"},
		{"second store id", 2, "2"},
		{"nine", 9, "9"},
		{"ten becomes 'a'", 10, "a"},
		{"thirty-five becomes 'z'", 35, "z"},
		{"thirty-six becomes 'A'", 36, "A"},
		{"sixty-one becomes 'Z'", 61, "Z"},
		{"sixty-two becomes '10'", 62, "10"},
		{"large number", 12345, "3d7"},
		{"million", 1000000, "4c92"},
		{"realistic ID", 123456789, "8m0Kx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Encode(tt.input)
			if result != tt.expected {
				t.Errorf("Encode(%d) = %s; want %s", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected uint64
		err      error
	}{
		{"zero", "0", 0, nil},
		{"letter 'a' is 10", "a", 10, nil},
		{"letter 'Z' is 61", "Z", 61, nil},
		{"'10' is 62", "10", 62, nil},
		{"realistic ID", "8m0Kx", 123456789, nil},
		{"empty", "", 0, ErrEmptyCode},
		{"dash", "ab-c", 0, ErrInvalidCharacter},
		{"sentinel prefix", "~pending", 0, ErrInvalidCharacter},
		{"overflow", Encode(math.MaxUint64) + "0", 0, ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Decode(tt.input)
			if !errors.Is(err, tt.err) {
				t.Fatalf("Decode(%q) error = %v; want %v", tt.input, err, tt.err)
			}
			if result != tt.expected {
				t.Errorf("Decode(%q) = %d; want %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testNumbers := []uint64{0, 1, 10, 61, 62, 100, 1000, 12345, 999999, 123456789, math.MaxUint64}

	for _, num := range testNumbers {
		encoded := Encode(num)
		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%s): %v", encoded, err)
		}
		if decoded != num {
			t.Errorf("Round trip failed: %d -> %s -> %d", num, encoded, decoded)
		}
	}
}

func TestEncodeInjective(t *testing.T) {
	seen := make(map[string]uint64, 200000)
	for n := uint64(0); n < 200000; n++ {
		code := Encode(n)
		if prev, ok := seen[code]; ok {
			t.Fatalf("Encode(%d) == Encode(%d) == %q", n, prev, code)
		}
		seen[code] = n
	}
}

func TestEncodedLength(t *testing.T) {
	tests := []struct {
		input       uint64
		maxLength   int
		description string
	}{
		{61, 1, "max 1-char"},
		{62*62 - 1, 2, "max 2-char"},
		{62*62*62 - 1, 3, "max 3-char"},
		{62*62*62*62 - 1, 4, "max 4-char"},
		{56800235583, 6, "max 6-char capacity"},
		{math.MaxUint64, MaxLength, "uint64 ceiling"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			encoded := Encode(tt.input)
			if len(encoded) > tt.maxLength {
				t.Errorf("Encode(%d) = %s (len=%d); want max length %d",
					tt.input, encoded, len(encoded), tt.maxLength)
			}
		})
	}
}

func TestIsCanonical(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"0", true},
		{"1", true},
		{"8m0Kx", true},
		{"01", false},
		{"", false},
		{"abc_def", false},
		{Encode(math.MaxUint64), true},
		{"zzzzzzzzzzzz", false},
	}

	for _, tt := range tests {
		if got := IsCanonical(tt.code); got != tt.want {
			t.Errorf("IsCanonical(%q) = %v; want %v", tt.code, got, tt.want)
		}
	}
}
