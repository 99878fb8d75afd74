package encoder

import (
	"errors"
	"math"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
const base = uint64(len(alphabet))

// MaxLength is the length of the longest code Encode can produce (math.MaxUint64).
const MaxLength = 11

var (
	ErrEmptyCode        = errors.New("encoder: empty code")
	ErrInvalidCharacter = errors.New("encoder: character outside base62 alphabet")
	ErrOverflow         = errors.New("encoder: code overflows uint64")
)

// index maps an alphabet byte to its digit value, -1 for bytes outside the alphabet.
var index = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		t[alphabet[i]] = int8(i)
	}
	return t
}()

// Encode converts a number to a base62 string.
// Digits are collected least-significant first and then reversed.
func Encode(num uint64) string {
	if num == 0 {
		return string(alphabet[0])
	}

	var buf [MaxLength]byte
	i := len(buf)
	for num > 0 {
		i--
		buf[i] = alphabet[num%base]
		num /= base
	}

	return string(buf[i:])
}

// Decode converts a base62 string back to a number.
func Decode(encoded string) (uint64, error) {
	if encoded == "" {
		return 0, ErrEmptyCode
	}

	var num uint64
	for i := 0; i < len(encoded); i++ {
		digit := index[encoded[i]]
		if digit < 0 {
			return 0, ErrInvalidCharacter
		}
		if num > (math.MaxUint64-uint64(digit))/base {
			return 0, ErrOverflow
		}
		num = num*base + uint64(digit)
	}

	return num, nil
}

// IsCanonical reports whether code is exactly what Encode would produce for some id:
// base62 characters only, no leading zero digit unless the code is "0".
func IsCanonical(code string) bool {
	if code == "" || len(code) > MaxLength {
		return false
	}
	if len(code) > 1 && code[0] == alphabet[0] {
		return false
	}
	_, err := Decode(code)
	return err == nil
}
