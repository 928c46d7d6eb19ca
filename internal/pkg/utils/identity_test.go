package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeIdentityUTF8(t *testing.T) {
	// 1. Plain ASCII identity passes through unchanged
	assert.Equal(t, "client-01_abc", EncodeIdentity([]byte("client-01_abc")))

	// 2. Unsafe characters are replaced with underscores
	assert.Equal(t, "client_01_a_b", EncodeIdentity([]byte("client 01/a.b")))

	// 3. Multibyte runes are valid UTF-8 but outside the safe set
	assert.Equal(t, "host__", EncodeIdentity([]byte("host天津")))
}

func TestEncodeIdentityInvalidUTF8(t *testing.T) {
	// Invalid UTF-8 falls back to lowercase hex
	raw := []byte{0x00, 0x9f, 0xff, 0x41}
	assert.Equal(t, "009fff41", EncodeIdentity(raw))
}

func TestEncodeIdentityTotality(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		[]byte("normal"),
		{0xff, 0xfe, 0xfd},
		[]byte(strings.Repeat("x", 500)),
		[]byte(strings.Repeat("\x00", 300)),
		[]byte("mixed \xff bytes / and spaces"),
	}

	for _, in := range inputs {
		out := EncodeIdentity(in)

		// 1. Bounded length
		assert.LessOrEqual(t, len(out), 120)

		// 2. Only safe characters
		for _, c := range out {
			safe := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
				(c >= '0' && c <= '9') || c == '-' || c == '_'
			assert.True(t, safe, "unsafe character %q in %q", c, out)
		}

		// 3. Deterministic
		assert.Equal(t, out, EncodeIdentity(in))
	}
}

func TestEncodeIdentityTruncation(t *testing.T) {
	out := EncodeIdentity([]byte(strings.Repeat("a", 200)))
	assert.Equal(t, strings.Repeat("a", 120), out)
}
