package util

import (
	"strings"

	"github.com/google/uuid"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateTokenCode produces a short uppercase-alphanumeric code for
// self-assigned token commissioning, seeded from a random UUID.
func GenerateTokenCode(size int) string {
	if size <= 0 {
		size = 5
	}
	id := uuid.New()
	var b strings.Builder
	b.Grow(size)
	for i := 0; i < size; i++ {
		b.WriteByte(codeAlphabet[int(id[i%len(id)])%len(codeAlphabet)])
	}
	return b.String()
}

// TrimPadding strips the trailing NUL and space padding a fixed-width token
// sector read produces.
func TrimPadding(payload string) string {
	return strings.TrimRight(payload, "\x00 \r\n")
}
