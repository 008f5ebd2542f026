package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizers(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))
	assert.Equal(t, "+15551234567", NormalizePhone("+1 (555) 123-4567"))
	assert.Equal(t, "5551234567", NormalizePhone("555.123.4567"))
	assert.Equal(t, "", NormalizePhone("   "))
	assert.Equal(t, "SPRING20", NormalizeCode(" spring20 "))
	assert.Equal(t, "02139", NormalizeZip(" 02139-4307"))
}

func TestIsValidZip(t *testing.T) {
	tests := map[string]bool{
		"02139":  true,
		"2139":   false,
		"021399": false,
		"0213a":  false,
		"":       false,
	}
	for in, want := range tests {
		assert.Equal(t, want, IsValidZip(in), in)
	}
}

func TestIsValidPhone(t *testing.T) {
	assert.True(t, IsValidPhone("(555) 123-4567"))
	assert.False(t, IsValidPhone("12-34"))
}
