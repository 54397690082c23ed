package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedTraceGenerator(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"trace-123", "trace-123"},
		{"", "test-trace-default"},
		{"01234567-89ab-cdef-0123-456789abcdef", "01234567-89ab-cdef-0123-456789abcdef"},
	}
	for _, tt := range tests {
		gen := NewFixedTraceGenerator(tt.token)
		assert.Equal(t, tt.want, gen.Generate())
		assert.Equal(t, tt.want, gen.Generate(), "repeat calls return the same id")
	}
}
