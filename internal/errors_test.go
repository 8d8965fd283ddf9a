package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormulaError_String(t *testing.T) {
	tests := []struct {
		name string
		err  FormulaError
		want string
	}{
		{"ref", FormulaError{Category: ErrRef}, "#REF!"},
		{"value", FormulaError{Category: ErrValue}, "#VALUE!"},
		{"div0", FormulaError{Category: ErrDiv0}, "#DIV/0!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.String())
		})
	}
}
