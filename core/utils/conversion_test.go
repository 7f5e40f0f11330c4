package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToInt(t *testing.T) {
	tests := []struct {
		in     any
		want   int
		wantOK bool
	}{
		{42, 42, true},
		{float64(7), 7, true},
		{"12", 12, true},
		{[]byte(`"13"`), 13, true},
		{"１２", 12, true},
		{" 1,200 ", 1200, true},
		{"", 0, false},
		{[]byte("null"), 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		n, ok, err := ToInt(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, n, tt.in)
	}
}

func TestToInt_Invalid(t *testing.T) {
	_, ok, err := ToInt("abc")
	assert.Error(t, err)
	assert.False(t, ok)
}
