package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenGate_Authorize(t *testing.T) {
	gate := NewTokenGate("correct-horse")

	tests := []struct {
		name       string
		credential string
		want       bool
	}{
		{"matching token", "correct-horse", true},
		{"wrong token", "battery-staple", false},
		{"prefix", "correct", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gate.Authorize(tt.credential))
		})
	}
}

func TestTokenGate_EmptyTokenDeniesAll(t *testing.T) {
	gate := NewTokenGate("")
	assert.False(t, gate.Authorize(""))
	assert.False(t, gate.Authorize("anything"))

	var nilGate *TokenGate
	assert.False(t, nilGate.Authorize("anything"))
}
