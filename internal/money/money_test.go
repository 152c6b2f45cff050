package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNairaString(t *testing.T) {
	tests := []struct {
		kobo int64
		want string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{499900, "4999.00"},
		{1250075, "12500.75"},
		{-150, "-1.50"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, NairaString(tt.kobo))
		})
	}
}

func TestFormatNaira(t *testing.T) {
	tests := []struct {
		kobo int64
		want string
	}{
		{0, "₦0.00"},
		{99900, "₦999.00"},
		{100000, "₦1,000.00"},
		{1250075, "₦12,500.75"},
		{85000000, "₦850,000.00"},
		{123456789012, "₦1,234,567,890.12"},
		{-250000, "-₦2,500.00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNaira(tt.kobo))
		})
	}
}

func TestPercentChange(t *testing.T) {
	assert.InDelta(t, 15.0, PercentChange(10000, 11500), 1e-9)
	assert.InDelta(t, 30.0, PercentChange(10000, 13000), 1e-9)
	assert.InDelta(t, -50.0, PercentChange(200, 100), 1e-9)
}
