package finance_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pharmacy-ledger/finance"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2500000", "2500000"},
		{"1.2", "1.2"},
		{"850k", "850000"},
		{"3.5K", "3500"},
		{"750m", "750000000"},
		{"1.2m", "1200000"},
		{"1b", "1000000000"},
		{"2,500,000", "2500000"},
		{"۲٫۵m", "2500000"},
		{"١٢٠٠٠٠", "120000"},
		{"-300k", "-300000"},
		{".5k", "500"},
		{"  42  ", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := finance.ParseAmount(tt.in)
			require.NoError(t, err)
			assertDec(t, tt.want, got)
		})
	}
}

func TestParseAmount_Rejects(t *testing.T) {
	for _, in := range []string{"", "   ", "k", "1.2.3", "12x", "1 k", "abc", "-", "1kk"} {
		t.Run(in, func(t *testing.T) {
			_, err := finance.ParseAmount(in)
			assert.ErrorIs(t, err, finance.ErrValidation)
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"500", 500},
		{"1.2k", 1200},
		{"12.5", 13},
		{"12.4", 12},
		{"۳۰", 30},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := finance.ParseCount(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := finance.ParseCount("many")
	assert.True(t, finance.IsClientError(err))
}

func TestParseCount_RejectsOverflow(t *testing.T) {
	// GIVEN: Counts beyond the range of int
	// WHEN: Parsing them
	// THEN: A validation error instead of a wrapped value

	for _, in := range []string{
		"18446744073709551621",
		"18446744073709551616b",
		"9223372036854775808",
		"-9223372036854775809",
	} {
		t.Run(in, func(t *testing.T) {
			got, err := finance.ParseCount(in)
			require.Error(t, err)
			assert.True(t, finance.IsClientError(err))
			assert.Zero(t, got)
		})
	}

	got, err := finance.ParseCount("9223372036854775807")
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, got)
}
