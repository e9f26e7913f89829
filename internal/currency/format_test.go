package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   string
	}{
		{"zero", "0", "0.00"},
		{"small", "999.99", "999.99"},
		{"fraction", "0.5", "0.50"},
		{"thousand boundary", "1000", "1.00K"},
		{"thousands", "1500", "1.50K"},
		{"just under lakh", "99999", "100.00K"},
		{"mid thousands", "12340", "12.34K"},
		{"lakh boundary", "100000", "1.00L"},
		{"lakhs", "150000", "1.50L"},
		{"crore boundary", "10000000", "1.00Cr"},
		{"crores", "15000000", "1.50Cr"},
		{"large crores", "1234567890", "123.46Cr"},
		{"rounds up below suffix", "999.999", "1000.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(decimal.RequireFromString(tt.amount))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_Negative(t *testing.T) {
	assert.Equal(t, "-1.50K", Format(decimal.NewFromInt(-1500)))
	assert.Equal(t, "-12.00", Format(decimal.NewFromInt(-12)))
	assert.Equal(t, "-2.00Cr", Format(decimal.NewFromInt(-20_000_000)))
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "1.50L", FormatFloat(150000))
	assert.Equal(t, "0.00", FormatFloat(0))
}

func TestWithSymbol(t *testing.T) {
	assert.Equal(t, "$0.00", WithSymbol("$", decimal.Zero))
	assert.Equal(t, "$150.00", WithSymbol("$", decimal.NewFromInt(150)))
	assert.Equal(t, "$90.00L", WithSymbol("$", decimal.NewFromInt(9_000_000)))
	assert.Equal(t, "-$1.50K", WithSymbol("$", decimal.NewFromInt(-1500)))
}

func TestGrouped(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"0", "0.00"},
		{"999.99", "999.99"},
		{"1000", "1,000.00"},
		{"1234.5", "1,234.50"},
		{"100000", "100,000.00"},
		{"9000000", "9,000,000.00"},
		{"1234567890.125", "1,234,567,890.13"},
		{"999.999", "1,000.00"},
		{"-1500", "-1,500.00"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, Grouped(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestGroupedWithSymbol(t *testing.T) {
	assert.Equal(t, "$1,234.56", GroupedWithSymbol("$", decimal.RequireFromString("1234.56")))
	assert.Equal(t, "-£1,500.00", GroupedWithSymbol("£", decimal.NewFromInt(-1500)))
}

func TestGroupInt(t *testing.T) {
	assert.Equal(t, "7", GroupInt("7"))
	assert.Equal(t, "123", GroupInt("123"))
	assert.Equal(t, "1,234", GroupInt("1234"))
	assert.Equal(t, "123,456", GroupInt("123456"))
	assert.Equal(t, "1,234,567", GroupInt("1234567"))
}
