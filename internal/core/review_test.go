package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name         string
		tokens       int64
		pricePer1000 string
		want         string
	}{
		{"typical call", 1500, "0.002", "0.003"},
		{"zero tokens", 0, "0.002", "0"},
		{"fractional result stays exact", 333, "0.002", "0.000666"},
		{"zero price", 100000, "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, err := decimal.NewFromString(tt.pricePer1000)
			require.NoError(t, err)
			want, err := decimal.NewFromString(tt.want)
			require.NoError(t, err)

			got := EstimateCost(tt.tokens, price)
			assert.True(t, got.Equal(want), "got %s, want %s", got, want)
		})
	}
}

func TestFormatComment(t *testing.T) {
	tests := []struct {
		name    string
		comment ReviewComment
		want    string
	}{
		{
			name:    "error with category and rule",
			comment: ReviewComment{Text: "nil deref", Severity: "error", Category: "Bugs", RuleName: "go-safety"},
			want:    "🔴 [Bugs] nil deref (Rule: go-safety)",
		},
		{
			name:    "warning uppercase severity",
			comment: ReviewComment{Text: "missing check", Severity: "WARNING"},
			want:    "🟡 missing check",
		},
		{
			name:    "info default marker",
			comment: ReviewComment{Text: "style nit", Severity: "info"},
			want:    "🔵 style nit",
		},
		{
			name:    "unknown severity falls back to info marker",
			comment: ReviewComment{Text: "hm", Severity: "weird"},
			want:    "🔵 hm",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatComment(tt.comment))
		})
	}
}

func TestKeywordAlertText(t *testing.T) {
	k := HotKeyword{Category: "Security", AlertMessage: "hardcoded credential detected"}
	assert.Equal(t, "⚠️ **Security Alert**: hardcoded credential detected", KeywordAlertText(k))
}
