package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// moneyScale is the fixed scale every stored or compared monetary value is
// quantized to. Raw decimals are never compared directly.
const moneyScale = 4

// QuantizeMoney rounds a decimal to the ledger's money scale, half up.
func QuantizeMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyScale)
}

// NormalizeArticleCode converts a caller-supplied article code to the
// ledger's fixed CHAR(16) form: up to 8 digits, zero-padded to 8, then
// space-padded to 16. A 16-character input is kept unchanged once its first
// 8 characters are verified to be digits.
func NormalizeArticleCode(raw string) (string, error) {
	if len(raw) == 16 {
		if !isDigits(raw[:8]) {
			return "", validationf("invalid article code %q: first 8 characters must be digits", raw)
		}
		return raw, nil
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", validationf("article code cannot be empty")
	}
	if !isDigits(trimmed) {
		return "", validationf("invalid article code %q: only digits are allowed", trimmed)
	}
	if len(trimmed) > 8 {
		return "", validationf("invalid article code %q: expected at most 8 digits or a fixed CHAR(16) value", trimmed)
	}

	code8 := strings.Repeat("0", 8-len(trimmed)) + trimmed
	return padCode(code8), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// trimCode strips the CHAR(16) right padding for display and comparison.
func trimCode(code string) string {
	return strings.TrimRight(code, " ")
}

// padCode restores the fixed CHAR(16) storage form.
func padCode(code string) string {
	code = strings.TrimRight(code, " ")
	if len(code) >= 16 {
		return code[:16]
	}
	return code + strings.Repeat(" ", 16-len(code))
}
