package dataflows

import (
	"fmt"
	"strings"
)

// ValidateSymbol checks if a symbol looks like a usable ticker. Korean
// listings (005930.KS, 035720.KQ), index symbols (^KS11) and FX pairs
// (KRW=X) are all accepted.
func ValidateSymbol(symbol string) error {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))
	if len(symbol) == 0 {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 12 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	for _, r := range symbol {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '^' || r == '=' || r == '-':
		default:
			return fmt.Errorf("symbol contains invalid character %q: %s", r, symbol)
		}
	}
	return nil
}

// NormalizeSymbol converts a symbol to its canonical form.
func NormalizeSymbol(symbol string) string {
	return strings.TrimSpace(strings.ToUpper(symbol))
}
