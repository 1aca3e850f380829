package mail

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// FormatMinorUnits renders an amount held in the smallest currency unit as a
// human-readable string with the currency symbol, e.g. 238820 INR -> "₹2,388.20".
// Unknown currency codes fall back to "CODE <amount>".
func FormatMinorUnits(code string, amount int64) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %d", code, amount)
	}

	scale, _ := currency.Cash.Rounding(unit)
	divisor := int64(1)
	for i := 0; i < scale; i++ {
		divisor *= 10
	}

	negative := amount < 0
	if negative {
		amount = -amount
	}
	major := amount / divisor
	minor := amount % divisor

	symbol := moneyPrinter.Sprint(currency.Symbol(unit))
	formatted := moneyPrinter.Sprintf("%d", major)
	if scale > 0 {
		formatted = fmt.Sprintf("%s.%0*d", formatted, scale, minor)
	}
	if negative {
		return fmt.Sprintf("-%s%s", symbol, formatted)
	}
	return symbol + formatted
}
