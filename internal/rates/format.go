package rates

import "fmt"

// FormatAmount renders an already-converted amount with the placement rules
// of the given currency, fixed to two decimals. Symbol before the amount for
// most currencies; after it for the Euro, and after it with a space for the
// Polish Złoty. Unknown codes render symbol-first with the code as symbol.
func FormatAmount(amount float64, currencyCode string) string {
	symbol := Symbol(currencyCode)

	switch currencyCode {
	case "EUR":
		return fmt.Sprintf("%.2f%s", amount, symbol)
	case "PLN":
		return fmt.Sprintf("%.2f %s", amount, symbol)
	default:
		return fmt.Sprintf("%s%.2f", symbol, amount)
	}
}

// FormatPrice converts a USD amount into the target currency and renders it.
func (m *Manager) FormatPrice(usdAmount float64, currencyCode string) string {
	return FormatAmount(m.ConvertPrice(usdAmount, currencyCode), currencyCode)
}
