package web

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var brl = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL renders an amount in centavos as Brazilian reais, e.g.
// 129900 -> "R$ 1.299,00".
func FormatBRL(cents int64) string {
	return brl.Sprintf("R$ %.2f", float64(cents)/100)
}
