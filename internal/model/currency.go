package model

import "sort"

// Currency describes a supported display currency.
type Currency struct {
	Code   string
	Symbol string
	Name   string
}

var currencies = map[string]Currency{
	"USD": {"USD", "$", "US Dollar"},
	"EUR": {"EUR", "€", "Euro"},
	"GBP": {"GBP", "£", "British Pound"},
	"JPY": {"JPY", "¥", "Japanese Yen"},
	"CNY": {"CNY", "¥", "Chinese Yuan"},
	"INR": {"INR", "₹", "Indian Rupee"},
	"AUD": {"AUD", "A$", "Australian Dollar"},
	"CAD": {"CAD", "C$", "Canadian Dollar"},
	"CHF": {"CHF", "Fr", "Swiss Franc"},
	"SEK": {"SEK", "kr", "Swedish Krona"},
	"NZD": {"NZD", "NZ$", "New Zealand Dollar"},
	"KRW": {"KRW", "₩", "South Korean Won"},
	"SGD": {"SGD", "S$", "Singapore Dollar"},
	"NOK": {"NOK", "kr", "Norwegian Krone"},
	"MXN": {"MXN", "$", "Mexican Peso"},
	"HKD": {"HKD", "HK$", "Hong Kong Dollar"},
	"BRL": {"BRL", "R$", "Brazilian Real"},
	"ZAR": {"ZAR", "R", "South African Rand"},
	"RUB": {"RUB", "₽", "Russian Ruble"},
	"TRY": {"TRY", "₺", "Turkish Lira"},
	"PLN": {"PLN", "zł", "Polish Zloty"},
	"THB": {"THB", "฿", "Thai Baht"},
	"IDR": {"IDR", "Rp", "Indonesian Rupiah"},
	"MYR": {"MYR", "RM", "Malaysian Ringgit"},
	"PHP": {"PHP", "₱", "Philippine Peso"},
	"DKK": {"DKK", "kr", "Danish Krone"},
	"CZK": {"CZK", "Kč", "Czech Koruna"},
	"HUF": {"HUF", "Ft", "Hungarian Forint"},
	"ILS": {"ILS", "₪", "Israeli Shekel"},
	"AED": {"AED", "د.إ", "UAE Dirham"},
	"SAR": {"SAR", "﷼", "Saudi Riyal"},
	"ARS": {"ARS", "$", "Argentine Peso"},
	"CLP": {"CLP", "$", "Chilean Peso"},
	"COP": {"COP", "$", "Colombian Peso"},
	"EGP": {"EGP", "E£", "Egyptian Pound"},
	"PKR": {"PKR", "₨", "Pakistani Rupee"},
	"VND": {"VND", "₫", "Vietnamese Dong"},
	"BGN": {"BGN", "лв", "Bulgarian Lev"},
	"RON": {"RON", "lei", "Romanian Leu"},
	"HRK": {"HRK", "kn", "Croatian Kuna"},
	"UAH": {"UAH", "₴", "Ukrainian Hryvnia"},
}

// LookupCurrency returns the currency for a code.
func LookupCurrency(code string) (Currency, bool) {
	c, ok := currencies[code]
	return c, ok
}

// CurrencySymbol returns the display symbol for code, "$" when unknown.
func CurrencySymbol(code string) string {
	if c, ok := currencies[code]; ok {
		return c.Symbol
	}
	return "$"
}

// Currencies returns every supported currency sorted by code.
func Currencies() []Currency {
	out := make([]Currency, 0, len(currencies))
	for _, c := range currencies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
