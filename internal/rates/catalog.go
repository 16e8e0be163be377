package rates

// Currency describes a catalog currency the app can display prices in.
// The catalog is fixed; it is not fetched remotely.
type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Flag   string `json:"flag"`
	Symbol string `json:"symbol"`
}

// Catalog is the fixed set of displayable currencies.
var Catalog = []Currency{
	{Code: "USD", Name: "US Dollar", Flag: "🇺🇸", Symbol: "$"},
	{Code: "EUR", Name: "Euro", Flag: "🇪🇺", Symbol: "€"},
	{Code: "PLN", Name: "Polish Złoty", Flag: "🇵🇱", Symbol: "zł"},
	{Code: "MXN", Name: "Mexican Peso", Flag: "🇲🇽", Symbol: "MX$"},
	{Code: "GBP", Name: "British Pound", Flag: "🇬🇧", Symbol: "£"},
	{Code: "CAD", Name: "Canadian Dollar", Flag: "🇨🇦", Symbol: "CA$"},
}

// CatalogCurrency looks up a catalog entry by code.
func CatalogCurrency(code string) (Currency, bool) {
	for _, c := range Catalog {
		if c.Code == code {
			return c, true
		}
	}
	return Currency{}, false
}

// InCatalog reports whether code is a catalog currency.
func InCatalog(code string) bool {
	_, ok := CatalogCurrency(code)
	return ok
}

// Symbol returns the catalog symbol for code, or the code itself when the
// currency is not in the catalog.
func Symbol(code string) string {
	if c, ok := CatalogCurrency(code); ok {
		return c.Symbol
	}
	return code
}
