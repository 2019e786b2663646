package model

// Symbol is one selectable equity in the dashboard dropdown.
type Symbol struct {
	Value string `json:"value" mapstructure:"value" validate:"required,alphanum,uppercase"`
	Label string `json:"label" mapstructure:"label" validate:"required"`
}

// DefaultSymbols is the catalogue shown when no config overrides it.
func DefaultSymbols() []Symbol {
	return []Symbol{
		{Value: "VNM", Label: "Vinamilk (VNM)"},
		{Value: "FPT", Label: "FPT Corporation (FPT)"},
		{Value: "VCB", Label: "Vietcombank (VCB)"},
	}
}

// FindSymbol returns the catalogue entry for value.
func FindSymbol(symbols []Symbol, value string) (Symbol, bool) {
	for _, s := range symbols {
		if s.Value == value {
			return s, true
		}
	}
	return Symbol{}, false
}
