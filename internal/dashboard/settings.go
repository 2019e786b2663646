package dashboard

import (
	"strings"

	"github.com/pkg/errors"

	"stockdash/internal/indicator"
	"stockdash/internal/model"
)

// Settings is the runtime-adjustable part of the dashboard: which symbol a
// fresh page opens on and the indicator parameters.
type Settings struct {
	DefaultSymbol string           `json:"default_symbol"`
	Params        indicator.Params `json:"params"`
}

// Validate checks params and that the default symbol is selectable.
func (s Settings) Validate(symbols []model.Symbol) error {
	if err := s.Params.Validate(); err != nil {
		return err
	}
	if _, ok := model.FindSymbol(symbols, s.DefaultSymbol); !ok {
		return errors.Errorf("default symbol %q is not in the catalogue", s.DefaultSymbol)
	}
	return nil
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
