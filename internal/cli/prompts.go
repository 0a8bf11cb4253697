package cli

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"

	"github.com/lubanana/kstock-dashboard/internal/dataflows"
)

// promptSymbol asks for a ticker when none was given on the command line.
func promptSymbol() (string, error) {
	prompt := &survey.Input{
		Message: "Ticker symbol to analyze:",
		Help:    "Korean listings like 005930.KS or 035720.KQ",
	}

	var symbol string
	err := survey.AskOne(prompt, &symbol, survey.WithValidator(func(val interface{}) error {
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("invalid input")
		}
		return dataflows.ValidateSymbol(dataflows.NormalizeSymbol(s))
	}))
	if err != nil {
		return "", err
	}
	return symbol, nil
}
