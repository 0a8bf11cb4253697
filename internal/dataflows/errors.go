package dataflows

import "fmt"

// DataUnavailableError marks a fetch that failed after retries or returned
// nothing usable. Scorers decide whether to degrade to neutral defaults or
// give up on the dimension entirely.
type DataUnavailableError struct {
	Source string
	Symbol string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s data unavailable for %s: %v", e.Source, e.Symbol, e.Err)
	}
	return fmt.Sprintf("%s data unavailable for %s", e.Source, e.Symbol)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

func unavailable(source, symbol string, err error) error {
	return &DataUnavailableError{Source: source, Symbol: symbol, Err: err}
}
