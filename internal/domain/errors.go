package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrSourceNotFound    = errors.New("series source not found")
	ErrSymbolNotFound    = errors.New("currency symbol not found")
	ErrMalformedEnvelope = errors.New("malformed upstream envelope")
	ErrMalformedLedger   = errors.New("malformed donation ledger response")
	ErrInvalidRegistry   = errors.New("invalid source registry")
)

// FetchFailure is returned when an upstream request fails at the transport level
// or answers with a non-2xx status. Status is 0 for network-level failures.
type FetchFailure struct {
	Status  int
	Message string
}

func (e *FetchFailure) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upstream fetch failed: %s", e.Message)
	}
	return fmt.Sprintf("upstream fetch failed with status %d: %s", e.Status, e.Message)
}

// AsFetchFailure unwraps err into a FetchFailure when it is one
func AsFetchFailure(err error) (*FetchFailure, bool) {
	var ff *FetchFailure
	if errors.As(err, &ff) {
		return ff, true
	}
	return nil, false
}
