package store

import (
	"fmt"

	"github.com/efreitasn/exchangecore/internal/domain"
)

func conflict(id domain.ExchangeID, expected, actual int) error {
	return fmt.Errorf("%w: exchange %s is at version %d, expected %d",
		domain.ErrConcurrencyConflict, id, actual, expected)
}
