package services

import (
	"fmt"
	"math/big"

	"raffle/domain/entities"
	"raffle/domain/interfaces"
)

// ValidateRandomValue checks that v is an unsigned 256-bit integer
func ValidateRandomValue(v *big.Int) error {
	if v == nil {
		return fmt.Errorf("%w: missing", entities.ErrInvalidRandomValue)
	}
	if v.Sign() < 0 || v.Cmp(interfaces.RandomValueBound) >= 0 {
		return fmt.Errorf("%w: %s is outside [0, 2^256)", entities.ErrInvalidRandomValue, v.String())
	}
	return nil
}

// SelectWinnerIndex maps a random value onto the ticket slots of participants.
// Each participant owns a contiguous run of slots equal to its ticket count,
// in entry order. It returns the winning participant's index and the slot.
func SelectWinnerIndex(participants []entities.Participant, randomValue *big.Int) (int, int64, error) {
	if err := ValidateRandomValue(randomValue); err != nil {
		return 0, 0, err
	}

	var total int64
	for _, p := range participants {
		if p.TicketCount < 1 {
			return 0, 0, fmt.Errorf("participant %s has %d tickets", p.Account, p.TicketCount)
		}
		total += p.TicketCount
	}
	if total == 0 {
		return 0, 0, fmt.Errorf("%w: no tickets to draw from", entities.ErrNotReady)
	}

	slot := new(big.Int).Mod(randomValue, big.NewInt(total)).Int64()

	var upper int64
	for i, p := range participants {
		upper += p.TicketCount
		if slot < upper {
			return i, slot, nil
		}
	}
	// Unreachable while slot < total
	return 0, 0, fmt.Errorf("slot %d outside %d tickets", slot, total)
}
