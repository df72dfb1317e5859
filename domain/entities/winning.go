package entities

// Winning is a completed round won by an account
type Winning struct {
	RoundID int64  `json:"round_id"`
	Round   *Round `json:"-"`
	Amount  int64  `json:"amount"`
	Claimed bool   `json:"claimed"`
}

// NewWinning builds the winnings view of a completed round
func NewWinning(round *Round) *Winning {
	return &Winning{
		RoundID: round.ID,
		Round:   round,
		Amount:  round.PrizePool,
		Claimed: round.PrizeClaimed,
	}
}
