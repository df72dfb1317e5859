package interfaces

import (
	"context"
	"math/big"
	"time"

	"raffle/domain/entities"
)

// RoundParams are the configuration inputs captured when a round opens
type RoundParams struct {
	TicketPrice int64
	Policy      entities.RoundPolicy
}

// RoundService drives the round lifecycle state machine
type RoundService interface {
	// OpenRound creates a new Open round with the given parameters
	OpenRound(ctx context.Context, params RoundParams) (*entities.Round, error)

	// EnsureCurrentRound returns the in-progress round, opening one with the
	// default parameters when the latest round has completed
	EnsureCurrentRound(ctx context.Context) (*entities.Round, error)

	// BeginDrawing moves an Open round to Drawing once its close rule holds
	BeginDrawing(ctx context.Context, roundID int64, now time.Time) (*entities.Round, error)

	// CompleteRound moves a Drawing round to Completed once a winner exists
	CompleteRound(ctx context.Context, roundID int64) (*entities.Round, error)
}

// PurchaseResult contains the outcome of a ticket purchase
type PurchaseResult struct {
	Round  *entities.Round
	Ticket *entities.Ticket
	Cost   int64
}

// TicketService handles ticket sales
type TicketService interface {
	// BuyTickets buys count tickets at unitPrice for account in an Open round
	BuyTickets(ctx context.Context, roundID int64, account entities.Account, count int64, unitPrice int64) (*PurchaseResult, error)

	// GetTickets returns the account's ticket view for a round
	GetTickets(ctx context.Context, roundID int64, account entities.Account) (*entities.Ticket, error)
}

// ResolveResult contains the outcome of a randomness delivery
type ResolveResult struct {
	Round     *entities.Round
	Winner    entities.Account
	Slot      int64
	Duplicate bool // The same value was already applied
	NextRound *entities.Round
}

// SettlementService consumes oracle randomness and selects winners
type SettlementService interface {
	// ResolveWinner applies a random value to a Drawing round
	ResolveWinner(ctx context.Context, roundID int64, randomValue *big.Int) (*ResolveResult, error)
}

// ClaimResult contains the outcome of a successful claim
type ClaimResult struct {
	Round  *entities.Round
	Amount int64
}

// ClaimStatus describes whether an account may claim a round's prize
type ClaimStatus struct {
	RoundID  int64            `json:"round_id"`
	Account  entities.Account `json:"account"`
	Eligible bool             `json:"eligible"`
	IsWinner bool             `json:"is_winner"`
	Claimed  bool             `json:"claimed"`
	Amount   int64            `json:"amount"`
	Reason   string           `json:"reason,omitempty"`
}

// ClaimService governs prize claim state
type ClaimService interface {
	// ClaimPrize marks the prize claimed and returns the payable amount
	ClaimPrize(ctx context.Context, roundID int64, claimant entities.Account) (*ClaimResult, error)

	// ClaimStatus reports claim eligibility without mutating anything
	ClaimStatus(ctx context.Context, roundID int64, account entities.Account) (*ClaimStatus, error)
}

// QueryService is the read-only history surface
type QueryService interface {
	GetRound(ctx context.Context, roundID int64) (*entities.Round, error)
	CurrentRound(ctx context.Context) (*entities.Round, error)
	ListRecent(ctx context.Context, n int) ([]*entities.Round, error)
	ListRounds(ctx context.Context, limit int, beforeID *int64) ([]*entities.Round, error)
	GetUserWinnings(ctx context.Context, account entities.Account) ([]*entities.Winning, error)
}

// RandomValueBound is the exclusive upper bound of oracle random values (2^256)
var RandomValueBound = new(big.Int).Lsh(big.NewInt(1), 256)
