package economy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/coinchat-server/internal/store"
	"github.com/vovakirdan/coinchat-server/internal/utils"
)

// Common errors for balance operations.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrSelfTransfer        = errors.New("cannot target yourself")
	ErrUserNotFound        = errors.New("user not found")
)

// ReasonInsufficientBalance is reported when an unlock cannot be paid for.
const ReasonInsufficientBalance = "insufficient_balance"

// errDenied aborts the transaction without surfacing as a failure.
var errDenied = errors.New("denied")

// Decision is the outcome of a private-send gate check.
type Decision struct {
	Allowed bool
	// Charged is true when this call paid for the pair unlock.
	Charged bool
	// Balance is the sender's balance after the call.
	Balance int64
	Reason  string
}

// TransferResult reports balances after a successful transfer.
type TransferResult struct {
	FromBalance int64
	ToBalance   int64
	// Unlocked is true when the transfer also opened the private thread.
	Unlocked bool
}

// DeliverFunc runs inside the gate transaction once delivery is allowed.
// Returning an error rolls back the charge together with the delivery.
type DeliverFunc func(ctx context.Context, tx store.Tx) error

// Service gates private messaging behind a one-time pair unlock and moves coins between users.
type Service struct {
	ledger     store.Ledger
	locks      *utils.KeyLock
	unlockCost int64
	timeout    time.Duration
	logger     *zerolog.Logger
}

// New creates a new economy service.
func New(ledger store.Ledger, unlockCost int64, timeout time.Duration, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		ledger:     ledger,
		locks:      utils.NewKeyLock(),
		unlockCost: unlockCost,
		timeout:    timeout,
		logger:     logger,
	}
}

// UnlockCost returns the configured price of a pair unlock.
func (s *Service) UnlockCost() int64 {
	return s.unlockCost
}

// CheckAndCharge allows a private send from senderID to recipientID.
// An existing pair unlock is free; otherwise the unlock cost is debited.
// deliver runs in the same transaction, so a failed delivery refunds the charge.
// A denied decision is returned with a nil error and nothing changed.
func (s *Service) CheckAndCharge(ctx context.Context, senderID, recipientID int64, deliver DeliverFunc) (Decision, error) {
	if senderID == recipientID {
		return Decision{}, ErrSelfTransfer
	}

	unlock := s.locks.Lock(senderID, recipientID)
	defer unlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var decision Decision
	err := s.ledger.InTx(ctx, func(tx store.Tx) error {
		decision = Decision{}

		if _, err := tx.Balance(ctx, recipientID); err != nil {
			return notFoundAs(err, ErrUserNotFound)
		}

		unlocked, err := tx.HasUnlock(ctx, senderID, recipientID)
		if err != nil {
			return err
		}

		if unlocked {
			balance, err := tx.Balance(ctx, senderID)
			if err != nil {
				return notFoundAs(err, ErrUserNotFound)
			}
			decision.Balance = balance
		} else {
			balance, err := s.chargeUnlock(ctx, tx, senderID, recipientID)
			if errors.Is(err, store.ErrInsufficientBalance) {
				current, balErr := tx.Balance(ctx, senderID)
				if balErr != nil {
					return notFoundAs(balErr, ErrUserNotFound)
				}
				decision.Balance = current
				decision.Reason = ReasonInsufficientBalance
				return errDenied
			}
			if err != nil {
				return err
			}
			decision.Balance = balance
			decision.Charged = s.unlockCost > 0
		}

		if deliver != nil {
			if err := deliver(ctx, tx); err != nil {
				return fmt.Errorf("deliver: %w", err)
			}
		}
		decision.Allowed = true
		return nil
	})

	switch {
	case errors.Is(err, errDenied):
		return decision, nil
	case err != nil:
		return Decision{}, err
	}

	if decision.Charged {
		s.logger.Debug().
			Int64("user_id", senderID).
			Int64("peer_id", recipientID).
			Int64("balance", decision.Balance).
			Msg("private thread unlocked")
	}
	return decision, nil
}

func (s *Service) chargeUnlock(ctx context.Context, tx store.Tx, senderID, recipientID int64) (int64, error) {
	var balance int64
	if s.unlockCost > 0 {
		var err error
		balance, err = tx.Debit(ctx, senderID, s.unlockCost)
		if err != nil {
			return 0, notFoundAs(err, ErrUserNotFound)
		}
		if err := tx.RecordTransaction(ctx, &store.CoinTransaction{
			FromID: &senderID,
			Amount: s.unlockCost,
			Note:   store.NoteUnlock,
		}); err != nil {
			return 0, err
		}
	} else {
		var err error
		balance, err = tx.Balance(ctx, senderID)
		if err != nil {
			return 0, notFoundAs(err, ErrUserNotFound)
		}
	}

	if err := tx.AddUnlock(ctx, senderID, recipientID, senderID); err != nil {
		return 0, err
	}
	return balance, nil
}

// Transfer moves amount coins from fromID to toID. The debit and the credit commit together.
// A transfer also unlocks the private thread between the two users when it was still locked.
func (s *Service) Transfer(ctx context.Context, fromID, toID, amount int64) (TransferResult, error) {
	if amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}
	if fromID == toID {
		return TransferResult{}, ErrSelfTransfer
	}

	unlock := s.locks.Lock(fromID, toID)
	defer unlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result TransferResult
	err := s.ledger.InTx(ctx, func(tx store.Tx) error {
		result = TransferResult{}

		fromBalance, err := tx.Debit(ctx, fromID, amount)
		if err != nil {
			if errors.Is(err, store.ErrInsufficientBalance) {
				return ErrInsufficientBalance
			}
			return notFoundAs(err, ErrUserNotFound)
		}

		toBalance, err := tx.Credit(ctx, toID, amount)
		if err != nil {
			return notFoundAs(err, ErrUserNotFound)
		}

		if err := tx.RecordTransaction(ctx, &store.CoinTransaction{
			FromID: &fromID,
			ToID:   &toID,
			Amount: amount,
			Note:   store.NoteGift,
		}); err != nil {
			return err
		}

		unlocked, err := tx.HasUnlock(ctx, fromID, toID)
		if err != nil {
			return err
		}
		if !unlocked {
			if err := tx.AddUnlock(ctx, fromID, toID, fromID); err != nil {
				return err
			}
			result.Unlocked = true
		}

		result.FromBalance = fromBalance
		result.ToBalance = toBalance
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}

	s.logger.Debug().
		Int64("from_id", fromID).
		Int64("to_id", toID).
		Int64("amount", amount).
		Msg("coins transferred")
	return result, nil
}

// Balance returns the current balance of userID.
func (s *Service) Balance(ctx context.Context, userID int64) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var balance int64
	err := s.ledger.InTx(ctx, func(tx store.Tx) error {
		var err error
		balance, err = tx.Balance(ctx, userID)
		return notFoundAs(err, ErrUserNotFound)
	})
	return balance, err
}

// UnlockedPeers returns the ids userID can message without paying.
func (s *Service) UnlockedPeers(ctx context.Context, userID int64) ([]int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	peers, err := s.ledger.ListUnlockedPeers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list unlocked peers: %w", err)
	}
	return peers, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func notFoundAs(err, replacement error) error {
	if errors.Is(err, store.ErrNotFound) {
		return replacement
	}
	return err
}
