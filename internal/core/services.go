package core

import (
	"context"

	"github.com/vovakirdan/coinchat-server/internal/service/economy"
	"github.com/vovakirdan/coinchat-server/internal/store"
)

// EconomyGate abstracts balance and unlock operations for the Hub.
// Balances and unlock sets are only reachable through these calls.
type EconomyGate interface {
	// CheckAndCharge allows or denies a private send, paying for the pair unlock when needed.
	// deliver runs inside the same transaction as the charge.
	CheckAndCharge(ctx context.Context, senderID, recipientID int64, deliver economy.DeliverFunc) (economy.Decision, error)

	// Transfer moves coins between two identities atomically.
	Transfer(ctx context.Context, fromID, toID, amount int64) (economy.TransferResult, error)

	// Balance returns the current balance of an identity.
	Balance(ctx context.Context, userID int64) (int64, error)

	// UnlockedPeers returns the peers an identity may message for free.
	UnlockedPeers(ctx context.Context, userID int64) ([]int64, error)
}

// HistoryGateway abstracts durable message append and paginated reads.
type HistoryGateway interface {
	// Append persists a message and returns once it is durable.
	Append(ctx context.Context, msg *store.Message) error

	// Lobby returns lobby messages, oldest first.
	Lobby(ctx context.Context, page store.Page) ([]*store.Message, error)

	// Thread returns messages between exactly a and b, oldest first.
	Thread(ctx context.Context, a, b int64, page store.Page) ([]*store.Message, error)
}
