package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientBalance is returned when a debit would make a balance negative.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrUsernameTaken is returned when a username is already registered.
	ErrUsernameTaken = errors.New("username taken")
)

// LobbyRoom is the room value stored on lobby messages.
const LobbyRoom = "lobby"

// Role tags carried by users.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// User represents a registered identity.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	Coins        int64
	CreatedAt    time.Time
}

// Message represents a persisted chat message.
// Lobby messages have Room set to LobbyRoom; private messages have RecipientID set.
type Message struct {
	ID             int64
	SenderID       int64
	SenderUsername string // filled on reads
	RecipientID    *int64
	Room           string
	Body           string
	CreatedAt      time.Time
}

// CoinTransaction is a ledger row for every balance movement.
type CoinTransaction struct {
	ID        int64
	FromID    *int64
	ToID      *int64
	Amount    int64
	Note      string
	CreatedAt time.Time
}

// Ledger notes.
const (
	NoteUnlock = "unlock"
	NoteGift   = "gift"
)

// Page selects a window of history. Messages are returned oldest-first;
// BeforeID, when non-zero, restricts the window to ids lower than it.
type Page struct {
	Limit    int
	BeforeID int64
}

// Pair returns the canonical (low, high) ordering of two identity ids.
func Pair(a, b int64) (int64, int64) {
	if a <= b {
		return a, b
	}
	return b, a
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// ListUsers returns every registered user ordered by username.
	ListUsers(ctx context.Context) ([]*User, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message to storage and sets its ID.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListLobbyMessages retrieves lobby messages, oldest first.
	ListLobbyMessages(ctx context.Context, page Page) ([]*Message, error)

	// ListThreadMessages retrieves messages exchanged between exactly a and b, oldest first.
	ListThreadMessages(ctx context.Context, a, b int64, page Page) ([]*Message, error)
}

// Tx is the set of ledger operations that must commit together.
type Tx interface {
	// Balance returns the current balance, or ErrNotFound.
	Balance(ctx context.Context, userID int64) (int64, error)

	// Debit subtracts amount and returns the new balance.
	// Returns ErrInsufficientBalance without changing anything when the balance is too low.
	Debit(ctx context.Context, userID, amount int64) (int64, error)

	// Credit adds amount and returns the new balance.
	Credit(ctx context.Context, userID, amount int64) (int64, error)

	// HasUnlock reports whether the unordered pair is unlocked.
	HasUnlock(ctx context.Context, a, b int64) (bool, error)

	// AddUnlock records the unordered pair as unlocked. Existing unlocks are kept.
	AddUnlock(ctx context.Context, a, b, paidBy int64) error

	// RecordTransaction appends a ledger row.
	RecordTransaction(ctx context.Context, t *CoinTransaction) error

	// SaveMessage persists a message inside the transaction.
	SaveMessage(ctx context.Context, msg *Message) error
}

// Ledger runs balance mutations atomically.
type Ledger interface {
	// InTx commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// ListUnlockedPeers returns the peers userID may message without paying.
	ListUnlockedPeers(ctx context.Context, userID int64) ([]int64, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore
	Ledger

	// Close closes the underlying database connection.
	Close() error
}
