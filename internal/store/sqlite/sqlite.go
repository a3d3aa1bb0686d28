package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/coinchat-server/internal/store"
)

const defaultStartingCoins = 1000

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db            *sql.DB
	startingCoins int64
}

// Option customizes a SQLiteStore.
type Option func(*SQLiteStore)

// WithStartingCoins sets the balance granted to newly created users.
func WithStartingCoins(coins int64) Option {
	return func(s *SQLiteStore) {
		s.startingCoins = coins
	}
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string, opts ...Option) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, ApplySchema, opts...)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema without touching disk.
func NewWithSetup(dbPath string, setup func(*sql.DB) error, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with single connection; this also serializes transactions.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &SQLiteStore{db: db, startingCoins: defaultStartingCoins}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

const userColumns = `id, username, password_hash, role, coins, created_at`

// CreateUser creates a new user with hashed password and the starting balance.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash, role, coins)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash, store.RoleMember, s.startingCoins)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return scanUser(s.db.QueryRowContext(ctx, query, username))
}

// ListUsers returns every registered user ordered by username.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY username ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*store.User, error) {
	var user store.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.Coins,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// ==== MessageStore implementation ====

// SaveMessage persists a message to storage.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	return saveMessage(ctx, s.db, msg)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveMessage(ctx context.Context, db execer, msg *store.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	var room any
	if msg.Room != "" {
		room = msg.Room
	}

	query := `
		INSERT INTO messages (sender_id, recipient_id, room, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := db.ExecContext(ctx, query, msg.SenderID, msg.RecipientID, room, msg.Body, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	return nil
}

const messageSelect = `
	SELECT m.id, m.sender_id, COALESCE(u.username, 'unknown'), m.recipient_id, COALESCE(m.room, ''), m.body, m.created_at
	FROM messages m
	LEFT JOIN users u ON u.id = m.sender_id
`

// ListLobbyMessages retrieves lobby messages with pagination.
func (s *SQLiteStore) ListLobbyMessages(ctx context.Context, page store.Page) ([]*store.Message, error) {
	query := messageSelect + `
		WHERE m.room = ? AND (? = 0 OR m.id < ?)
		ORDER BY m.id DESC
		LIMIT ?
	`
	return s.listMessages(ctx, query, store.LobbyRoom, page.BeforeID, page.BeforeID, page.Limit)
}

// ListThreadMessages retrieves messages exchanged between a and b with pagination.
func (s *SQLiteStore) ListThreadMessages(ctx context.Context, a, b int64, page store.Page) ([]*store.Message, error) {
	query := messageSelect + `
		WHERE ((m.sender_id = ? AND m.recipient_id = ?) OR (m.sender_id = ? AND m.recipient_id = ?))
		  AND (? = 0 OR m.id < ?)
		ORDER BY m.id DESC
		LIMIT ?
	`
	return s.listMessages(ctx, query, a, b, b, a, page.BeforeID, page.BeforeID, page.Limit)
}

func (s *SQLiteStore) listMessages(ctx context.Context, query string, args ...any) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		var recipientID sql.NullInt64
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.SenderUsername, &recipientID, &msg.Room, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if recipientID.Valid {
			msg.RecipientID = &recipientID.Int64
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i := range len(messages) / 2 {
		messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
	}

	return messages, nil
}

// ==== Ledger implementation ====

// InTx runs fn inside a single SQL transaction.
func (s *SQLiteStore) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListUnlockedPeers returns the peers userID shares an unlock with.
func (s *SQLiteStore) ListUnlockedPeers(ctx context.Context, userID int64) ([]int64, error) {
	query := `
		SELECT CASE WHEN user_low = ? THEN user_high ELSE user_low END
		FROM dm_unlocks
		WHERE user_low = ? OR user_high = ?
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query unlocks: %w", err)
	}
	defer rows.Close()

	var peers []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan unlock: %w", err)
		}
		peers = append(peers, id)
	}
	return peers, rows.Err()
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Balance(ctx context.Context, userID int64) (int64, error) {
	var coins int64
	err := t.tx.QueryRowContext(ctx, `SELECT coins FROM users WHERE id = ?`, userID).Scan(&coins)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("user %d: %w", userID, store.ErrNotFound)
		}
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return coins, nil
}

func (t *sqliteTx) Debit(ctx context.Context, userID, amount int64) (int64, error) {
	query := `UPDATE users SET coins = coins - ? WHERE id = ? AND coins >= ?`
	result, err := t.tx.ExecContext(ctx, query, amount, userID, amount)
	if err != nil {
		return 0, fmt.Errorf("debit: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish a missing user from a short balance.
		if _, err := t.Balance(ctx, userID); err != nil {
			return 0, err
		}
		return 0, store.ErrInsufficientBalance
	}
	return t.Balance(ctx, userID)
}

func (t *sqliteTx) Credit(ctx context.Context, userID, amount int64) (int64, error) {
	result, err := t.tx.ExecContext(ctx, `UPDATE users SET coins = coins + ? WHERE id = ?`, amount, userID)
	if err != nil {
		return 0, fmt.Errorf("credit: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return 0, fmt.Errorf("user %d: %w", userID, store.ErrNotFound)
	}
	return t.Balance(ctx, userID)
}

func (t *sqliteTx) HasUnlock(ctx context.Context, a, b int64) (bool, error) {
	low, high := store.Pair(a, b)
	var exists int
	err := t.tx.QueryRowContext(ctx, `SELECT 1 FROM dm_unlocks WHERE user_low = ? AND user_high = ?`, low, high).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query unlock: %w", err)
	}
	return true, nil
}

func (t *sqliteTx) AddUnlock(ctx context.Context, a, b, paidBy int64) error {
	low, high := store.Pair(a, b)
	query := `
		INSERT OR IGNORE INTO dm_unlocks (user_low, user_high, paid_by, created_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := t.tx.ExecContext(ctx, query, low, high, paidBy, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert unlock: %w", err)
	}
	return nil
}

func (t *sqliteTx) RecordTransaction(ctx context.Context, ct *store.CoinTransaction) error {
	if ct.CreatedAt.IsZero() {
		ct.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO coin_transactions (from_id, to_id, amount, note, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := t.tx.ExecContext(ctx, query, ct.FromID, ct.ToID, ct.Amount, ct.Note, ct.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert coin transaction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	ct.ID = id
	return nil
}

func (t *sqliteTx) SaveMessage(ctx context.Context, msg *store.Message) error {
	return saveMessage(ctx, t.tx, msg)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

var _ store.Store = (*SQLiteStore)(nil)
