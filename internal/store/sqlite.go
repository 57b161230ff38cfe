package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tradebench/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ UserStore = (*SQLiteStore)(nil)
var _ BotStore = (*SQLiteStore)(nil)
var _ WalletStore = (*SQLiteStore)(nil)

// SQLiteStore implements UserStore, BotStore, and WalletStore backed by a
// SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS bots (
	id                  TEXT PRIMARY KEY,
	user_id             TEXT NOT NULL,
	name                TEXT NOT NULL,
	strategy            TEXT NOT NULL,
	pair                TEXT NOT NULL,
	timeframe           TEXT NOT NULL,
	investment          REAL NOT NULL,
	grid_count          INTEGER NOT NULL DEFAULT 0,
	grid_spacing        REAL NOT NULL DEFAULT 0,
	upper_price         REAL NOT NULL DEFAULT 0,
	lower_price         REAL NOT NULL DEFAULT 0,
	stop_loss_percent   REAL NOT NULL DEFAULT 0,
	take_profit_percent REAL NOT NULL DEFAULT 0,
	status              TEXT NOT NULL,
	backtest_results    TEXT NOT NULL DEFAULT '',
	created_at          INTEGER NOT NULL,
	updated_at          INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bots_user ON bots(user_id);

CREATE TABLE IF NOT EXISTS wallets (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	exchange   TEXT NOT NULL,
	label      TEXT NOT NULL DEFAULT '',
	api_key    TEXT NOT NULL,
	api_secret TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_wallets_user ON wallets(user_id);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// UserStore implementation
// ---------------------------------------------------------------------------

// CreateUser inserts a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, user.PasswordHash, user.CreatedAt.UnixMilli())
	return err
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var createdAt int64
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &u, nil
}

// ListUsers returns all users ordered by creation time.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		var createdAt int64
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &createdAt); err != nil {
			return nil, err
		}
		u.CreatedAt = time.UnixMilli(createdAt).UTC()
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser persists changes to an existing user.
func (s *SQLiteStore) UpdateUser(ctx context.Context, user *domain.User) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET email = ?, name = ?, password_hash = ? WHERE id = ?`,
		user.Email, user.Name, user.PasswordHash, user.ID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// DeleteUser removes a user by ID.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// ---------------------------------------------------------------------------
// BotStore implementation
// ---------------------------------------------------------------------------

const botColumns = `id, user_id, name, strategy, pair, timeframe, investment,
	grid_count, grid_spacing, upper_price, lower_price,
	stop_loss_percent, take_profit_percent, status, backtest_results,
	created_at, updated_at`

// CreateBot inserts a new bot configuration.
func (s *SQLiteStore) CreateBot(ctx context.Context, bot *domain.Bot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bots (`+botColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bot.ID, bot.UserID, bot.Name, bot.Strategy, bot.Pair, bot.Timeframe, bot.Investment,
		bot.GridCount, bot.GridSpacing, bot.UpperPrice, bot.LowerPrice,
		bot.StopLossPercent, bot.TakeProfitPercent, bot.Status, bot.BacktestResults,
		bot.CreatedAt.UnixMilli(), bot.UpdatedAt.UnixMilli())
	return err
}

// GetBot retrieves a bot by ID.
func (s *SQLiteStore) GetBot(ctx context.Context, id string) (*domain.Bot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+botColumns+` FROM bots WHERE id = ?`, id)
	var b domain.Bot
	var createdAt, updatedAt int64
	err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.Strategy, &b.Pair, &b.Timeframe, &b.Investment,
		&b.GridCount, &b.GridSpacing, &b.UpperPrice, &b.LowerPrice,
		&b.StopLossPercent, &b.TakeProfitPercent, &b.Status, &b.BacktestResults,
		&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b.CreatedAt = time.UnixMilli(createdAt).UTC()
	b.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &b, nil
}

// ListBots returns bots for a user, or all bots when userID is empty.
func (s *SQLiteStore) ListBots(ctx context.Context, userID string) ([]domain.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots ORDER BY created_at`
	args := []any{}
	if userID != "" {
		query = `SELECT ` + botColumns + ` FROM bots WHERE user_id = ? ORDER BY created_at`
		args = append(args, userID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bots []domain.Bot
	for rows.Next() {
		var b domain.Bot
		var createdAt, updatedAt int64
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.Strategy, &b.Pair, &b.Timeframe, &b.Investment,
			&b.GridCount, &b.GridSpacing, &b.UpperPrice, &b.LowerPrice,
			&b.StopLossPercent, &b.TakeProfitPercent, &b.Status, &b.BacktestResults,
			&createdAt, &updatedAt); err != nil {
			return nil, err
		}
		b.CreatedAt = time.UnixMilli(createdAt).UTC()
		b.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		bots = append(bots, b)
	}
	return bots, rows.Err()
}

// UpdateBot persists changes to an existing bot.
func (s *SQLiteStore) UpdateBot(ctx context.Context, bot *domain.Bot) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bots SET name = ?, strategy = ?, pair = ?, timeframe = ?, investment = ?,
			grid_count = ?, grid_spacing = ?, upper_price = ?, lower_price = ?,
			stop_loss_percent = ?, take_profit_percent = ?, status = ?, backtest_results = ?,
			updated_at = ?
		WHERE id = ?`,
		bot.Name, bot.Strategy, bot.Pair, bot.Timeframe, bot.Investment,
		bot.GridCount, bot.GridSpacing, bot.UpperPrice, bot.LowerPrice,
		bot.StopLossPercent, bot.TakeProfitPercent, bot.Status, bot.BacktestResults,
		bot.UpdatedAt.UnixMilli(), bot.ID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// DeleteBot removes a bot by ID.
func (s *SQLiteStore) DeleteBot(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bots WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// ---------------------------------------------------------------------------
// WalletStore implementation
// ---------------------------------------------------------------------------

// CreateWallet inserts a new wallet record.
func (s *SQLiteStore) CreateWallet(ctx context.Context, wallet *domain.Wallet) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wallets (id, user_id, exchange, label, api_key, api_secret, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		wallet.ID, wallet.UserID, wallet.Exchange, wallet.Label,
		wallet.APIKey, wallet.APISecret, wallet.CreatedAt.UnixMilli())
	return err
}

// GetWallet retrieves a wallet by ID.
func (s *SQLiteStore) GetWallet(ctx context.Context, id string) (*domain.Wallet, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, exchange, label, api_key, api_secret, created_at
		FROM wallets WHERE id = ?`, id)
	var w domain.Wallet
	var createdAt int64
	err := row.Scan(&w.ID, &w.UserID, &w.Exchange, &w.Label, &w.APIKey, &w.APISecret, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	w.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &w, nil
}

// ListWallets returns wallets for a user, or all wallets when userID is empty.
func (s *SQLiteStore) ListWallets(ctx context.Context, userID string) ([]domain.Wallet, error) {
	query := `SELECT id, user_id, exchange, label, api_key, api_secret, created_at
		FROM wallets ORDER BY created_at`
	args := []any{}
	if userID != "" {
		query = `SELECT id, user_id, exchange, label, api_key, api_secret, created_at
			FROM wallets WHERE user_id = ? ORDER BY created_at`
		args = append(args, userID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		var w domain.Wallet
		var createdAt int64
		if err := rows.Scan(&w.ID, &w.UserID, &w.Exchange, &w.Label, &w.APIKey, &w.APISecret, &createdAt); err != nil {
			return nil, err
		}
		w.CreatedAt = time.UnixMilli(createdAt).UTC()
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// DeleteWallet removes a wallet by ID.
func (s *SQLiteStore) DeleteWallet(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM wallets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// requireRowAffected converts a zero-row update/delete into ErrNotFound.
func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
